package service

import (
	"context"
	"fmt"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"
)

type gitlabTracker struct {
	client    *gitlab.Client
	projectID string
}

// NewGitLabTracker builds an IssueTracker over a single GitLab project.
// projectID accepts a numeric id or a "group/name" path. An empty
// baseURL targets gitlab.com.
func NewGitLabTracker(baseURL, token, projectID string) (IssueTracker, error) {
	var (
		client *gitlab.Client
		err    error
	)
	if baseURL == "" {
		client, err = gitlab.NewClient(token)
	} else {
		apiURL := strings.TrimSuffix(baseURL, "/") + "/api/v4"
		client, err = gitlab.NewClient(token, gitlab.WithBaseURL(apiURL))
	}
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}
	return &gitlabTracker{client: client, projectID: projectID}, nil
}

func (t *gitlabTracker) CreateIssue(ctx context.Context, req IssueRequest) (int64, error) {
	opts := &gitlab.CreateIssueOptions{
		Title:       gitlab.Ptr(req.Title),
		Description: gitlab.Ptr(req.Description),
	}
	if len(req.Labels) > 0 {
		labels := gitlab.LabelOptions(req.Labels)
		opts.Labels = &labels
	}

	issue, _, err := t.client.Issues.CreateIssue(t.projectID, opts, gitlab.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("creating issue: %w", err)
	}

	// The create endpoint cannot open an issue closed; follow up.
	if req.Closed {
		_, _, err := t.client.Issues.UpdateIssue(t.projectID, issue.IID, &gitlab.UpdateIssueOptions{
			StateEvent: gitlab.Ptr("close"),
		}, gitlab.WithContext(ctx))
		if err != nil {
			return int64(issue.IID), fmt.Errorf("closing issue %d: %w", issue.IID, err)
		}
	}
	return int64(issue.IID), nil
}

func (t *gitlabTracker) UpdateIssue(ctx context.Context, iid int64, req IssueRequest) error {
	opts := &gitlab.UpdateIssueOptions{
		Title:       gitlab.Ptr(req.Title),
		Description: gitlab.Ptr(req.Description),
	}
	if len(req.Labels) > 0 {
		labels := gitlab.LabelOptions(req.Labels)
		opts.Labels = &labels
	}
	if req.Closed {
		opts.StateEvent = gitlab.Ptr("close")
	} else {
		opts.StateEvent = gitlab.Ptr("reopen")
	}

	_, _, err := t.client.Issues.UpdateIssue(t.projectID, int(iid), opts, gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("updating issue %d: %w", iid, err)
	}
	return nil
}
