package service_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"boardsync.app/mirror/internal/model"
	"boardsync.app/mirror/internal/service"
)

var _ = Describe("IssueSyncService", func() {
	var (
		ctx      context.Context
		tracker  *mockIssueTracker
		provider *mockStoreProvider
		svc      service.IssueSyncService
	)

	boolPtr := func(b bool) *bool { return &b }
	strPtr := func(s string) *string { return &s }

	// wireMirror loads one board/column pair so label building has
	// something to chew on.
	wireMirror := func(tasks ...model.Task) {
		provider.tasks.listFn = func(ctx context.Context) ([]model.Task, error) {
			return tasks, nil
		}
		provider.boards.listFn = func(ctx context.Context) ([]model.Board, error) {
			return []model.Board{{ID: "b-1", Title: "Main Board", ProjectID: "p-1"}}, nil
		}
		provider.columns.listFn = func(ctx context.Context) ([]model.Column, error) {
			return []model.Column{{ID: "c-1", Title: "Doing", BoardID: "b-1"}}, nil
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		tracker = &mockIssueTracker{}
		provider = newMockStoreProvider()
		svc = service.NewIssueSyncService(tracker, txRunnerFor(provider), nil)
	})

	It("creates an issue for an unlinked task and remembers the link", func() {
		wireMirror(model.Task{ID: "t-1", Title: "Fix the roof", Description: strPtr("leaky"), ColumnID: strPtr("c-1")})
		var created service.IssueRequest
		tracker.createFn = func(ctx context.Context, req service.IssueRequest) (int64, error) {
			created = req
			return 7, nil
		}
		var link *model.TaskIssueLink
		provider.issueLinks.upsertFn = func(ctx context.Context, l *model.TaskIssueLink) error {
			link = l
			return nil
		}

		summary, err := svc.SyncIssues(ctx, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Examined).To(Equal(1))
		Expect(summary.Created).To(Equal(1))
		Expect(summary.Updated).To(Equal(0))
		Expect(summary.Closed).To(Equal(0))

		Expect(created.Title).To(Equal("Fix the roof"))
		Expect(created.Description).To(Equal("leaky"))
		Expect(created.Labels).To(Equal([]string{"Main Board", "Doing"}))
		Expect(created.Closed).To(BeFalse())

		Expect(link).NotTo(BeNil())
		Expect(link.TaskID).To(Equal("t-1"))
		Expect(link.IssueIID).To(Equal(int64(7)))
	})

	It("updates the issue a task is already linked to", func() {
		wireMirror(model.Task{ID: "t-1", Title: "Fix the roof"})
		provider.issueLinks.mapFn = func(ctx context.Context) (map[string]model.TaskIssueLink, error) {
			return map[string]model.TaskIssueLink{
				"t-1": {TaskID: "t-1", IssueIID: 7, SyncedAt: time.Now()},
			}, nil
		}
		var updatedIID int64
		tracker.updateFn = func(ctx context.Context, iid int64, req service.IssueRequest) error {
			updatedIID = iid
			return nil
		}

		summary, err := svc.SyncIssues(ctx, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Created).To(Equal(0))
		Expect(summary.Updated).To(Equal(1))
		Expect(updatedIID).To(Equal(int64(7)))
		Expect(tracker.createCalls).To(Equal(0))
		Expect(provider.issueLinks.upsertCalls).To(Equal(1))
	})

	It("closes issues for completed and archived tasks", func() {
		wireMirror(
			model.Task{ID: "t-done", Title: "Done", Completed: true},
			model.Task{ID: "t-archived", Title: "Old", Archived: true},
			model.Task{ID: "t-open", Title: "Open"},
		)
		var closed []bool
		tracker.createFn = func(ctx context.Context, req service.IssueRequest) (int64, error) {
			closed = append(closed, req.Closed)
			return int64(len(closed)), nil
		}

		summary, err := svc.SyncIssues(ctx, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Created).To(Equal(3))
		Expect(summary.Closed).To(Equal(2))
		Expect(closed).To(Equal([]bool{true, true, false}))
	})

	It("skips deleted tasks", func() {
		wireMirror(model.Task{ID: "t-gone", Title: "Gone", Deleted: boolPtr(true)})

		summary, err := svc.SyncIssues(ctx, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Examined).To(Equal(1))
		Expect(summary.Skipped).To(Equal(1))
		Expect(tracker.createCalls).To(Equal(0))
	})

	It("titles untitled tasks by their id", func() {
		wireMirror(model.Task{ID: "t-1"})
		var created service.IssueRequest
		tracker.createFn = func(ctx context.Context, req service.IssueRequest) (int64, error) {
			created = req
			return 1, nil
		}

		_, err := svc.SyncIssues(ctx, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(created.Title).To(Equal("Task t-1"))
	})

	It("omits labels when the column is not mirrored", func() {
		wireMirror(model.Task{ID: "t-1", Title: "Floating", ColumnID: strPtr("c-unknown")})
		var created service.IssueRequest
		tracker.createFn = func(ctx context.Context, req service.IssueRequest) (int64, error) {
			created = req
			return 1, nil
		}

		_, err := svc.SyncIssues(ctx, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(created.Labels).To(BeEmpty())
	})

	It("records per-task failures and keeps going", func() {
		wireMirror(
			model.Task{ID: "t-bad", Title: "Bad"},
			model.Task{ID: "t-good", Title: "Good"},
		)
		tracker.createFn = func(ctx context.Context, req service.IssueRequest) (int64, error) {
			if req.Title == "Bad" {
				return 0, errors.New("rate limited")
			}
			return 2, nil
		}

		summary, err := svc.SyncIssues(ctx, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Created).To(Equal(1))
		Expect(summary.Errors).To(HaveLen(1))
		Expect(summary.Errors[0].TaskID).To(Equal("t-bad"))
		Expect(summary.Errors[0].Error).To(ContainSubstring("rate limited"))
	})

	It("writes nothing on a dry run but predicts the outcome", func() {
		wireMirror(
			model.Task{ID: "t-new", Title: "New", Completed: true},
			model.Task{ID: "t-linked", Title: "Linked"},
		)
		provider.issueLinks.mapFn = func(ctx context.Context) (map[string]model.TaskIssueLink, error) {
			return map[string]model.TaskIssueLink{
				"t-linked": {TaskID: "t-linked", IssueIID: 3},
			}, nil
		}

		summary, err := svc.SyncIssues(ctx, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Created).To(Equal(1))
		Expect(summary.Updated).To(Equal(1))
		Expect(summary.Closed).To(Equal(1))
		Expect(tracker.createCalls).To(Equal(0))
		Expect(tracker.updateCalls).To(Equal(0))
		Expect(provider.issueLinks.upsertCalls).To(Equal(0))
	})

	It("fails when the mirror state cannot be loaded", func() {
		provider.tasks.listFn = func(ctx context.Context) ([]model.Task, error) {
			return nil, errors.New("db down")
		}

		_, err := svc.SyncIssues(ctx, false)
		Expect(err).To(MatchError(ContainSubstring("listing tasks")))
	})
})
