package service

import (
	"context"
	"fmt"
	"log/slog"

	"boardsync.app/mirror/internal/model"
)

// IssueRequest is the tracker-facing shape of one projected task.
type IssueRequest struct {
	Title       string
	Description string
	Labels      []string
	Closed      bool
}

// IssueTracker is the outbound surface the projection writes through.
// CreateIssue returns the new issue's iid.
type IssueTracker interface {
	CreateIssue(ctx context.Context, req IssueRequest) (int64, error)
	UpdateIssue(ctx context.Context, iid int64, req IssueRequest) error
}

// IssueSyncService projects mirrored tasks into the downstream issue
// tracker: one issue per task, closed exactly when the task is completed
// or archived. task_issue_links remembers which issue belongs to which
// task across runs.
type IssueSyncService interface {
	SyncIssues(ctx context.Context, dryRun bool) (*model.IssueSyncSummary, error)
}

type issueSyncService struct {
	tracker  IssueTracker
	txRunner TxRunner
	logger   *slog.Logger
}

func NewIssueSyncService(tracker IssueTracker, txRunner TxRunner, logger *slog.Logger) IssueSyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &issueSyncService{
		tracker:  tracker,
		txRunner: txRunner,
		logger:   logger,
	}
}

// syncState is the mirror snapshot a sync run walks.
type syncState struct {
	tasks   []model.Task
	links   map[string]model.TaskIssueLink
	columns map[string]model.Column
	boards  map[string]model.Board
}

func (s *issueSyncService) SyncIssues(ctx context.Context, dryRun bool) (*model.IssueSyncSummary, error) {
	state, err := s.loadState(ctx)
	if err != nil {
		return nil, err
	}

	summary := &model.IssueSyncSummary{}
	for i := range state.tasks {
		task := &state.tasks[i]
		summary.Examined++

		if task.Deleted != nil && *task.Deleted {
			summary.Skipped++
			continue
		}

		req := s.buildRequest(task, state)
		link, linked := state.links[task.ID]

		if dryRun {
			action := "would create issue"
			if linked {
				action = "would update issue"
			}
			s.logger.InfoContext(ctx, action,
				"task_id", task.ID, "title", req.Title, "closed", req.Closed)
			if linked {
				summary.Updated++
			} else {
				summary.Created++
			}
			if req.Closed {
				summary.Closed++
			}
			continue
		}

		if linked {
			err = s.updateIssue(ctx, task.ID, link.IssueIID, req)
		} else {
			err = s.createIssue(ctx, task.ID, req)
		}
		if err != nil {
			s.logger.WarnContext(ctx, "issue sync failed for task",
				"task_id", task.ID, "error", err)
			summary.Errors = append(summary.Errors, model.TaskSyncError{
				TaskID: task.ID,
				Error:  err.Error(),
			})
			continue
		}

		if linked {
			summary.Updated++
		} else {
			summary.Created++
		}
		if req.Closed {
			summary.Closed++
		}
	}

	s.logger.InfoContext(ctx, "issue sync finished",
		"examined", summary.Examined,
		"created", summary.Created,
		"updated", summary.Updated,
		"closed", summary.Closed,
		"skipped", summary.Skipped,
		"errors", len(summary.Errors),
		"dry_run", dryRun)
	return summary, nil
}

func (s *issueSyncService) loadState(ctx context.Context) (*syncState, error) {
	state := &syncState{
		columns: make(map[string]model.Column),
		boards:  make(map[string]model.Board),
	}
	err := s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		tasks, err := sp.Tasks().List(ctx)
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}
		state.tasks = tasks

		links, err := sp.IssueLinks().Map(ctx)
		if err != nil {
			return fmt.Errorf("loading issue links: %w", err)
		}
		state.links = links

		columns, err := sp.Columns().List(ctx)
		if err != nil {
			return fmt.Errorf("listing columns: %w", err)
		}
		for _, c := range columns {
			state.columns[c.ID] = c
		}

		boards, err := sp.Boards().List(ctx)
		if err != nil {
			return fmt.Errorf("listing boards: %w", err)
		}
		for _, b := range boards {
			state.boards[b.ID] = b
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// buildRequest shapes one task as an issue. Labels carry the board and
// column titles; a task without a column simply gets no labels.
func (s *issueSyncService) buildRequest(task *model.Task, state *syncState) IssueRequest {
	req := IssueRequest{
		Title:  task.Title,
		Closed: task.Completed || task.Archived,
	}
	if req.Title == "" {
		req.Title = fmt.Sprintf("Task %s", task.ID)
	}
	if task.Description != nil {
		req.Description = *task.Description
	}

	if task.ColumnID != nil {
		if column, ok := state.columns[*task.ColumnID]; ok {
			if board, ok := state.boards[column.BoardID]; ok && board.Title != "" {
				req.Labels = append(req.Labels, board.Title)
			}
			if column.Title != "" {
				req.Labels = append(req.Labels, column.Title)
			}
		}
	}
	return req
}

func (s *issueSyncService) createIssue(ctx context.Context, taskID string, req IssueRequest) error {
	iid, err := s.tracker.CreateIssue(ctx, req)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "created issue", "task_id", taskID, "issue_iid", iid)
	return s.saveLink(ctx, taskID, iid)
}

func (s *issueSyncService) updateIssue(ctx context.Context, taskID string, iid int64, req IssueRequest) error {
	if err := s.tracker.UpdateIssue(ctx, iid, req); err != nil {
		return err
	}
	return s.saveLink(ctx, taskID, iid)
}

func (s *issueSyncService) saveLink(ctx context.Context, taskID string, iid int64) error {
	return s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		return sp.IssueLinks().Upsert(ctx, &model.TaskIssueLink{
			TaskID:   taskID,
			IssueIID: iid,
		})
	})
}
