package service

import (
	"context"
	"fmt"
	"log/slog"

	"boardsync.app/mirror/common/logger"
	"boardsync.app/mirror/internal/mapper"
	"boardsync.app/mirror/internal/model"
)

const (
	taskPageSize = 1000
	maxTaskFetch = 10000
)

type ImportOptions struct {
	ProjectID string
	// Reset drops the project's local tree before importing, cascading
	// through boards, columns, tasks and comments.
	Reset bool
	// Prune removes local rows the source no longer has, scoped to the
	// imported project. Board and column pruning is skipped when the
	// source returned nothing for them, a likely partial fetch.
	Prune bool
}

// ImportService pulls a full snapshot of a project from the source API
// into the mirror. The webhook path keeps the mirror current afterwards;
// the importer is for first fills and repairs.
type ImportService interface {
	ImportProject(ctx context.Context, opts ImportOptions) (*model.ImportSummary, error)
	// ImportAll imports every project the source lists. Options apply
	// per project; ProjectID is ignored.
	ImportAll(ctx context.Context, opts ImportOptions) (*model.ImportSummary, error)
}

type importService struct {
	api      SourceAPI
	txRunner TxRunner
	logger   *slog.Logger
}

func NewImportService(api SourceAPI, txRunner TxRunner, logger *slog.Logger) ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &importService{
		api:      api,
		txRunner: txRunner,
		logger:   logger,
	}
}

func (s *importService) ImportAll(ctx context.Context, opts ImportOptions) (*model.ImportSummary, error) {
	projects, err := s.api.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	total := &model.ImportSummary{}
	for _, data := range projects {
		projectID, _ := data["id"].(string)
		if projectID == "" {
			continue
		}
		perProject := opts
		perProject.ProjectID = projectID
		summary, err := s.ImportProject(ctx, perProject)
		if err != nil {
			return total, fmt.Errorf("importing project %s: %w", projectID, err)
		}
		addSummary(total, summary)
	}
	return total, nil
}

func (s *importService) ImportProject(ctx context.Context, opts ImportOptions) (*model.ImportSummary, error) {
	if opts.ProjectID == "" {
		return nil, fmt.Errorf("project id is required")
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "mirror.service.importer",
		ProjectID: &opts.ProjectID,
	})

	summary := &model.ImportSummary{}

	if err := s.importProjectRow(ctx, opts, summary); err != nil {
		return nil, err
	}

	boardIDs, err := s.importBoards(ctx, opts.ProjectID, summary)
	if err != nil {
		return nil, err
	}
	columnIDs, err := s.importColumns(ctx, boardIDs, summary)
	if err != nil {
		return nil, err
	}
	if err := s.importUsers(ctx, summary); err != nil {
		return nil, err
	}
	taskIDs, err := s.importTasks(ctx, columnIDs, summary)
	if err != nil {
		return nil, err
	}
	if err := s.importComments(ctx, taskIDs, summary); err != nil {
		return nil, err
	}

	if opts.Prune {
		if err := s.prune(ctx, opts.ProjectID, boardIDs, columnIDs, taskIDs, summary); err != nil {
			return nil, err
		}
	}

	s.logger.InfoContext(ctx, "project import finished",
		"boards", summary.Boards,
		"columns", summary.Columns,
		"users", summary.Users,
		"tasks", summary.Tasks,
		"comments", summary.Comments,
		"pruned", summary.Pruned)
	return summary, nil
}

func (s *importService) importProjectRow(ctx context.Context, opts ImportOptions, summary *model.ImportSummary) error {
	data, err := s.api.GetProject(ctx, opts.ProjectID)
	if err != nil {
		return fmt.Errorf("fetching project: %w", err)
	}
	project, err := mapper.ParseProject(data)
	if err != nil {
		return fmt.Errorf("parsing project: %w", err)
	}

	err = s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		if opts.Reset {
			if err := sp.Projects().Delete(ctx, opts.ProjectID); err != nil {
				return fmt.Errorf("resetting project tree: %w", err)
			}
			s.logger.InfoContext(ctx, "dropped local project tree before import")
		}
		return sp.Projects().Upsert(ctx, project)
	})
	if err != nil {
		return err
	}
	summary.Projects++
	return nil
}

func (s *importService) importBoards(ctx context.Context, projectID string, summary *model.ImportSummary) ([]string, error) {
	boards, err := s.api.ListBoards(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing boards: %w", err)
	}

	var boardIDs []string
	err = s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		for _, data := range boards {
			board, err := mapper.ParseBoard(data)
			if err != nil {
				continue
			}
			// The listing is already scoped; trust the requested project
			// over whatever the row claims.
			board.ProjectID = projectID
			if err := sp.Boards().Upsert(ctx, board); err != nil {
				return fmt.Errorf("upserting board %s: %w", board.ID, err)
			}
			boardIDs = append(boardIDs, board.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	summary.Boards = len(boardIDs)
	return boardIDs, nil
}

func (s *importService) importColumns(ctx context.Context, boardIDs []string, summary *model.ImportSummary) ([]string, error) {
	var columnIDs []string
	for _, boardID := range boardIDs {
		columns, err := s.api.ListColumns(ctx, boardID)
		if err != nil {
			return nil, fmt.Errorf("listing columns for board %s: %w", boardID, err)
		}
		err = s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
			for _, data := range columns {
				column, err := mapper.ParseColumn(data)
				if err != nil {
					continue
				}
				column.BoardID = boardID
				if err := sp.Columns().Upsert(ctx, column); err != nil {
					return fmt.Errorf("upserting column %s: %w", column.ID, err)
				}
				columnIDs = append(columnIDs, column.ID)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	summary.Columns = len(columnIDs)
	return columnIDs, nil
}

// importUsers mirrors the whole company user list so task assignees and
// comment authors always have a row to reference.
func (s *importService) importUsers(ctx context.Context, summary *model.ImportSummary) error {
	users, err := s.api.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}
	return s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		for _, data := range users {
			user, err := mapper.ParseUser(data)
			if err != nil {
				continue
			}
			if err := sp.Users().Upsert(ctx, user); err != nil {
				return fmt.Errorf("upserting user %s: %w", user.ID, err)
			}
			summary.Users++
		}
		return nil
	})
}

func (s *importService) importTasks(ctx context.Context, columnIDs []string, summary *model.ImportSummary) ([]string, error) {
	pages, err := s.listProjectTasks(ctx, columnIDs)
	if err != nil {
		return nil, err
	}

	var taskIDs []string
	err = s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		for _, data := range pages {
			task, err := mapper.ParseTask(data)
			if err != nil {
				continue
			}
			if err := sp.Tasks().Upsert(ctx, task); err != nil {
				return fmt.Errorf("upserting task %s: %w", task.ID, err)
			}
			taskIDs = append(taskIDs, task.ID)
		}

		// Listings often omit assignees; a per-task detail fetch is the
		// reliable source. Fall back to the listing row when it fails.
		for _, data := range pages {
			task, err := mapper.ParseTask(data)
			if err != nil {
				continue
			}
			assigned, _ := mapper.AssignedUserIDs(data)
			if detail, err := s.api.GetTask(ctx, task.ID); err == nil {
				if ids, carried := mapper.AssignedUserIDs(detail); carried && len(ids) > 0 {
					assigned = ids
				}
			} else {
				s.logger.DebugContext(ctx, "task detail fetch failed, using listing assignees",
					"task_id", task.ID, "error", err)
			}
			if err := sp.Tasks().ReplaceAssignees(ctx, task.ID, assigned); err != nil {
				return fmt.Errorf("replacing assignees for task %s: %w", task.ID, err)
			}
			summary.Assignees += len(assigned)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	summary.Tasks = len(taskIDs)
	return taskIDs, nil
}

// listProjectTasks pages through the company-wide task listing and keeps
// the tasks whose column belongs to the project. The API has no
// project-scoped task endpoint.
func (s *importService) listProjectTasks(ctx context.Context, columnIDs []string) ([]map[string]any, error) {
	allowed := make(map[string]struct{}, len(columnIDs))
	for _, id := range columnIDs {
		allowed[id] = struct{}{}
	}

	var results []map[string]any
	offset := 0
	for len(results) < maxTaskFetch {
		limit := taskPageSize
		if remaining := maxTaskFetch - len(results); remaining < limit {
			limit = remaining
		}
		batch, err := s.api.ListTasks(ctx, limit, offset, false)
		if err != nil {
			return nil, fmt.Errorf("listing tasks (offset %d): %w", offset, err)
		}
		if len(batch) == 0 {
			break
		}
		for _, task := range batch {
			columnID, _ := task["columnId"].(string)
			if _, ok := allowed[columnID]; ok {
				results = append(results, task)
			}
		}
		if len(batch) < limit {
			break
		}
		offset += len(batch)
	}
	return results, nil
}

// importComments walks each task's chat; chat ids equal task ids. A chat
// that cannot be read is skipped, comments are best effort.
func (s *importService) importComments(ctx context.Context, taskIDs []string, summary *model.ImportSummary) error {
	return s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		for _, taskID := range taskIDs {
			messages, err := s.api.ListChatMessages(ctx, taskID)
			if err != nil {
				s.logger.DebugContext(ctx, "listing chat messages failed",
					"task_id", taskID, "error", err)
				continue
			}
			for _, data := range messages {
				comment, err := mapper.ParseChatMessage(taskID, data)
				if err != nil {
					continue
				}
				if err := sp.Comments().Upsert(ctx, comment); err != nil {
					return fmt.Errorf("upserting comment %s: %w", comment.ID, err)
				}
				summary.Comments++
			}
		}
		return nil
	})
}

func (s *importService) prune(ctx context.Context, projectID string, boardIDs, columnIDs, taskIDs []string, summary *model.ImportSummary) error {
	return s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		if len(boardIDs) > 0 {
			n, err := sp.Boards().DeleteStale(ctx, projectID, boardIDs)
			if err != nil {
				return fmt.Errorf("pruning boards: %w", err)
			}
			summary.Pruned += int(n)
		}
		if len(columnIDs) > 0 {
			n, err := sp.Columns().DeleteStale(ctx, projectID, columnIDs)
			if err != nil {
				return fmt.Errorf("pruning columns: %w", err)
			}
			summary.Pruned += int(n)
		}
		n, err := sp.Tasks().DeleteStale(ctx, projectID, taskIDs)
		if err != nil {
			return fmt.Errorf("pruning tasks: %w", err)
		}
		summary.Pruned += int(n)
		return nil
	})
}

func addSummary(total, part *model.ImportSummary) {
	total.Projects += part.Projects
	total.Boards += part.Boards
	total.Columns += part.Columns
	total.Users += part.Users
	total.Tasks += part.Tasks
	total.Assignees += part.Assignees
	total.Comments += part.Comments
	total.Pruned += part.Pruned
}
