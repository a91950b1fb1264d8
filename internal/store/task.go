package store

import (
	"context"

	"boardsync.app/mirror/core/db"
	"boardsync.app/mirror/internal/domain"
	"boardsync.app/mirror/internal/model"
)

type taskStore struct {
	q db.Querier
}

func newTaskStore(q db.Querier) TaskStore {
	return &taskStore{q: q}
}

// Upsert writes every mapped field except the lifecycle timestamps,
// which are write-once: the first event to carry one wins and later
// events cannot move it.
func (s *taskStore) Upsert(ctx context.Context, t *model.Task) error {
	var columnRef string
	if t.ColumnID != nil {
		columnRef = *t.ColumnID
		ok, err := rowExists(ctx, s.q, `SELECT EXISTS (SELECT 1 FROM columns WHERE id = $1)`, columnRef)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.MissingDependencyError{Kind: domain.KindColumn, ID: columnRef}
		}
	}

	_, err := s.q.Exec(ctx, `
		INSERT INTO tasks (id, title, description, column_id, completed, archived, deleted,
			deadline, time_tracking, stickers, checklists, created_at, completed_at, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			column_id = EXCLUDED.column_id,
			completed = EXCLUDED.completed,
			archived = EXCLUDED.archived,
			deleted = EXCLUDED.deleted,
			deadline = EXCLUDED.deadline,
			time_tracking = EXCLUDED.time_tracking,
			stickers = EXCLUDED.stickers,
			checklists = EXCLUDED.checklists,
			created_at = COALESCE(tasks.created_at, EXCLUDED.created_at),
			completed_at = COALESCE(tasks.completed_at, EXCLUDED.completed_at),
			archived_at = COALESCE(tasks.archived_at, EXCLUDED.archived_at)
	`, t.ID, t.Title, t.Description, t.ColumnID, t.Completed, t.Archived, t.Deleted,
		t.Deadline, t.TimeTracking, t.Stickers, t.Checklists,
		t.CreatedAt, t.CompletedAt, t.ArchivedAt)
	return missingDependency(err, map[string]string{"tasks_column_id_fkey": columnRef})
}

func (s *taskStore) ReplaceAssignees(ctx context.Context, taskID string, userIDs []string) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM task_assignees WHERE task_id = $1`, taskID); err != nil {
		return err
	}
	for _, userID := range userIDs {
		ok, err := rowExists(ctx, s.q, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.MissingDependencyError{Kind: domain.KindUser, ID: userID}
		}
		_, err = s.q.Exec(ctx, `
			INSERT INTO task_assignees (task_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, taskID, userID)
		if err != nil {
			return missingDependency(err, map[string]string{
				"task_assignees_task_id_fkey": taskID,
				"task_assignees_user_id_fkey": userID,
			})
		}
	}
	return nil
}

func (s *taskStore) Exists(ctx context.Context, id string) (bool, error) {
	return rowExists(ctx, s.q, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, id)
}

func (s *taskStore) List(ctx context.Context) ([]model.Task, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, title, description, column_id, completed, archived, deleted,
			deadline, time_tracking, stickers, checklists, created_at, completed_at, archived_at
		FROM tasks
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Task
	for rows.Next() {
		var t model.Task
		err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.ColumnID, &t.Completed,
			&t.Archived, &t.Deleted, &t.Deadline, &t.TimeTracking, &t.Stickers,
			&t.Checklists, &t.CreatedAt, &t.CompletedAt, &t.ArchivedAt)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *taskStore) DeleteStale(ctx context.Context, projectID string, keep []string) (int64, error) {
	tag, err := s.q.Exec(ctx, `
		DELETE FROM tasks
		WHERE column_id IN (
			SELECT c.id FROM columns c
			JOIN boards b ON c.board_id = b.id
			WHERE b.project_id = $1
		) AND NOT (id = ANY($2))
	`, projectID, keep)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
