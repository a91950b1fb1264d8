package store

import (
	"context"

	"boardsync.app/mirror/core/db"
	"boardsync.app/mirror/internal/domain"
	"boardsync.app/mirror/internal/model"
)

type boardStore struct {
	q db.Querier
}

func newBoardStore(q db.Querier) BoardStore {
	return &boardStore{q: q}
}

func (s *boardStore) Upsert(ctx context.Context, b *model.Board) error {
	ok, err := rowExists(ctx, s.q, `SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1)`, b.ProjectID)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.MissingDependencyError{Kind: domain.KindProject, ID: b.ProjectID}
	}

	_, err = s.q.Exec(ctx, `
		INSERT INTO boards (id, title, project_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			project_id = EXCLUDED.project_id
	`, b.ID, b.Title, b.ProjectID)
	return missingDependency(err, map[string]string{"boards_project_id_fkey": b.ProjectID})
}

func (s *boardStore) Exists(ctx context.Context, id string) (bool, error) {
	return rowExists(ctx, s.q, `SELECT EXISTS (SELECT 1 FROM boards WHERE id = $1)`, id)
}

func (s *boardStore) List(ctx context.Context) ([]model.Board, error) {
	rows, err := s.q.Query(ctx, `SELECT id, title, project_id FROM boards ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var boards []model.Board
	for rows.Next() {
		var b model.Board
		if err := rows.Scan(&b.ID, &b.Title, &b.ProjectID); err != nil {
			return nil, err
		}
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

func (s *boardStore) DeleteStale(ctx context.Context, projectID string, keep []string) (int64, error) {
	tag, err := s.q.Exec(ctx, `
		DELETE FROM boards
		WHERE project_id = $1 AND NOT (id = ANY($2))
	`, projectID, keep)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
