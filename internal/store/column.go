package store

import (
	"context"

	"boardsync.app/mirror/core/db"
	"boardsync.app/mirror/internal/domain"
	"boardsync.app/mirror/internal/model"
)

type columnStore struct {
	q db.Querier
}

func newColumnStore(q db.Querier) ColumnStore {
	return &columnStore{q: q}
}

func (s *columnStore) Upsert(ctx context.Context, c *model.Column) error {
	ok, err := rowExists(ctx, s.q, `SELECT EXISTS (SELECT 1 FROM boards WHERE id = $1)`, c.BoardID)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.MissingDependencyError{Kind: domain.KindBoard, ID: c.BoardID}
	}

	_, err = s.q.Exec(ctx, `
		INSERT INTO columns (id, title, color, board_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			color = EXCLUDED.color,
			board_id = EXCLUDED.board_id
	`, c.ID, c.Title, c.Color, c.BoardID)
	return missingDependency(err, map[string]string{"columns_board_id_fkey": c.BoardID})
}

func (s *columnStore) Exists(ctx context.Context, id string) (bool, error) {
	return rowExists(ctx, s.q, `SELECT EXISTS (SELECT 1 FROM columns WHERE id = $1)`, id)
}

func (s *columnStore) List(ctx context.Context) ([]model.Column, error) {
	rows, err := s.q.Query(ctx, `SELECT id, title, color, board_id FROM columns ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []model.Column
	for rows.Next() {
		var c model.Column
		if err := rows.Scan(&c.ID, &c.Title, &c.Color, &c.BoardID); err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

func (s *columnStore) DeleteStale(ctx context.Context, projectID string, keep []string) (int64, error) {
	tag, err := s.q.Exec(ctx, `
		DELETE FROM columns
		WHERE board_id IN (SELECT id FROM boards WHERE project_id = $1)
			AND NOT (id = ANY($2))
	`, projectID, keep)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
