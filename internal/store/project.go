package store

import (
	"context"

	"boardsync.app/mirror/core/db"
	"boardsync.app/mirror/internal/model"
)

type projectStore struct {
	q db.Querier
}

func newProjectStore(q db.Querier) ProjectStore {
	return &projectStore{q: q}
}

func (s *projectStore) Upsert(ctx context.Context, p *model.Project) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO projects (id, title, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description
	`, p.ID, p.Title, p.Description)
	return err
}

func (s *projectStore) Exists(ctx context.Context, id string) (bool, error) {
	return rowExists(ctx, s.q, `SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1)`, id)
}

func (s *projectStore) Delete(ctx context.Context, id string) error {
	_, err := s.q.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	return err
}
