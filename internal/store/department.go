package store

import (
	"context"

	"boardsync.app/mirror/core/db"
	"boardsync.app/mirror/internal/model"
)

type departmentStore struct {
	q db.Querier
}

func newDepartmentStore(q db.Querier) DepartmentStore {
	return &departmentStore{q: q}
}

func (s *departmentStore) Upsert(ctx context.Context, d *model.Department) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO departments (id, name, parent_id, deleted)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			parent_id = EXCLUDED.parent_id,
			deleted = EXCLUDED.deleted
	`, d.ID, d.Name, d.ParentID, d.Deleted)
	return err
}
