package store

import (
	"context"

	"boardsync.app/mirror/core/db"
	"boardsync.app/mirror/internal/model"
)

type userStore struct {
	q db.Querier
}

func newUserStore(q db.Querier) UserStore {
	return &userStore{q: q}
}

// Upsert keeps existing profile fields when the incoming payload does
// not carry them. Webhook payloads for users are frequently partial.
func (s *userStore) Upsert(ctx context.Context, u *model.User) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO users (id, name, email, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = COALESCE(EXCLUDED.name, users.name),
			email = COALESCE(EXCLUDED.email, users.email),
			role = COALESCE(EXCLUDED.role, users.role)
	`, u.ID, u.Name, u.Email, u.Role)
	return err
}

func (s *userStore) Exists(ctx context.Context, id string) (bool, error) {
	return rowExists(ctx, s.q, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id)
}
