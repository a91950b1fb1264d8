package store

import (
	"context"

	"boardsync.app/mirror/core/db"
	"boardsync.app/mirror/internal/model"
)

type stickerStore struct {
	q db.Querier
}

func newStickerStore(q db.Querier) StickerStore {
	return &stickerStore{q: q}
}

// UpsertSprint writes the sticker row and replaces its full state set.
// Source payloads always carry the complete state list, so partial
// merges would only preserve states the source has already dropped.
func (s *stickerStore) UpsertSprint(ctx context.Context, st *model.SprintSticker) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO sprint_stickers (id, name, deleted)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			deleted = EXCLUDED.deleted
	`, st.ID, st.Name, st.Deleted)
	if err != nil {
		return err
	}

	if _, err := s.q.Exec(ctx, `DELETE FROM sprint_states WHERE sticker_id = $1`, st.ID); err != nil {
		return err
	}
	for _, state := range st.States {
		_, err := s.q.Exec(ctx, `
			INSERT INTO sprint_states (id, sticker_id, name, begin_at, end_at)
			VALUES ($1, $2, $3, $4, $5)
		`, state.ID, st.ID, state.Name, state.Begin, state.End)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *stickerStore) UpsertString(ctx context.Context, st *model.StringSticker) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO string_stickers (id, name, deleted)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			deleted = EXCLUDED.deleted
	`, st.ID, st.Name, st.Deleted)
	if err != nil {
		return err
	}

	if _, err := s.q.Exec(ctx, `DELETE FROM string_states WHERE sticker_id = $1`, st.ID); err != nil {
		return err
	}
	for _, state := range st.States {
		_, err := s.q.Exec(ctx, `
			INSERT INTO string_states (id, sticker_id, name)
			VALUES ($1, $2, $3)
		`, state.ID, st.ID, state.Name)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *stickerStore) Exists(ctx context.Context, id string) (bool, error) {
	return rowExists(ctx, s.q, `
		SELECT EXISTS (
			SELECT 1 FROM sprint_stickers WHERE id = $1
			UNION ALL
			SELECT 1 FROM string_stickers WHERE id = $1
		)
	`, id)
}
