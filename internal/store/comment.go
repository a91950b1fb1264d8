package store

import (
	"context"

	"boardsync.app/mirror/core/db"
	"boardsync.app/mirror/internal/domain"
	"boardsync.app/mirror/internal/model"
)

type commentStore struct {
	q db.Querier
}

func newCommentStore(q db.Querier) CommentStore {
	return &commentStore{q: q}
}

func (s *commentStore) Upsert(ctx context.Context, c *model.Comment) error {
	ok, err := rowExists(ctx, s.q, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, c.TaskID)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.MissingDependencyError{Kind: domain.KindTask, ID: c.TaskID}
	}

	var authorRef string
	if c.AuthorID != nil {
		authorRef = *c.AuthorID
		ok, err := rowExists(ctx, s.q, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, authorRef)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.MissingDependencyError{Kind: domain.KindUser, ID: authorRef}
		}
	}

	_, err = s.q.Exec(ctx, `
		INSERT INTO comments (id, task_id, author_id, text, ts)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			task_id = EXCLUDED.task_id,
			author_id = EXCLUDED.author_id,
			text = EXCLUDED.text,
			ts = EXCLUDED.ts
	`, c.ID, c.TaskID, c.AuthorID, c.Text, c.Timestamp)
	return missingDependency(err, map[string]string{
		"comments_task_id_fkey":   c.TaskID,
		"comments_author_id_fkey": authorRef,
	})
}
