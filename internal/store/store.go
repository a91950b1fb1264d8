package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"boardsync.app/mirror/core/db"
	"boardsync.app/mirror/internal/domain"
)

const codeForeignKeyViolation = "23503"

// fkKinds maps foreign key constraint names to the entity kind the
// violated reference points at. Upserts pre-check their references, so
// this only fires on races between the check and the write.
var fkKinds = map[string]domain.EntityKind{
	"boards_project_id_fkey":        domain.KindProject,
	"columns_board_id_fkey":         domain.KindBoard,
	"tasks_column_id_fkey":          domain.KindColumn,
	"task_assignees_task_id_fkey":   domain.KindTask,
	"task_assignees_user_id_fkey":   domain.KindUser,
	"comments_task_id_fkey":         domain.KindTask,
	"comments_author_id_fkey":       domain.KindUser,
	"sprint_states_sticker_id_fkey": domain.KindSticker,
	"string_states_sticker_id_fkey": domain.KindSticker,
	"task_issue_links_task_id_fkey": domain.KindTask,
}

// missingDependency converts a foreign key violation into the typed
// error the catch-up resolver acts on. refs maps constraint name to the
// id that was being written through that reference. Any other error
// passes through unchanged.
func missingDependency(err error, refs map[string]string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeForeignKeyViolation {
		return err
	}
	kind, ok := fkKinds[pgErr.ConstraintName]
	if !ok {
		return err
	}
	return &domain.MissingDependencyError{Kind: kind, ID: refs[pgErr.ConstraintName]}
}

func rowExists(ctx context.Context, q db.Querier, query string, id string) (bool, error) {
	var exists bool
	if err := q.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
