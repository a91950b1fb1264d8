package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Migration is one versioned schema step. Steps run in order inside their
// own transaction and are recorded in schema_version, so startup is
// idempotent.
type Migration struct {
	Version int
	Name    string
	Up      func(ctx context.Context, tx pgx.Tx) error
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "sticker_tables",
		Up:      migrationV2,
	},
	{
		Version: 3,
		Name:    "departments",
		Up:      migrationV3,
	},
	{
		Version: 4,
		Name:    "task_issue_links",
		Up:      migrationV4,
	},
}

// migrationLockID keys the advisory lock serializing concurrent
// migrators (server and worker both migrate on boot).
const migrationLockID = 0x6d6972726f72

// Migrate applies all pending migrations.
func (db *DB) Migrate(ctx context.Context) error {
	// Advisory locks are session scoped, so everything runs on one
	// dedicated connection.
	conn, err := db.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring migration connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, migrationLockID); err != nil {
		return fmt.Errorf("acquiring migration lock: %w", err)
	}
	defer conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, migrationLockID) //nolint:errcheck

	_, err = conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var current int
	if err := conn.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := conn.Begin(ctx)
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", m.Version, err)
		}

		if err := m.Up(ctx, tx); err != nil {
			tx.Rollback(ctx) //nolint:errcheck
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}

		if _, err := tx.Exec(ctx, `INSERT INTO schema_version (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
			tx.Rollback(ctx) //nolint:errcheck
			return fmt.Errorf("recording migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("committing migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func execAll(ctx context.Context, tx pgx.Tx, stmts ...string) error {
	for _, s := range stmts {
		if _, err := tx.Exec(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// migrationV1 creates the event log and the core mirror tables. Entity ids
// are the source system's opaque string ids; the event log id is assigned
// by the application (time-ordered) so insertion order survives the id
// tiebreak on replay.
func migrationV1(ctx context.Context, tx pgx.Tx) error {
	return execAll(ctx, tx,
		`CREATE TABLE webhook_events (
			id BIGINT PRIMARY KEY,
			source TEXT NOT NULL,
			event_type TEXT NOT NULL DEFAULT '',
			entity_type TEXT,
			entity_id TEXT,
			event_external_id TEXT,
			event_timestamp TIMESTAMPTZ,
			received_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			processed BOOLEAN NOT NULL DEFAULT FALSE,
			processed_at TIMESTAMPTZ,
			retry_count INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			payload JSONB NOT NULL
		)`,
		`CREATE UNIQUE INDEX idx_webhook_events_external_id
			ON webhook_events (event_external_id) WHERE event_external_id IS NOT NULL`,
		`CREATE INDEX idx_webhook_events_pending
			ON webhook_events (received_at, id) WHERE NOT processed`,

		`CREATE TABLE projects (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			description TEXT
		)`,
		`CREATE TABLE boards (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE columns (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			color INTEGER,
			board_id TEXT NOT NULL REFERENCES boards(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE users (
			id TEXT PRIMARY KEY,
			name TEXT,
			email TEXT,
			role TEXT
		)`,
		`CREATE TABLE tasks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			description TEXT,
			column_id TEXT REFERENCES columns(id) ON DELETE SET NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			archived BOOLEAN NOT NULL DEFAULT FALSE,
			deleted BOOLEAN,
			deadline JSONB,
			time_tracking JSONB,
			stickers JSONB,
			checklists JSONB,
			created_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ,
			archived_at TIMESTAMPTZ
		)`,
		`CREATE INDEX idx_tasks_column ON tasks (column_id)`,
		`CREATE TABLE task_assignees (
			task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			PRIMARY KEY (task_id, user_id)
		)`,
		`CREATE TABLE comments (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			author_id TEXT REFERENCES users(id) ON DELETE SET NULL,
			text TEXT NOT NULL DEFAULT '',
			ts TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX idx_comments_task ON comments (task_id)`,
	)
}

// migrationV2 adds the two sticker flavours. "end" is reserved in
// Postgres, hence begin_at/end_at.
func migrationV2(ctx context.Context, tx pgx.Tx) error {
	return execAll(ctx, tx,
		`CREATE TABLE sprint_stickers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			deleted BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE sprint_states (
			id TEXT PRIMARY KEY,
			sticker_id TEXT NOT NULL REFERENCES sprint_stickers(id) ON DELETE CASCADE,
			name TEXT NOT NULL DEFAULT '',
			begin_at TIMESTAMPTZ,
			end_at TIMESTAMPTZ
		)`,
		`CREATE INDEX idx_sprint_states_sticker ON sprint_states (sticker_id)`,
		`CREATE TABLE string_stickers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			deleted BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE string_states (
			id TEXT PRIMARY KEY,
			sticker_id TEXT NOT NULL REFERENCES string_stickers(id) ON DELETE CASCADE,
			name TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX idx_string_states_sticker ON string_states (sticker_id)`,
	)
}

// migrationV3 adds departments. parent_id is not a foreign key because
// department events arrive in arbitrary order.
func migrationV3(ctx context.Context, tx pgx.Tx) error {
	return execAll(ctx, tx,
		`CREATE TABLE departments (
			id TEXT PRIMARY KEY,
			name TEXT,
			parent_id TEXT,
			deleted BOOLEAN NOT NULL DEFAULT FALSE
		)`,
	)
}

// migrationV4 adds the projection link table for the downstream issue
// tracker.
func migrationV4(ctx context.Context, tx pgx.Tx) error {
	return execAll(ctx, tx,
		`CREATE TABLE task_issue_links (
			task_id TEXT PRIMARY KEY REFERENCES tasks(id) ON DELETE CASCADE,
			issue_iid BIGINT NOT NULL,
			synced_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	)
}
