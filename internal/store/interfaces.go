package store

import (
	"context"
	"errors"
	"time"

	"boardsync.app/mirror/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// EventStore is the append-only webhook event log. Rows are never
// updated after insert except for the processing bookkeeping columns.
type EventStore interface {
	// Append inserts the event and reports whether a row was created.
	// When the event carries an external id that is already present the
	// stored row is returned unchanged and created is false.
	Append(ctx context.Context, event *model.WebhookEvent) (*model.WebhookEvent, bool, error)
	GetByID(ctx context.Context, id int64) (*model.WebhookEvent, error)
	// ListUnprocessed returns pending events ordered by received_at then
	// id, so replay preserves arrival order. A nil since means all.
	ListUnprocessed(ctx context.Context, since *time.Time) ([]model.WebhookEvent, error)
	MarkProcessed(ctx context.Context, id int64) error
	// MarkFailed records the error and increments retry_count.
	MarkFailed(ctx context.Context, id int64, errMsg string) error
	CountUnprocessed(ctx context.Context) (int64, error)
}

// ProjectStore defines the contract for project rows
type ProjectStore interface {
	Upsert(ctx context.Context, p *model.Project) error
	Exists(ctx context.Context, id string) (bool, error)
	// Delete removes the project and, via cascade, its whole tree.
	Delete(ctx context.Context, id string) error
}

// BoardStore defines the contract for board rows
type BoardStore interface {
	Upsert(ctx context.Context, b *model.Board) error
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]model.Board, error)
	// DeleteStale removes the project's boards whose ids are not in keep.
	DeleteStale(ctx context.Context, projectID string, keep []string) (int64, error)
}

// ColumnStore defines the contract for column rows
type ColumnStore interface {
	Upsert(ctx context.Context, c *model.Column) error
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]model.Column, error)
	DeleteStale(ctx context.Context, projectID string, keep []string) (int64, error)
}

// UserStore defines the contract for user rows
type UserStore interface {
	Upsert(ctx context.Context, u *model.User) error
	Exists(ctx context.Context, id string) (bool, error)
}

// TaskStore defines the contract for task rows and their assignee set
type TaskStore interface {
	Upsert(ctx context.Context, t *model.Task) error
	// ReplaceAssignees swaps the full assignee set. Callers only invoke
	// it when the incoming payload actually carried one.
	ReplaceAssignees(ctx context.Context, taskID string, userIDs []string) error
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]model.Task, error)
	DeleteStale(ctx context.Context, projectID string, keep []string) (int64, error)
}

// CommentStore defines the contract for comment rows
type CommentStore interface {
	Upsert(ctx context.Context, c *model.Comment) error
}

// StickerStore covers both sticker flavours. An id lives in exactly one
// of the two table pairs; Exists answers for either.
type StickerStore interface {
	UpsertSprint(ctx context.Context, s *model.SprintSticker) error
	UpsertString(ctx context.Context, s *model.StringSticker) error
	Exists(ctx context.Context, id string) (bool, error)
}

// DepartmentStore defines the contract for department rows
type DepartmentStore interface {
	Upsert(ctx context.Context, d *model.Department) error
}

// IssueLinkStore tracks which mirrored task maps to which tracker issue
type IssueLinkStore interface {
	Map(ctx context.Context) (map[string]model.TaskIssueLink, error)
	Upsert(ctx context.Context, link *model.TaskIssueLink) error
}

// StatsStore aggregates mirror health numbers in one round trip set
type StatsStore interface {
	Collect(ctx context.Context) (*model.MirrorStats, error)
}
