package model

import (
	"encoding/json"
	"time"
)

// Task is the central mirrored entity. The three *At timestamps are
// write-once: webhook deltas are partial, so a later payload that omits
// createdAt must not clobber a creation time we already know.
type Task struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  *string         `json:"description,omitempty"`
	ColumnID     *string         `json:"column_id,omitempty"`
	Completed    bool            `json:"completed"`
	Archived     bool            `json:"archived"`
	Deleted      *bool           `json:"deleted,omitempty"`
	Deadline     json.RawMessage `json:"deadline,omitempty"`
	TimeTracking json.RawMessage `json:"time_tracking,omitempty"`
	Stickers     json.RawMessage `json:"stickers,omitempty"`
	Checklists   json.RawMessage `json:"checklists,omitempty"`
	CreatedAt    *time.Time      `json:"created_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	ArchivedAt   *time.Time      `json:"archived_at,omitempty"`

	// Assignees is populated when the source payload carried a user list.
	// nil means the payload said nothing about assignees; an empty slice
	// means it explicitly listed none.
	Assignees []string `json:"assignees,omitempty"`
}

type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	AuthorID  *string   `json:"author_id,omitempty"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// TaskIssueLink binds a mirrored task to the issue it is projected to in
// the downstream tracker.
type TaskIssueLink struct {
	TaskID   string    `json:"task_id"`
	IssueIID int64     `json:"issue_iid"`
	SyncedAt time.Time `json:"synced_at"`
}
