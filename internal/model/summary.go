package model

import "time"

// EventError pairs a failed event with its recorded error text.
type EventError struct {
	EventID int64  `json:"event_id"`
	Error   string `json:"error"`
}

// EventDescriptor is the compact per-event line included in run summaries.
type EventDescriptor struct {
	ID         int64     `json:"id"`
	EventType  string    `json:"event_type"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	ReceivedAt time.Time `json:"received_at"`
}

// CatchupSummary is the sole feedback surface of a catch-up run. Errors==0
// means fully healthy; anything else needs operator attention and
// ErrorDetails says exactly which events failed and why. EventSummary is a
// bounded preview (first events handled), not the full list.
type CatchupSummary struct {
	Examined     int               `json:"examined"`
	Processed    int               `json:"processed"`
	FKResolved   int               `json:"fk_resolved"`
	Errors       int               `json:"errors"`
	ErrorDetails []EventError      `json:"error_details"`
	EventSummary []EventDescriptor `json:"event_summary"`
}

type ImportSummary struct {
	Projects  int `json:"projects"`
	Boards    int `json:"boards"`
	Columns   int `json:"columns"`
	Users     int `json:"users"`
	Tasks     int `json:"tasks"`
	Assignees int `json:"assignees"`
	Comments  int `json:"comments"`
	Pruned    int `json:"pruned"`
}

type IssueSyncSummary struct {
	Examined int             `json:"examined"`
	Created  int             `json:"created"`
	Updated  int             `json:"updated"`
	Closed   int             `json:"closed"`
	Skipped  int             `json:"skipped"`
	Errors   []TaskSyncError `json:"errors,omitempty"`
}

// TaskSyncError pairs a task with the reason its issue projection failed.
type TaskSyncError struct {
	TaskID string `json:"task_id"`
	Error  string `json:"error"`
}

// MirrorStats reports row counts across the mirror plus event-log health.
type MirrorStats struct {
	Projects       int64          `json:"projects"`
	Boards         int64          `json:"boards"`
	Columns        int64          `json:"columns"`
	Users          int64          `json:"users"`
	Tasks          int64          `json:"tasks"`
	Comments       int64          `json:"comments"`
	TasksCompleted int64          `json:"tasks_completed"`
	TasksActive    int64          `json:"tasks_active"`
	TasksArchived  int64          `json:"tasks_archived"`
	Events         int64          `json:"webhook_events"`
	EventsPending  int64          `json:"events_pending"`
	EventsErrored  int64          `json:"events_errored"`
	TopProjects    []ProjectTasks `json:"top_projects_by_tasks"`
}

// ProjectTasks is one row of the per-project task leaderboard.
type ProjectTasks struct {
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
	Tasks     int64  `json:"tasks"`
}
