package domain

// EntityKind identifies one of the mirrored entity types. Webhook event
// types carry the kind as a prefix ("task-created" -> task); the resolver
// and the upsert dispatch are both keyed on it.
type EntityKind string

const (
	KindTask       EntityKind = "task"
	KindProject    EntityKind = "project"
	KindBoard      EntityKind = "board"
	KindColumn     EntityKind = "column"
	KindUser       EntityKind = "user"
	KindSticker    EntityKind = "sticker"
	KindDepartment EntityKind = "department"
	KindComment    EntityKind = "comment"

	// KindUnknown marks event types with no local model. Events of this
	// kind are skipped but still count as handled.
	KindUnknown EntityKind = "unknown"
)
