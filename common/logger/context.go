package logger

import (
	"context"
	"log/slog"
)

type fieldsKey struct{}

// LogFields carries the structured identifiers every log line in a
// request or message scope should repeat. Contexts are enriched as work
// flows inward: handlers set what they know, deeper layers add theirs.
type LogFields struct {
	EventID   *int64  // webhook event row id
	EntityID  *string // source entity the event addresses
	MessageID *string // Redis stream entry id
	ProjectID *string // source project scoping the work
	EventType *string // e.g. "task-updated"
	Component string  // e.g. "mirror.service.catchup"
}

// merge overlays the set fields of over onto f.
func (f LogFields) merge(over LogFields) LogFields {
	if over.EventID != nil {
		f.EventID = over.EventID
	}
	if over.EntityID != nil {
		f.EntityID = over.EntityID
	}
	if over.MessageID != nil {
		f.MessageID = over.MessageID
	}
	if over.ProjectID != nil {
		f.ProjectID = over.ProjectID
	}
	if over.EventType != nil {
		f.EventType = over.EventType
	}
	if over.Component != "" {
		f.Component = over.Component
	}
	return f
}

// attrs renders the set fields as slog attributes.
func (f LogFields) attrs() []slog.Attr {
	out := make([]slog.Attr, 0, 6)
	if f.EventID != nil {
		out = append(out, slog.Int64("event_id", *f.EventID))
	}
	if f.EntityID != nil {
		out = append(out, slog.String("entity_id", *f.EntityID))
	}
	if f.MessageID != nil {
		out = append(out, slog.String("message_id", *f.MessageID))
	}
	if f.ProjectID != nil {
		out = append(out, slog.String("project_id", *f.ProjectID))
	}
	if f.EventType != nil {
		out = append(out, slog.String("event_type", *f.EventType))
	}
	if f.Component != "" {
		out = append(out, slog.String("component", f.Component))
	}
	return out
}

// WithLogFields returns ctx enriched with fields. Set values override,
// unset ones keep whatever the context already carried.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	return context.WithValue(ctx, fieldsKey{}, GetLogFields(ctx).merge(fields))
}

// GetLogFields returns the fields carried by ctx, zero when none.
func GetLogFields(ctx context.Context) LogFields {
	fields, _ := ctx.Value(fieldsKey{}).(LogFields)
	return fields
}
