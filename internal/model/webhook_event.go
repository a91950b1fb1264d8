package model

import (
	"encoding/json"
	"time"
)

// WebhookEvent is one row of the append-only event log. Immutable after
// insert except for the processing bookkeeping fields (Processed,
// ProcessedAt, RetryCount, Error): the receiver inserts, the catch-up
// engine updates status, nothing deletes.
type WebhookEvent struct {
	ID              int64           `json:"id"`
	Source          string          `json:"source"`
	EventType       string          `json:"event_type"`
	EntityType      *string         `json:"entity_type,omitempty"`
	EntityID        *string         `json:"entity_id,omitempty"`
	EventExternalID *string         `json:"event_external_id,omitempty"`
	EventTimestamp  *time.Time      `json:"event_timestamp,omitempty"`
	ReceivedAt      time.Time       `json:"received_at"`
	Processed       bool            `json:"processed"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
	RetryCount      int32           `json:"retry_count"`
	Error           *string         `json:"error,omitempty"`
	Payload         json.RawMessage `json:"payload"`
}
