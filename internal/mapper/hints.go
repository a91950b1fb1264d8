package mapper

import "time"

// EventHints are the envelope fields stored alongside a raw webhook body
// so the event log can be filtered and dispatched without re-decoding
// every payload.
type EventHints struct {
	EventType  string
	EntityType *string
	EntityID   *string
	Timestamp  *time.Time
}

// HintsFrom extracts hints from a decoded webhook envelope. The entity id
// prefers the new state and falls back to prevData (delete events often
// only carry the old state); the entity type is read from the payload
// first, then the envelope itself.
func HintsFrom(envelope map[string]any) EventHints {
	var h EventHints
	h.EventType, _ = envelope["event"].(string)

	payload, _ := envelope["payload"].(map[string]any)
	prev, _ := envelope["prevData"].(map[string]any)

	entityID := idString(payload["id"])
	if entityID == "" && prev != nil {
		entityID = idString(prev["id"])
	}
	if entityID != "" {
		h.EntityID = &entityID
	}

	entityType, _ := payload["entityType"].(string)
	if entityType == "" {
		entityType, _ = envelope["entityType"].(string)
	}
	if entityType != "" {
		h.EntityType = &entityType
	}

	if payload != nil {
		h.Timestamp = parseTime(payload["timestamp"])
	}
	return h
}
