package domain

import (
	"encoding/json"
	"fmt"
)

// Envelope is the wire shape every webhook delivery arrives in. Payload is
// the entity's new state; PrevData, when present, carries the state before
// the change and is stored for audit but never applied.
type Envelope struct {
	Event    string         `json:"event"`
	Payload  map[string]any `json:"payload"`
	PrevData map[string]any `json:"prevData,omitempty"`
}

// DecodeEnvelope parses a raw webhook body. An envelope without an entity
// payload is valid: such events are bookkeeping-only and get marked
// processed without touching the mirror.
func DecodeEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}
