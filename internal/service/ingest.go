package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"boardsync.app/mirror/common/id"
	"boardsync.app/mirror/internal/mapper"
	"boardsync.app/mirror/internal/model"
	"boardsync.app/mirror/internal/queue"
	"boardsync.app/mirror/internal/store"
)

type IngestParams struct {
	// Source names the system the delivery came from ("yougile").
	Source string
	// Body is the raw request body. It is stored as received; a body that
	// is not valid JSON is wrapped as {"raw": "..."} so nothing is lost.
	Body []byte
	// ExternalID is the source's delivery id when it sends one. Used for
	// dedupe; nil is fine, the source usually omits it.
	ExternalID *string
	TraceID    *string
}

type IngestResult struct {
	Event      *model.WebhookEvent
	Enqueued   bool
	Duplicated bool
}

// IngestService appends inbound webhook deliveries to the event store and
// nudges the worker over the stream. Storing is the contract; the enqueue
// is a latency optimization and its failure never fails an ingest,
// catch-up picks the event up later.
type IngestService interface {
	Ingest(ctx context.Context, params IngestParams) (*IngestResult, error)
}

type ingestService struct {
	events store.EventStore
	queue  queue.Producer
	logger *slog.Logger
}

func NewIngestService(events store.EventStore, producer queue.Producer, logger *slog.Logger) IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ingestService{
		events: events,
		queue:  producer,
		logger: logger,
	}
}

func (s *ingestService) Ingest(ctx context.Context, params IngestParams) (*IngestResult, error) {
	if params.Source == "" {
		return nil, fmt.Errorf("source is required")
	}
	if len(params.Body) == 0 {
		return nil, fmt.Errorf("body is required")
	}

	payload, hints := decodeBody(params.Body)
	if hints.EventType == "" {
		s.logger.WarnContext(ctx, "webhook delivery without event type", "source", params.Source)
	}

	event := &model.WebhookEvent{
		ID:              id.New(),
		Source:          params.Source,
		EventType:       hints.EventType,
		EntityType:      hints.EntityType,
		EntityID:        hints.EntityID,
		EventExternalID: params.ExternalID,
		EventTimestamp:  hints.Timestamp,
		Payload:         payload,
	}

	stored, created, err := s.events.Append(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("appending event: %w", err)
	}

	enqueued := false
	if created {
		err := s.queue.Enqueue(ctx, queue.EventMessage{
			EventID:   stored.ID,
			EventType: stored.EventType,
			TraceID:   stringValue(params.TraceID),
			Attempt:   1,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "enqueueing event failed, catch-up will pick it up",
				"event_id", stored.ID, "error", err)
		} else {
			enqueued = true
		}
	} else {
		s.logger.InfoContext(ctx, "duplicate delivery deduped",
			"event_id", stored.ID, "external_id", stringValue(params.ExternalID))
	}

	return &IngestResult{
		Event:      stored,
		Enqueued:   enqueued,
		Duplicated: !created,
	}, nil
}

// decodeBody parses the delivery body and derives the stored hint columns.
// An unparseable body still gets stored, wrapped so the original bytes
// survive for inspection.
func decodeBody(body []byte) (json.RawMessage, mapper.EventHints) {
	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		wrapped, _ := json.Marshal(map[string]string{"raw": string(body)})
		return wrapped, mapper.EventHints{}
	}
	return json.RawMessage(body), mapper.HintsFrom(envelope)
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
