package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// EventMessage is the stream payload pointing a worker at a stored
// webhook event. The event row is the source of truth; the message only
// carries enough to find it and to link traces across the hop.
type EventMessage struct {
	EventID   int64
	EventType string
	TraceID   string
	Attempt   int
}

// values renders the message as stream fields, leaving optional ones out.
func (m EventMessage) values() map[string]any {
	v := map[string]any{
		"event_id":   m.EventID,
		"event_type": m.EventType,
		"attempt":    m.Attempt,
	}
	if m.TraceID != "" {
		v["trace_id"] = m.TraceID
	}
	return v
}

type Producer interface {
	Enqueue(ctx context.Context, msg EventMessage) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{client: client, stream: stream, logger: logger}
}

func (p *redisProducer) Enqueue(ctx context.Context, msg EventMessage) error {
	if msg.Attempt <= 0 {
		msg.Attempt = 1
	}

	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: msg.values(),
	}).Err()
	if err != nil {
		return fmt.Errorf("enqueue event: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued event",
		"event_id", msg.EventID, "event_type", msg.EventType, "attempt", msg.Attempt)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
