package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"boardsync.app/mirror/core/db"
	"boardsync.app/mirror/internal/model"
)

type eventStore struct {
	q db.Querier
}

func newEventStore(q db.Querier) EventStore {
	return &eventStore{q: q}
}

const eventColumns = `id, source, event_type, entity_type, entity_id, event_external_id,
	event_timestamp, received_at, processed, processed_at, retry_count, error, payload`

func (s *eventStore) Append(ctx context.Context, event *model.WebhookEvent) (*model.WebhookEvent, bool, error) {
	row := s.q.QueryRow(ctx, `
		INSERT INTO webhook_events (id, source, event_type, entity_type, entity_id, event_external_id, event_timestamp, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_external_id) WHERE event_external_id IS NOT NULL DO NOTHING
		RETURNING id, received_at
	`, event.ID, event.Source, event.EventType, event.EntityType, event.EntityID,
		event.EventExternalID, event.EventTimestamp, event.Payload)

	stored := *event
	err := row.Scan(&stored.ID, &stored.ReceivedAt)
	if err == nil {
		return &stored, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	// The external id was already logged; hand back the original row.
	existing, err := scanEvent(s.q.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM webhook_events WHERE event_external_id = $1`,
		event.EventExternalID))
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *eventStore) GetByID(ctx context.Context, id int64) (*model.WebhookEvent, error) {
	return scanEvent(s.q.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM webhook_events WHERE id = $1`, id))
}

func (s *eventStore) ListUnprocessed(ctx context.Context, since *time.Time) ([]model.WebhookEvent, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+eventColumns+`
		FROM webhook_events
		WHERE NOT processed AND ($1::timestamptz IS NULL OR received_at >= $1)
		ORDER BY received_at ASC, id ASC
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.WebhookEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *event)
	}
	return result, rows.Err()
}

func (s *eventStore) MarkProcessed(ctx context.Context, id int64) error {
	_, err := s.q.Exec(ctx,
		`UPDATE webhook_events SET processed = TRUE, processed_at = now() WHERE id = $1`, id)
	return err
}

func (s *eventStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := s.q.Exec(ctx,
		`UPDATE webhook_events SET error = $2, retry_count = retry_count + 1 WHERE id = $1`,
		id, errMsg)
	return err
}

func (s *eventStore) CountUnprocessed(ctx context.Context) (int64, error) {
	var count int64
	err := s.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM webhook_events WHERE NOT processed`).Scan(&count)
	return count, err
}

func scanEvent(row pgx.Row) (*model.WebhookEvent, error) {
	var e model.WebhookEvent
	err := row.Scan(&e.ID, &e.Source, &e.EventType, &e.EntityType, &e.EntityID,
		&e.EventExternalID, &e.EventTimestamp, &e.ReceivedAt, &e.Processed,
		&e.ProcessedAt, &e.RetryCount, &e.Error, &e.Payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}
