package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"boardsync.app/mirror/common/logger"
	"boardsync.app/mirror/internal/domain"
	"boardsync.app/mirror/internal/mapper"
	"boardsync.app/mirror/internal/model"
	"boardsync.app/mirror/internal/store"
)

// summaryPreviewLimit caps how many event descriptors a run summary keeps.
const summaryPreviewLimit = 10

// CatchupOptions controls a replay run. The zero value replays everything
// pending without touching event bookkeeping, so a bare Run is a harmless
// dry run: entity upserts still happen (they are idempotent), processed
// state does not move.
type CatchupOptions struct {
	// Since restricts the replay to events received at or after this
	// instant. Nil means all pending events.
	Since *time.Time
	// MarkProcessed flips events to processed after a successful apply
	// and records failures on errored ones. Off, the event log is left
	// completely untouched.
	MarkProcessed bool
}

// CatchupService replays unprocessed webhook events against the mirror.
type CatchupService interface {
	Run(ctx context.Context, opts CatchupOptions) (*model.CatchupSummary, error)
	// ApplyOne replays a single stored event by id. Reports true when the
	// event ended up processed (including already-processed and no-op
	// events), false when it does not exist or its apply failed.
	ApplyOne(ctx context.Context, id int64) (bool, error)
}

type applyFunc func(ctx context.Context, sp StoreProvider, env *domain.Envelope) error

type catchupService struct {
	events   store.EventStore
	txRunner TxRunner
	resolver DependencyResolver
	logger   *slog.Logger
	registry map[domain.EntityKind]applyFunc
}

func NewCatchupService(events store.EventStore, txRunner TxRunner, resolver DependencyResolver, logger *slog.Logger) CatchupService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &catchupService{
		events:   events,
		txRunner: txRunner,
		resolver: resolver,
		logger:   logger,
	}
	s.registry = map[domain.EntityKind]applyFunc{
		domain.KindTask:       s.applyTask,
		domain.KindProject:    s.applyProject,
		domain.KindBoard:      s.applyBoard,
		domain.KindColumn:     s.applyColumn,
		domain.KindUser:       s.applyUser,
		domain.KindSticker:    s.applySticker,
		domain.KindDepartment: s.applyDepartment,
		domain.KindComment:    s.applyComment,
	}
	return s
}

// Run replays pending events oldest first, each in its own transaction, so
// a failure only loses that one event's writes. Errored events never stop
// the run; they are recorded and the replay moves on.
func (s *catchupService) Run(ctx context.Context, opts CatchupOptions) (*model.CatchupSummary, error) {
	span := logger.StartSpan(ctx, "catchup.run")
	defer span.End()
	ctx = span.Context()

	cache := NewResolveCache()
	s.resolver.Prefetch(ctx, cache)

	events, err := s.events.ListUnprocessed(ctx, opts.Since)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("listing pending events: %w", err)
	}

	summary := &model.CatchupSummary{}
	for i := range events {
		event := &events[i]
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Examined++

		s.logger.InfoContext(ctx, "replaying event",
			"event_id", event.ID,
			"event_type", event.EventType,
			"received_at", event.ReceivedAt)

		resolved, applyErr := s.applyEvent(ctx, cache, event)
		if applyErr == nil && opts.MarkProcessed {
			if markErr := s.events.MarkProcessed(ctx, event.ID); markErr != nil {
				applyErr = fmt.Errorf("marking processed: %w", markErr)
			} else {
				summary.Processed++
			}
		}
		if applyErr != nil {
			summary.Errors++
			summary.ErrorDetails = append(summary.ErrorDetails, model.EventError{
				EventID: event.ID,
				Error:   applyErr.Error(),
			})
			s.logger.WarnContext(ctx, "event failed to apply",
				"event_id", event.ID, "error", applyErr)
			if opts.MarkProcessed {
				if markErr := s.events.MarkFailed(ctx, event.ID, applyErr.Error()); markErr != nil {
					s.logger.ErrorContext(ctx, "recording event failure",
						"event_id", event.ID, "error", markErr)
				}
			}
			continue
		}

		summary.FKResolved += resolved
		if len(summary.EventSummary) < summaryPreviewLimit {
			summary.EventSummary = append(summary.EventSummary, describeEvent(event))
		}
	}

	s.logger.InfoContext(ctx, "catch-up run finished",
		"examined", summary.Examined,
		"processed", summary.Processed,
		"fk_resolved", summary.FKResolved,
		"errors", summary.Errors)
	return summary, nil
}

func (s *catchupService) ApplyOne(ctx context.Context, id int64) (bool, error) {
	event, err := s.events.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.WarnContext(ctx, "event not found", "event_id", id)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if event.Processed {
		s.logger.DebugContext(ctx, "event already processed", "event_id", id)
		return true, nil
	}

	// Single-event replay answers "does this event apply as-is", so no
	// dependency resolution happens here; a nil cache turns it off.
	_, applyErr := s.applyEvent(ctx, nil, event)
	if applyErr != nil {
		s.logger.WarnContext(ctx, "event failed to apply",
			"event_id", id, "error", applyErr)
		if markErr := s.events.MarkFailed(ctx, id, applyErr.Error()); markErr != nil {
			s.logger.ErrorContext(ctx, "recording event failure",
				"event_id", id, "error", markErr)
		}
		return false, nil
	}
	if err := s.events.MarkProcessed(ctx, id); err != nil {
		return false, fmt.Errorf("marking processed: %w", err)
	}
	return true, nil
}

// applyEvent runs the event's upsert in one transaction. On a missing
// dependency it asks the resolver to backfill the referenced entity and
// retries exactly once; resolved reports how many dependency resolutions
// led to a successful apply (0 or 1). A failed resolution surfaces the
// original error. A nil cache disables resolution entirely.
func (s *catchupService) applyEvent(ctx context.Context, cache *ResolveCache, event *model.WebhookEvent) (resolved int, err error) {
	apply, env, err := s.plan(ctx, event)
	if err != nil || apply == nil {
		return 0, err
	}

	run := func() error {
		return s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
			return apply(ctx, sp, env)
		})
	}

	err = run()
	if err == nil {
		return 0, nil
	}
	missing, ok := domain.AsMissingDependency(err)
	if !ok || cache == nil {
		return 0, err
	}
	if !s.resolver.Resolve(ctx, cache, missing.Kind, missing.ID) {
		return 0, err
	}
	if retryErr := run(); retryErr != nil {
		return 0, retryErr
	}
	s.logger.InfoContext(ctx, "event applied after resolving dependency",
		"event_id", event.ID,
		"dependency_kind", string(missing.Kind),
		"dependency_id", missing.ID)
	return 1, nil
}

// plan decodes the payload and picks the handler for the event's kind.
// A nil applyFunc with a nil error means the event needs no entity write:
// empty payloads and kinds without a local model are both fine.
func (s *catchupService) plan(ctx context.Context, event *model.WebhookEvent) (applyFunc, *domain.Envelope, error) {
	env, err := domain.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, nil, err
	}
	if len(env.Payload) == 0 {
		s.logger.DebugContext(ctx, "event carries no entity payload", "event_id", event.ID)
		return nil, nil, nil
	}

	entityType := ""
	if event.EntityType != nil {
		entityType = *event.EntityType
	}
	kind := mapper.KindFor(event.EventType, entityType)
	apply, ok := s.registry[kind]
	if !ok {
		s.logger.DebugContext(ctx, "no handler for entity kind",
			"event_id", event.ID, "kind", string(kind))
		return nil, nil, nil
	}
	return apply, env, nil
}

func describeEvent(event *model.WebhookEvent) model.EventDescriptor {
	d := model.EventDescriptor{
		ID:         event.ID,
		EventType:  event.EventType,
		ReceivedAt: event.ReceivedAt,
	}
	if event.EntityType != nil {
		d.EntityType = *event.EntityType
	}
	if event.EntityID != nil {
		d.EntityID = *event.EntityID
	}
	return d
}

func (s *catchupService) applyTask(ctx context.Context, sp StoreProvider, env *domain.Envelope) error {
	task, err := mapper.ParseTask(env.Payload)
	if err != nil {
		return err
	}
	if err := sp.Tasks().Upsert(ctx, task); err != nil {
		return err
	}
	if task.Assignees == nil {
		return nil
	}
	return sp.Tasks().ReplaceAssignees(ctx, task.ID, task.Assignees)
}

func (s *catchupService) applyProject(ctx context.Context, sp StoreProvider, env *domain.Envelope) error {
	project, err := mapper.ParseProject(env.Payload)
	if err != nil {
		return err
	}
	return sp.Projects().Upsert(ctx, project)
}

func (s *catchupService) applyBoard(ctx context.Context, sp StoreProvider, env *domain.Envelope) error {
	board, err := mapper.ParseBoard(env.Payload)
	if err != nil {
		return err
	}
	return sp.Boards().Upsert(ctx, board)
}

func (s *catchupService) applyColumn(ctx context.Context, sp StoreProvider, env *domain.Envelope) error {
	column, err := mapper.ParseColumn(env.Payload)
	if err != nil {
		return err
	}
	return sp.Columns().Upsert(ctx, column)
}

func (s *catchupService) applyUser(ctx context.Context, sp StoreProvider, env *domain.Envelope) error {
	user, err := mapper.ParseUser(env.Payload)
	if err != nil {
		return err
	}
	return sp.Users().Upsert(ctx, user)
}

func (s *catchupService) applySticker(ctx context.Context, sp StoreProvider, env *domain.Envelope) error {
	sticker, err := mapper.ParseSticker(env.Payload)
	if err != nil {
		return err
	}
	if sticker.Sprint != nil {
		return sp.Stickers().UpsertSprint(ctx, sticker.Sprint)
	}
	return sp.Stickers().UpsertString(ctx, sticker.String)
}

func (s *catchupService) applyDepartment(ctx context.Context, sp StoreProvider, env *domain.Envelope) error {
	department, err := mapper.ParseDepartment(env.Payload)
	if err != nil {
		return err
	}
	return sp.Departments().Upsert(ctx, department)
}

func (s *catchupService) applyComment(ctx context.Context, sp StoreProvider, env *domain.Envelope) error {
	comment, err := mapper.ParseComment(env.Payload)
	if err != nil {
		return err
	}
	return sp.Comments().Upsert(ctx, comment)
}
