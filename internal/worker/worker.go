package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"boardsync.app/mirror/common/logger"
	"boardsync.app/mirror/internal/queue"
	"boardsync.app/mirror/internal/service"
)

// Consumer is the slice of the stream client the worker drives. The
// Redis implementation satisfies it; tests script their own.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

type Config struct {
	MaxAttempts int
	// CatchupInterval schedules full catch-up runs between batches.
	// Zero disables them.
	CatchupInterval time.Duration
}

// Worker drains the event stream and applies each event to the mirror.
// Stream consumption and scheduled catch-up share one loop, so a catch-up
// run never overlaps a stream apply.
type Worker struct {
	consumer Consumer
	catchup  service.CatchupService
	cfg      Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, catchup service.CatchupService, cfg Config) *Worker {
	return &Worker{
		consumer:  consumer,
		catchup:   catchup,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "mirror.worker",
	})

	// A nil channel never fires, which is exactly what a disabled
	// catch-up schedule should do.
	var catchupCh <-chan time.Time
	if w.cfg.CatchupInterval > 0 {
		ticker := time.NewTicker(w.cfg.CatchupInterval)
		defer ticker.Stop()
		catchupCh = ticker.C
	}

	slog.InfoContext(ctx, "worker started",
		"catchup_interval", w.cfg.CatchupInterval,
		"max_attempts", w.cfg.MaxAttempts)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		case <-catchupCh:
			w.runCatchup(ctx)
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) runCatchup(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "mirror.worker.catchup",
	})

	slog.InfoContext(ctx, "scheduled catch-up starting")

	summary, err := w.catchup.Run(ctx, service.CatchupOptions{MarkProcessed: true})
	if err != nil {
		slog.ErrorContext(ctx, "scheduled catch-up failed", "error", err)
		return
	}

	slog.InfoContext(ctx, "scheduled catch-up finished",
		"examined", summary.Examined,
		"processed", summary.Processed,
		"fk_resolved", summary.FKResolved,
		"errors", summary.Errors)
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.processMessageSafe(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "message processing failed",
				"error", err,
				"message_id", msg.ID,
				"event_id", msg.EventID)
			w.handleFailedMessage(ctx, msg, err)
		}
	}

	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"event_id", msg.EventID)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage applies one stream message. Exported so it can be reused
// by the reclaimer.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	span := logger.StartLinkedSpan(ctx, msg.TraceID, "worker.apply_event",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	ctx = span.Context()

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		EventID:   &msg.EventID,
		MessageID: &msg.ID,
	})

	slog.InfoContext(ctx, "processing message",
		"event_type", msg.EventType,
		"attempt", msg.Attempt)

	applied, err := w.catchup.ApplyOne(ctx, msg.EventID)
	if err != nil {
		// Infrastructure failure: the event was not looked at. Leave it
		// to the retry path, it may succeed on a later delivery.
		span.RecordError(err)
		return fmt.Errorf("applying event: %w", err)
	}

	// Terminal outcome either way: a failed apply is recorded on the
	// event row and the scheduled catch-up owns it from here.
	if err := w.consumer.Ack(ctx, msg); err != nil {
		slog.WarnContext(ctx, "failed to ACK message",
			"error", err,
			"message_id", msg.ID)
	}

	if !applied {
		slog.InfoContext(ctx, "event not applied, left for catch-up")
	}

	return nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"event_id", msg.EventID,
			"attempts", msg.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"event_id", msg.EventID,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
