package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"boardsync.app/mirror/common/logger"
	"boardsync.app/mirror/internal/queue"
)

type ReclaimerConfig struct {
	Stream    string
	Group     string
	Consumer  string
	MinIdle   time.Duration
	Interval  time.Duration
	BatchSize int64
}

// Reclaimer takes over stream entries that were delivered to a consumer
// but never acknowledged, which is what a worker crash between read and
// ACK leaves behind. Claimed entries go through the same apply path as
// fresh deliveries.
type Reclaimer struct {
	client   *redis.Client
	cfg      ReclaimerConfig
	consumer *queue.RedisConsumer
	process  queue.MessageProcessor

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewReclaimer(client *redis.Client, cfg ReclaimerConfig, consumer *queue.RedisConsumer, process queue.MessageProcessor) *Reclaimer {
	return &Reclaimer{
		client:    client,
		cfg:       cfg,
		consumer:  consumer,
		process:   process,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run sweeps for stale deliveries every Interval until Stop is called or
// the context is cancelled.
func (r *Reclaimer) Run(ctx context.Context) {
	defer close(r.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "mirror.worker.reclaimer",
	})

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "reclaimer started",
		"stream", r.cfg.Stream,
		"group", r.cfg.Group,
		"min_idle", r.cfg.MinIdle,
		"interval", r.cfg.Interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			slog.InfoContext(ctx, "reclaimer stopping")
			return
		case <-ticker.C:
			if err := r.sweep(ctx); err != nil {
				slog.ErrorContext(ctx, "reclaim sweep failed", "error", err)
			}
		}
	}
}

func (r *Reclaimer) Stop() {
	close(r.stopCh)
	<-r.stoppedCh
}

// sweep claims one batch of entries idle past MinIdle and replays them.
// The claim is a single XCLAIM over the whole batch; entries that were
// acknowledged or claimed elsewhere in the meantime drop out of the
// result.
func (r *Reclaimer) sweep(ctx context.Context) error {
	pending, err := r.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: r.cfg.Stream,
		Group:  r.cfg.Group,
		Idle:   r.cfg.MinIdle,
		Start:  "-",
		End:    "+",
		Count:  r.cfg.BatchSize,
	}).Result()
	if err != nil {
		return fmt.Errorf("listing pending entries: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	ids := make([]string, len(pending))
	for i, entry := range pending {
		ids[i] = entry.ID
		slog.InfoContext(ctx, "stale delivery found",
			"message_id", entry.ID,
			"last_consumer", entry.Consumer,
			"idle", entry.Idle,
			"deliveries", entry.RetryCount)
	}

	claimed, err := r.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   r.cfg.Stream,
		Group:    r.cfg.Group,
		Consumer: r.cfg.Consumer,
		MinIdle:  r.cfg.MinIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return fmt.Errorf("claiming entries: %w", err)
	}
	if len(claimed) < len(pending) {
		slog.DebugContext(ctx, "some stale entries were handled elsewhere",
			"wanted", len(pending), "claimed", len(claimed))
	}

	for _, raw := range claimed {
		r.replay(ctx, raw)
	}
	return nil
}

// replay feeds one claimed entry back through the worker's apply path.
// An entry that cannot even parse would be claimed again on every sweep,
// so it is acknowledged away; the event row itself is still there for
// catch-up.
func (r *Reclaimer) replay(ctx context.Context, raw redis.XMessage) {
	msgID := raw.ID
	ctx = logger.WithLogFields(ctx, logger.LogFields{MessageID: &msgID})

	msg, err := queue.ParseMessage(raw)
	if err != nil {
		slog.ErrorContext(ctx, "claimed entry is malformed, dropping", "error", err)
		if ackErr := r.consumer.Ack(ctx, queue.Message{ID: raw.ID, Raw: raw}); ackErr != nil {
			slog.WarnContext(ctx, "failed to ACK malformed entry", "error", ackErr)
		}
		return
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{EventID: &msg.EventID})

	start := time.Now()
	if err := r.process(ctx, msg); err != nil {
		// Still pending under this consumer; the next sweep retries it.
		slog.ErrorContext(ctx, "replaying claimed entry failed", "error", err)
		return
	}
	slog.InfoContext(ctx, "claimed entry replayed",
		"duration_ms", time.Since(start).Milliseconds())
}
