package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"boardsync.app/mirror/common/id"
	"boardsync.app/mirror/common/logger"
	"boardsync.app/mirror/common/otel"
	"boardsync.app/mirror/core/config"
	"boardsync.app/mirror/core/db"
	"boardsync.app/mirror/internal/queue"
	"boardsync.app/mirror/internal/service"
	"boardsync.app/mirror/internal/store"
	"boardsync.app/mirror/internal/worker"
	"boardsync.app/mirror/internal/yougile"
	"github.com/redis/go-redis/v9"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "mirror worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Queue.Group,
		"consumer_name", cfg.Queue.Consumer)

	// Node ID 2: the receiver owns 1.
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	if err := database.Migrate(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisOpts, err := redis.ParseURL(cfg.Queue.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Queue.Stream)

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:       cfg.Queue.Stream,
		Group:        cfg.Queue.Group,
		Consumer:     cfg.Queue.Consumer,
		DLQStream:    cfg.Queue.DLQStream,
		BatchSize:    1, // Apply one event at a time
		Block:        5 * time.Second,
		MaxAttempts:  cfg.Queue.MaxAttempts,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	// The scheduled catch-up resolves missing dependencies against the
	// source API; without credentials only immediate apply can run.
	var source service.SourceAPI
	if cfg.YouGile.Enabled() {
		source = yougile.New(yougile.Config{
			BaseURL:       cfg.YouGile.BaseURL,
			APIKey:        cfg.YouGile.APIKey,
			Timeout:       cfg.YouGile.Timeout,
			MaxRetries:    cfg.YouGile.MaxRetries,
			RatePerMinute: cfg.YouGile.RatePerMinute,
		}, slog.Default())
	} else if cfg.CatchupInterval > 0 {
		slog.ErrorContext(ctx, "CATCHUP_INTERVAL is set but the YouGile API is not configured, set YOUGILE_API_KEY")
		os.Exit(1)
	}

	stores := store.NewStores(database.Querier())

	services := service.NewServices(
		stores,
		service.NewTxRunner(database),
		nil, // producer: the worker only consumes
		source,
		nil, // issue tracker: projection runs from the CLI
		slog.Default(),
	)

	w := worker.New(consumer, services.Catchup(), worker.Config{
		MaxAttempts:     cfg.Queue.MaxAttempts,
		CatchupInterval: cfg.CatchupInterval,
	})

	reclaimer := worker.NewReclaimer(redisClient, worker.ReclaimerConfig{
		Stream:    cfg.Queue.Stream,
		Group:     cfg.Queue.Group,
		Consumer:  cfg.Queue.Consumer + "-reclaimer",
		MinIdle:   5 * time.Minute,
		Interval:  1 * time.Minute,
		BatchSize: 10,
	}, consumer, w.ProcessMessage)

	errCh := make(chan error, 2)
	go func() {
		errCh <- w.Run(ctx)
	}()
	go func() {
		reclaimer.Run(ctx)
		errCh <- nil
	}()

	slog.InfoContext(ctx, "worker initialized and running",
		"catchup_interval", cfg.CatchupInterval.String())

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Reclaimer first so no claimed message lands on a stopping worker.
	reclaimer.Stop()

	// Stop worker (may be mid-batch)
	w.Stop()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

const banner = `
███╗   ███╗██╗██████╗ ██████╗  ██████╗ ██████╗
████╗ ████║██║██╔══██╗██╔══██╗██╔═══██╗██╔══██╗
██╔████╔██║██║██████╔╝██████╔╝██║   ██║██████╔╝
██║╚██╔╝██║██║██╔══██╗██╔══██╗██║   ██║██╔══██╗
██║ ╚═╝ ██║██║██║  ██║██║  ██║╚██████╔╝██║  ██║
╚═╝     ╚═╝╚═╝╚═╝  ╚═╝╚═╝  ╚═╝ ╚═════╝ ╚═╝  ╚═╝
`
