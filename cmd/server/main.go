package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"boardsync.app/mirror/common/id"
	"boardsync.app/mirror/common/logger"
	"boardsync.app/mirror/common/otel"
	"boardsync.app/mirror/core/config"
	"boardsync.app/mirror/core/db"
	"boardsync.app/mirror/internal/http/middleware"
	httprouter "boardsync.app/mirror/internal/http/router"
	"boardsync.app/mirror/internal/queue"
	"boardsync.app/mirror/internal/service"
	"boardsync.app/mirror/internal/store"
	"boardsync.app/mirror/internal/yougile"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
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

	slog.InfoContext(ctx, "mirror receiver starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
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
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Queue.Stream)

	eventProducer := queue.NewRedisProducer(redisClient, cfg.Queue.Stream, slog.Default())
	defer eventProducer.Close()

	stores := store.NewStores(database.Querier())

	services := service.NewServices(
		stores,
		service.NewTxRunner(database),
		eventProducer,
		nil, // source API: the receiver never pulls from YouGile
		nil, // issue tracker: projection runs from the CLI
		slog.Default(),
	)

	// Warn-only: deliveries simply stop arriving when no subscription
	// points at us, and that is worth noticing at startup.
	go checkWebhookSubscription(ctx, cfg)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, services *service.Services) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, httprouter.RouterConfig{
		WebhookSecret: cfg.Webhook.Secret,
	})

	return router
}

// checkWebhookSubscription verifies the source still delivers to this
// deployment. Failures only warn, the receiver works either way.
func checkWebhookSubscription(ctx context.Context, cfg config.Config) {
	if cfg.Webhook.PublicURL == "" {
		slog.InfoContext(ctx, "WEBHOOK_PUBLIC_URL not set, skipping webhook subscription check")
		return
	}
	if !cfg.YouGile.Enabled() {
		slog.WarnContext(ctx, "cannot check webhook subscription, YouGile API is not configured")
		return
	}

	client := yougile.New(yougile.Config{
		BaseURL:       cfg.YouGile.BaseURL,
		APIKey:        cfg.YouGile.APIKey,
		Timeout:       cfg.YouGile.Timeout,
		MaxRetries:    cfg.YouGile.MaxRetries,
		RatePerMinute: cfg.YouGile.RatePerMinute,
	}, slog.Default())

	hooks, err := client.ListWebhooks(ctx, false)
	if err != nil {
		slog.WarnContext(ctx, "failed to check webhook subscriptions", "error", err)
		return
	}

	for _, hook := range hooks {
		if deleted, _ := hook["deleted"].(bool); deleted {
			continue
		}
		if url, _ := hook["url"].(string); url == cfg.Webhook.PublicURL {
			slog.InfoContext(ctx, "webhook subscription present", "url", cfg.Webhook.PublicURL)
			return
		}
	}

	slog.WarnContext(ctx, "no active webhook subscription for the public url, register one with 'mirror webhooks create'",
		"url", cfg.Webhook.PublicURL)
}

const banner = `
███╗   ███╗██╗██████╗ ██████╗  ██████╗ ██████╗
████╗ ████║██║██╔══██╗██╔══██╗██╔═══██╗██╔══██╗
██╔████╔██║██║██████╔╝██████╔╝██║   ██║██████╔╝
██║╚██╔╝██║██║██╔══██╗██╔══██╗██║   ██║██╔══██╗
██║ ╚═╝ ██║██║██║  ██║██║  ██║╚██████╔╝██║  ██║
╚═╝     ╚═╝╚═╝╚═╝  ╚═╝╚═╝  ╚═╝ ╚═════╝ ╚═╝  ╚═╝
`
