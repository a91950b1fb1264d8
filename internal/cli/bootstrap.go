// Package cli implements the mirror command line tool: snapshot
// imports, event catch-up, mirror statistics, issue projection and
// webhook subscription management.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"boardsync.app/mirror/common/id"
	"boardsync.app/mirror/common/logger"
	"boardsync.app/mirror/core/config"
	"boardsync.app/mirror/core/db"
	"boardsync.app/mirror/internal/service"
	"boardsync.app/mirror/internal/store"
	"boardsync.app/mirror/internal/yougile"
)

// runtime bundles the dependencies commands share: configuration, the
// database pool and the service layer. Built per invocation, closed
// when the command returns.
type runtime struct {
	cfg      config.Config
	database *db.DB
	services *service.Services
	source   *yougile.Client
}

// bootstrap loads configuration, connects to the database and wires the
// service layer. The source client and the issue tracker are optional,
// commands that need them check explicitly.
func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(config.ServiceTypeCLI)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger.Setup(cfg)

	// Node ID 3: the receiver owns 1, the worker owns 2.
	if err := id.Init(3); err != nil {
		return nil, fmt.Errorf("initializing id generator: %w", err)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	var (
		client *yougile.Client
		source service.SourceAPI
	)
	if cfg.YouGile.Enabled() {
		client = yougile.New(yougile.Config{
			BaseURL:       cfg.YouGile.BaseURL,
			APIKey:        cfg.YouGile.APIKey,
			Timeout:       cfg.YouGile.Timeout,
			MaxRetries:    cfg.YouGile.MaxRetries,
			RatePerMinute: cfg.YouGile.RatePerMinute,
		}, slog.Default())
		source = client
	}

	var tracker service.IssueTracker
	if cfg.GitLab.Enabled() {
		tracker, err = service.NewGitLabTracker(cfg.GitLab.BaseURL, cfg.GitLab.Token, cfg.GitLab.ProjectID)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("configuring gitlab: %w", err)
		}
	}

	services := service.NewServices(
		store.NewStores(database.Querier()),
		service.NewTxRunner(database),
		nil, // producer: the CLI never enqueues
		source,
		tracker,
		slog.Default(),
	)

	return &runtime{cfg: cfg, database: database, services: services, source: client}, nil
}

func (rt *runtime) Close() {
	rt.database.Close()
}

// requireSource returns the YouGile client or an instructive error when
// credentials are missing.
func (rt *runtime) requireSource() (*yougile.Client, error) {
	if rt.source == nil {
		return nil, fmt.Errorf("the YouGile API is not configured, set YOUGILE_API_KEY")
	}
	return rt.source, nil
}
