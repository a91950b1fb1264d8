package service

import (
	"context"
	"fmt"
	"log/slog"

	"boardsync.app/mirror/internal/model"
	"boardsync.app/mirror/internal/store"
)

// StatsService reports row counts across the mirror plus event-log health.
type StatsService interface {
	Collect(ctx context.Context) (*model.MirrorStats, error)
}

type statsService struct {
	stats store.StatsStore
}

func NewStatsService(stats store.StatsStore) StatsService {
	return &statsService{stats: stats}
}

func (s *statsService) Collect(ctx context.Context) (*model.MirrorStats, error) {
	stats, err := s.stats.Collect(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to collect mirror stats", "error", err)
		return nil, fmt.Errorf("collecting stats: %w", err)
	}
	return stats, nil
}
