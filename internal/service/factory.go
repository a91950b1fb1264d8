package service

import (
	"log/slog"

	"boardsync.app/mirror/internal/queue"
	"boardsync.app/mirror/internal/store"
)

type Services struct {
	stores   *store.Stores
	txRunner TxRunner
	producer queue.Producer
	source   SourceAPI
	tracker  IssueTracker
	logger   *slog.Logger
}

// NewServices wires the service layer. producer, source and tracker may be nil
// when the calling binary does not use the services that need them.
func NewServices(
	stores *store.Stores,
	txRunner TxRunner,
	producer queue.Producer,
	source SourceAPI,
	tracker IssueTracker,
	logger *slog.Logger,
) *Services {
	return &Services{
		stores:   stores,
		txRunner: txRunner,
		producer: producer,
		source:   source,
		tracker:  tracker,
		logger:   logger,
	}
}

func (s *Services) Ingest() IngestService {
	return NewIngestService(s.stores.Events(), s.producer, s.logger)
}

func (s *Services) Resolver() DependencyResolver {
	return NewDependencyResolver(s.source, s.txRunner, s.logger)
}

func (s *Services) Catchup() CatchupService {
	return NewCatchupService(s.stores.Events(), s.txRunner, s.Resolver(), s.logger)
}

func (s *Services) Importer() ImportService {
	return NewImportService(s.source, s.txRunner, s.logger)
}

func (s *Services) IssueSync() IssueSyncService {
	return NewIssueSyncService(s.tracker, s.txRunner, s.logger)
}

func (s *Services) Stats() StatsService {
	return NewStatsService(s.stores.Stats())
}
