package components

import (
	"log/slog"

	"github.com/coa-classifier/internal/config"
	"github.com/coa-classifier/internal/domain/audit"
	"github.com/coa-classifier/internal/domain/classification"
	"github.com/coa-classifier/internal/domain/ledger"
	"github.com/coa-classifier/internal/domain/outbox"
	"github.com/coa-classifier/internal/platform/persistence"
	"github.com/coa-classifier/internal/retro_processor/service"
)

// CreateProcessingService creates a new ProcessingService with all its dependencies.
func CreateProcessingService(
	pgDB *persistence.PostgresDB,
	ruleRepo classification.Repository,
	outboxRepo outbox.Repository,
	historyRepo ledger.HistoryRepository,
	auditRepo audit.Repository,
	logger *slog.Logger,
	cfg *config.Config,
) service.ProcessingService {
	validator := NewChangeValidator(auditRepo, logger)
	ruleUpdater := NewRuleUpdater(ruleRepo, logger)
	outboxManager := NewOutboxManager(outboxRepo, logger)
	historyRetagger := NewHistoryRetagger(historyRepo, logger)
	failureRecorder := NewFailureRecorder(auditRepo, logger)

	baseService := service.NewProcessingService(
		pgDB,
		validator,
		ruleUpdater,
		outboxManager,
		historyRetagger,
		failureRecorder,
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)

	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
