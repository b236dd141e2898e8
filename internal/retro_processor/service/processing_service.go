package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/coa-classifier/internal/domain/shared"
	"github.com/coa-classifier/internal/platform/persistence"
)

type ProcessingServiceImpl struct {
	pgDB            *persistence.PostgresDB
	validator       ChangeValidator
	ruleUpdater     RuleUpdater
	outboxManager   OutboxManager
	historyRetagger HistoryRetagger
	failureRecorder FailureRecorder
	logger          *slog.Logger
}

func NewProcessingService(
	pgDB *persistence.PostgresDB,
	validator ChangeValidator,
	ruleUpdater RuleUpdater,
	outboxManager OutboxManager,
	historyRetagger HistoryRetagger,
	failureRecorder FailureRecorder,
	logger *slog.Logger,
) ProcessingService {
	return &ProcessingServiceImpl{
		pgDB:            pgDB,
		validator:       validator,
		ruleUpdater:     ruleUpdater,
		outboxManager:   outboxManager,
		historyRetagger: historyRetagger,
		failureRecorder: failureRecorder,
		logger:          logger,
	}
}

// ProcessApply handles the core logic for applying classification changes
// retroactively: commit the rule changes together with the audit outbox
// entry, then retag the historical archive.
func (s *ProcessingServiceImpl) ProcessApply(ctx context.Context, request *shared.RetroApplyRequest) error {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Processing apply request", "request_id", request.RequestID.String(), "changes", len(request.Changes))

	// 1. Validate the request
	if err := s.validator.Validate(ctx, request); err != nil {
		logger.Error("Apply request validation failed", "request_id", request.RequestID.String(), "error", err)

		var failureReason string
		if errors.Is(err, shared.ErrNoChanges) {
			failureReason = string(shared.FailureReasonEmptyChangeSet)
		} else {
			failureReason = string(shared.FailureReasonMalformedCode)
		}

		if recordErr := s.failureRecorder.RecordFailure(ctx, request, failureReason); recordErr != nil {
			logger.Error("Failed to record apply failure", "request_id", request.RequestID.String(), "error", recordErr)
		}

		return nil // Return nil to Kafka consumer to acknowledge the message
	}

	// 2. Check idempotency
	skip, err := s.validator.CheckIdempotency(ctx, request)
	if err != nil {
		return err // Let Kafka retry
	}
	if skip {
		return nil // Already processed, return success
	}

	// 3. Begin database transaction
	var tx pgx.Tx
	tx, err = s.pgDB.Pool().Begin(ctx)
	if err != nil {
		logger.Error("Failed to begin database transaction", "request_id", request.RequestID.String(), "error", err)
		return fmt.Errorf("failed to begin DB transaction for %s: %w", request.RequestID.String(), err)
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Panic recovered, rolling back transaction", "panic", p, "request_id", request.RequestID.String())
			_ = tx.Rollback(ctx)
			panic(p) // Re-panic
		} else if err != nil {
			logger.Error("Error occurred, rolling back transaction", "error", err, "request_id", request.RequestID.String())
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logger.Error("Failed to rollback transaction after error", "rollback_error", rbErr, "original_error", err, "request_id", request.RequestID.String())
			}
		}
	}()

	// 4. Commit rule changes
	if err = s.ruleUpdater.ApplyRules(ctx, tx, request); err != nil {
		logger.Error("Failed to apply rule changes", "request_id", request.RequestID.String(), "error", err)
		if recordErr := s.failureRecorder.RecordFailure(ctx, request, string(shared.FailureReasonRuleUpdateFailed)); recordErr != nil {
			logger.Error("Failed to record rule update failure", "request_id", request.RequestID.String(), "error", recordErr)
		}
		return nil // Terminal failure, return nil to Kafka consumer
	}

	// 5. Create outbox entry in the same transaction
	if err = s.outboxManager.CreateOutboxEntry(ctx, tx, request); err != nil {
		return err // Let the defer handle rollback
	}

	// 6. Commit transaction
	if err = tx.Commit(ctx); err != nil {
		logger.Error("Failed to commit database transaction",
			"request_id", request.RequestID.String(),
			"error", err,
		)
		if recordErr := s.failureRecorder.RecordFailure(ctx, request, string(shared.FailureReasonCommitFailed)); recordErr != nil {
			logger.Error("Failed to record commit failure", "request_id", request.RequestID.String(), "error", recordErr)
		}
		err = nil
		return nil // Terminal failure, the client must re-submit with a fresh request ID
	}

	// 7. Retag historical rows. The rules are committed at this point, so a
	// retag failure is recorded as terminal rather than retried; retrying the
	// whole message would insert duplicate rule versions.
	retagged, err := s.historyRetagger.RetagHistory(ctx, request)
	if err != nil {
		logger.Error("Failed to retag historical rows", "request_id", request.RequestID.String(), "error", err)
		if recordErr := s.failureRecorder.RecordFailure(ctx, request, string(shared.FailureReasonHistoryRetagFailed)); recordErr != nil {
			logger.Error("Failed to record history retag failure", "request_id", request.RequestID.String(), "error", recordErr)
		}
		err = nil
		return nil
	}

	logger.Info("Apply request processed successfully",
		"request_id", request.RequestID.String(),
		"changes", len(request.Changes),
		"retagged_rows", retagged,
	)
	return nil // SUCCESS!
}
