package components

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/coa-classifier/internal/domain/audit"
	"github.com/coa-classifier/internal/domain/outbox"
	"github.com/coa-classifier/internal/domain/shared"
	"github.com/coa-classifier/internal/retro_processor/service"
)

type OutboxManagerImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewOutboxManager(outboxRepo outbox.Repository, logger *slog.Logger) service.OutboxManager {
	return &OutboxManagerImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// CreateOutboxEntry stages the audit record of a processed apply request in
// the outbox, inside the same transaction as the rule changes
func (m *OutboxManagerImpl) CreateOutboxEntry(ctx context.Context, tx pgx.Tx, request *shared.RetroApplyRequest) error {
	logger := m.logger
	if request.CorrelationID != "" {
		logger = m.logger.With("correlation_id", request.CorrelationID)
	}

	outboxRepoTx := m.outboxRepo.WithTx(tx)

	entryForOutbox := &audit.Entry{
		ID:              uuid.New(),
		RequestID:       request.RequestID,
		Changes:         request.Changes,
		AffectedRecords: request.AffectedRecords,
		AffectedReports: request.AffectedReports,
		FinancialDelta:  request.FinancialDelta,
		RequestedBy:     request.RequestedBy,
		CorrelationID:   request.CorrelationID,
		Status:          shared.ApplyStatusProcessing,
		CreatedAt:       time.Now(),
		// ProcessedAt is set by the poller
	}

	outboxMessage, err := outbox.NewMessage(entryForOutbox)
	if err != nil {
		logger.Error("Failed to create new outbox message (marshal payload)",
			"request_id", request.RequestID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message payload for request %s: %w", request.RequestID.String(), err)
	}

	if err = outboxRepoTx.Create(ctx, outboxMessage); err != nil {
		logger.Error("Failed to create outbox message",
			"request_id", request.RequestID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message for request %s: %w", request.RequestID.String(), err)
	}
	logger.Info("Outbox message created successfully",
		"request_id", request.RequestID.String(),
		"outbox_id", outboxMessage.ID,
	)

	return nil
}
