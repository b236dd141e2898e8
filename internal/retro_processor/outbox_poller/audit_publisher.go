package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coa-classifier/internal/domain/audit"
	"github.com/coa-classifier/internal/domain/outbox"
	"github.com/coa-classifier/internal/domain/shared"
)

// AuditPublisher publishes outbox messages to the audit trail
type AuditPublisher interface {
	PublishToAuditTrail(ctx context.Context, message *outbox.Message) error
}

// AuditPublisherImpl implements AuditPublisher
type AuditPublisherImpl struct {
	outboxRepo outbox.Repository
	auditRepo  audit.Repository
	logger     *slog.Logger
}

// NewAuditPublisher creates a new publisher
func NewAuditPublisher(
	outboxRepo outbox.Repository,
	auditRepo audit.Repository,
	logger *slog.Logger,
) AuditPublisher {
	return &AuditPublisherImpl{
		outboxRepo: outboxRepo,
		auditRepo:  auditRepo,
		logger:     logger,
	}
}

// PublishToAuditTrail writes the audit entry carried by an outbox message
// into the audit trail and marks the message processed
func (p *AuditPublisherImpl) PublishToAuditTrail(ctx context.Context, message *outbox.Message) error {
	entryToPublish, err := message.GetAuditEntry()
	if err != nil {
		p.logger.Error("Failed to unmarshal audit entry from outbox payload",
			"outbox_id", message.ID, "request_id", message.RequestID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	// Add correlation ID to logger
	logger := p.logger
	if entryToPublish.CorrelationID != "" {
		logger = p.logger.With("correlation_id", entryToPublish.CorrelationID)
	}

	logger.Info("Attempting to publish outbox message to audit trail", "outbox_id", message.ID, "request_id", message.RequestID)

	entryToPublish.Status = shared.ApplyStatusCompleted
	now := time.Now().UTC()
	entryToPublish.ProcessedAt = &now

	existingEntry, err := p.auditRepo.GetByRequestID(ctx, entryToPublish.RequestID)
	if err != nil && !errors.Is(err, audit.ErrEntryNotFound{}) {
		logger.Error("Failed to check existing audit entry before publishing", "request_id", entryToPublish.RequestID, "error", err)
		return fmt.Errorf("failed to check existing audit entry %s: %w", entryToPublish.RequestID, err)
	}

	if existingEntry != nil {
		if existingEntry.Status == shared.ApplyStatusCompleted {
			logger.Info("Audit entry already COMPLETED", "request_id", entryToPublish.RequestID)
		} else {
			// Update existing entry status
			err = p.auditRepo.UpdateStatus(ctx, entryToPublish.RequestID, shared.ApplyStatusCompleted, "") // Empty reason for success
			if err != nil {
				logger.Error("Failed to update existing audit entry to COMPLETED", "request_id", entryToPublish.RequestID, "error", err)
				return fmt.Errorf("failed to update audit entry %s to COMPLETED: %w", entryToPublish.RequestID, err)
			}
			logger.Info("Updated existing audit entry to COMPLETED", "request_id", entryToPublish.RequestID)
		}
	} else {
		// Create new audit entry
		err = p.auditRepo.Create(ctx, entryToPublish) // entryToPublish already has status=COMPLETED and ProcessedAt set
		if err != nil {
			logger.Error("Failed to create audit entry in MongoDB", "request_id", entryToPublish.RequestID, "error", err)
			return fmt.Errorf("failed to create audit entry %s: %w", entryToPublish.RequestID, err)
		}
		logger.Info("Successfully created audit entry in MongoDB", "request_id", entryToPublish.RequestID)
	}

	// Mark outbox message as processed
	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "request_id", message.RequestID, "error", err,
		)
		return fmt.Errorf("audit write for %s OK, but failed to mark outbox %d as PROCESSED: %w", message.RequestID, message.ID, err)
	}

	logger.Info("Outbox message successfully processed and marked as PROCESSED", "outbox_id", message.ID, "request_id", message.RequestID)
	return nil
}
