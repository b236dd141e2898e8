package components

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coa-classifier/internal/domain/audit"
	"github.com/coa-classifier/internal/domain/shared"
	"github.com/coa-classifier/internal/retro_processor/service"
)

type FailureRecorderImpl struct {
	auditRepo audit.Repository
	logger    *slog.Logger
}

func NewFailureRecorder(auditRepo audit.Repository, logger *slog.Logger) service.FailureRecorder {
	return &FailureRecorderImpl{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// RecordFailure records a failed apply request in the audit trail
func (r *FailureRecorderImpl) RecordFailure(ctx context.Context, request *shared.RetroApplyRequest, failureReason string) error {
	logger := r.logger
	if request.CorrelationID != "" {
		logger = r.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Recording failed apply request", "request_id", request.RequestID.String(), "reason", failureReason)

	now := time.Now()
	entry := &audit.Entry{
		ID:              uuid.New(),
		RequestID:       request.RequestID,
		Changes:         request.Changes,
		AffectedRecords: request.AffectedRecords,
		AffectedReports: request.AffectedReports,
		FinancialDelta:  request.FinancialDelta,
		RequestedBy:     request.RequestedBy,
		CorrelationID:   request.CorrelationID,
		Status:          shared.ApplyStatusFailed,
		FailureReason:   failureReason,
		CreatedAt:       request.Timestamp,
		ProcessedAt:     &now,
	}

	existingEntry, err := r.auditRepo.GetByRequestID(ctx, request.RequestID)
	if err != nil && !errors.Is(err, audit.ErrEntryNotFound{}) {
		logger.Error("Failed to get existing audit entry for failed apply request", "request_id", request.RequestID.String(), "error", err)
	}

	if existingEntry != nil {
		if existingEntry.Status != shared.ApplyStatusFailed {
			logger.Info("Updating existing audit entry to FAILED", "request_id", request.RequestID.String())
			updateErr := r.auditRepo.UpdateStatus(ctx, request.RequestID, shared.ApplyStatusFailed, failureReason)
			if updateErr != nil {
				logger.Error("Failed to update audit entry to FAILED", "request_id", request.RequestID.String(), "error", updateErr)
				return updateErr
			}
			logger.Info("Successfully updated audit entry to FAILED", "request_id", request.RequestID.String())
			return nil
		}
		logger.Info("Audit entry already marked as FAILED", "request_id", request.RequestID.String())
		return nil
	}

	logger.Info("Creating new FAILED audit entry", "request_id", request.RequestID.String())
	createErr := r.auditRepo.Create(ctx, entry)
	if createErr != nil {
		logger.Error("Failed to create FAILED audit entry", "request_id", request.RequestID.String(), "error", createErr)
		return createErr
	}
	logger.Info("Successfully created FAILED audit entry", "request_id", request.RequestID.String())
	return nil
}
