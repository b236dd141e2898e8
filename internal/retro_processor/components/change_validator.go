package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coa-classifier/internal/domain/account"
	"github.com/coa-classifier/internal/domain/audit"
	"github.com/coa-classifier/internal/domain/shared"
	"github.com/coa-classifier/internal/retro_processor/service"
)

type ChangeValidatorImpl struct {
	auditRepo audit.Repository
	logger    *slog.Logger
}

func NewChangeValidator(auditRepo audit.Repository, logger *slog.Logger) service.ChangeValidator {
	return &ChangeValidatorImpl{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// Validate checks apply request validity
func (v *ChangeValidatorImpl) Validate(ctx context.Context, request *shared.RetroApplyRequest) error {
	logger := v.logger
	if request.CorrelationID != "" {
		logger = v.logger.With("correlation_id", request.CorrelationID)
	}

	if len(request.Changes) == 0 {
		logger.Error("Apply request carries no changes", "request_id", request.RequestID.String())
		return shared.ErrNoChanges
	}

	for _, change := range request.Changes {
		if err := account.Validate(change.AccountCode); err != nil {
			logger.Error("Malformed account code in apply request",
				"request_id", request.RequestID.String(),
				"account_code", change.AccountCode,
			)
			return fmt.Errorf("change for account %q: %w", change.AccountCode, shared.ErrInvalidAccountCode)
		}
		if change.Category == "" {
			logger.Error("Change without category", "request_id", request.RequestID.String(), "account_code", change.AccountCode)
			return fmt.Errorf("change for account %s carries no category: %w", change.AccountCode, shared.ErrInvalidAccountCode)
		}
	}

	return nil
}

// CheckIdempotency checks if the apply request was already processed
func (v *ChangeValidatorImpl) CheckIdempotency(ctx context.Context, request *shared.RetroApplyRequest) (bool, error) {
	logger := v.logger
	if request.CorrelationID != "" {
		logger = v.logger.With("correlation_id", request.CorrelationID)
	}

	existingEntry, err := v.auditRepo.GetByRequestID(ctx, request.RequestID)
	if err != nil && !errors.Is(err, audit.ErrEntryNotFound{}) {
		logger.Error("Failed to check audit trail for idempotency", "request_id", request.RequestID.String(), "error", err)
		return false, fmt.Errorf("idempotency check failed for request %s: %w", request.RequestID.String(), err)
	}

	if existingEntry != nil {
		if existingEntry.Status == shared.ApplyStatusCompleted || existingEntry.Status == shared.ApplyStatusFailed {
			logger.Info("Apply request already processed (idempotency)", "request_id", request.RequestID.String(), "status", existingEntry.Status)
			return true, nil // Skip processing
		}
		logger.Info("Apply request found in audit trail with non-terminal status, proceeding", "request_id", request.RequestID.String(), "status", existingEntry.Status)
	}

	return false, nil // Continue processing
}
