package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coa-classifier/internal/domain/ledger"
	"github.com/coa-classifier/internal/domain/shared"
	"github.com/coa-classifier/internal/retro_processor/service"
)

// HistoryRetaggerImpl implements the HistoryRetagger interface
type HistoryRetaggerImpl struct {
	historyRepo ledger.HistoryRepository
	logger      *slog.Logger
}

// NewHistoryRetagger creates a new HistoryRetaggerImpl
func NewHistoryRetagger(historyRepo ledger.HistoryRepository, logger *slog.Logger) service.HistoryRetagger {
	return &HistoryRetaggerImpl{
		historyRepo: historyRepo,
		logger:      logger,
	}
}

// RetagHistory rewrites the classification of every historical row carrying
// a changed account code. Returns the total number of rows modified.
func (r *HistoryRetaggerImpl) RetagHistory(ctx context.Context, request *shared.RetroApplyRequest) (int64, error) {
	logger := r.logger
	if request.CorrelationID != "" {
		logger = r.logger.With("correlation_id", request.CorrelationID)
	}

	var total int64
	for _, change := range request.Changes {
		classification := ledger.Classification{
			Category:    change.Category,
			SubCategory: change.Classification,
			DetailClass: change.SubClassification,
		}

		modified, err := r.historyRepo.UpdateClassificationByCode(ctx, change.AccountCode, classification)
		if err != nil {
			logger.Error("Failed to retag historical rows",
				"request_id", request.RequestID.String(),
				"account_code", change.AccountCode,
				"retagged_so_far", total,
				"error", err,
			)
			return total, fmt.Errorf("failed to retag history for account %s: %w", change.AccountCode, err)
		}

		logger.Info("Historical rows retagged",
			"request_id", request.RequestID.String(),
			"account_code", change.AccountCode,
			"modified", modified,
		)
		total += modified
	}

	return total, nil
}
