package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/coa-classifier/internal/domain/classification"
	"github.com/coa-classifier/internal/domain/shared"
	"github.com/coa-classifier/internal/retro_processor/service"
)

// RuleUpdaterImpl implements the RuleUpdater interface
type RuleUpdaterImpl struct {
	ruleRepo classification.Repository
	logger   *slog.Logger
}

// NewRuleUpdater creates a new RuleUpdaterImpl
func NewRuleUpdater(ruleRepo classification.Repository, logger *slog.Logger) service.RuleUpdater {
	return &RuleUpdaterImpl{
		ruleRepo: ruleRepo,
		logger:   logger,
	}
}

// ApplyRules deactivates superseded catalogue rules and inserts the new
// versions inside the supplied transaction
func (u *RuleUpdaterImpl) ApplyRules(ctx context.Context, tx pgx.Tx, request *shared.RetroApplyRequest) error {
	logger := u.logger
	if request.CorrelationID != "" {
		logger = u.logger.With("correlation_id", request.CorrelationID)
	}

	ruleRepoTx := u.ruleRepo.WithTx(tx)

	changes := make([]classification.Change, 0, len(request.Changes))
	for _, ch := range request.Changes {
		changes = append(changes, classification.Change{
			AccountCode:       ch.AccountCode,
			Category:          ch.Category,
			Classification:    ch.Classification,
			SubClassification: ch.SubClassification,
			EffectiveFrom:     ch.EffectiveFrom,
		})
	}

	if err := ruleRepoTx.ApplyChanges(ctx, changes); err != nil {
		logger.Error("Failed to commit rule changes",
			"request_id", request.RequestID.String(),
			"changes", len(changes),
			"error", err,
		)
		return fmt.Errorf("failed to apply %d rule changes for request %s: %w", len(changes), request.RequestID.String(), err)
	}

	logger.Info("Rule changes staged in transaction",
		"request_id", request.RequestID.String(),
		"changes", len(changes),
	)
	return nil
}
