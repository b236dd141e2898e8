package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/coa-classifier/internal/domain/classification"
	"github.com/coa-classifier/internal/platform/persistence"
)

// RuleRepository implements the classification.Repository interface for PostgreSQL
type RuleRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewRuleRepository creates a new PostgreSQL classification rule repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewRuleRepository(logger *slog.Logger, db *persistence.PostgresDB) classification.Repository {
	return &RuleRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic operations
// across multiple repository calls. The returned repository will use the provided
// transaction for all database operations.
func (r *RuleRepository) WithTx(tx pgx.Tx) classification.Repository {
	return &RuleRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetActive retrieves the full active rule catalogue, ordered by account code
func (r *RuleRepository) GetActive(ctx context.Context) ([]classification.Rule, error) {
	query := `
		SELECT id, account_code, category, classification, sub_classification, effective_from, is_active, created_at
		FROM classification_rules
		WHERE is_active = TRUE
		ORDER BY account_code, effective_from DESC
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query active classification rules", "error", err)
		return nil, fmt.Errorf("failed to query active classification rules: %w", err)
	}
	defer rows.Close()

	var rules []classification.Rule
	for rows.Next() {
		var rule classification.Rule
		err := rows.Scan(
			&rule.ID,
			&rule.AccountCode,
			&rule.Category,
			&rule.Classification,
			&rule.SubClassification,
			&rule.EffectiveFrom,
			&rule.IsActive,
			&rule.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan classification rule", "error", err)
			return nil, fmt.Errorf("failed to scan classification rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate classification rules: %w", err)
	}

	return rules, nil
}

// GetByAccountCode retrieves the newest active rule for one account code
func (r *RuleRepository) GetByAccountCode(ctx context.Context, code string) (*classification.Rule, error) {
	query := `
		SELECT id, account_code, category, classification, sub_classification, effective_from, is_active, created_at
		FROM classification_rules
		WHERE account_code = $1 AND is_active = TRUE
		ORDER BY effective_from DESC
		LIMIT 1
	`

	var rule classification.Rule
	err := r.querier.QueryRow(ctx, query, code).Scan(
		&rule.ID,
		&rule.AccountCode,
		&rule.Category,
		&rule.Classification,
		&rule.SubClassification,
		&rule.EffectiveFrom,
		&rule.IsActive,
		&rule.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, classification.ErrRuleNotFound{AccountCode: code}
		}
		r.logger.Error("Failed to get classification rule", "account_code", code, "error", err)
		return nil, fmt.Errorf("failed to get classification rule: %w", err)
	}

	return &rule, nil
}

// ApplyChanges deactivates any existing rules for the changed codes and
// inserts the new versions. Callers run it through WithTx so the batch
// commits atomically with its outbox message.
func (r *RuleRepository) ApplyChanges(ctx context.Context, changes []classification.Change) error {
	deactivate := `
		UPDATE classification_rules
		SET is_active = FALSE
		WHERE account_code = $1 AND is_active = TRUE
	`
	insert := `
		INSERT INTO classification_rules (id, account_code, category, classification, sub_classification, effective_from, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW())
	`

	for _, change := range changes {
		if _, err := r.querier.Exec(ctx, deactivate, change.AccountCode); err != nil {
			r.logger.Error("Failed to deactivate classification rules", "account_code", change.AccountCode, "error", err)
			return fmt.Errorf("failed to deactivate classification rules: %w", err)
		}

		_, err := r.querier.Exec(ctx, insert,
			uuid.New(),
			change.AccountCode,
			change.Category,
			change.Classification,
			change.SubClassification,
			change.EffectiveFrom,
		)
		if err != nil {
			r.logger.Error("Failed to insert classification rule", "account_code", change.AccountCode, "error", err)
			return fmt.Errorf("failed to insert classification rule: %w", err)
		}
	}

	return nil
}
