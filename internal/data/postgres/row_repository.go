// Package postgres provides PostgreSQL implementations of the domain repositories.
// It handles all database operations while maintaining transaction safety and
// proper error handling for the classification system.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coa-classifier/internal/domain/ledger"
	"github.com/coa-classifier/internal/platform/persistence"
)

// RowRepository implements the ledger.Repository interface for PostgreSQL
type RowRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewRowRepository creates a new PostgreSQL ledger row repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewRowRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &RowRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// GetByPeriod retrieves every ledger row of one reporting period, ordered by
// account code so downstream grouping sees a stable sequence
func (r *RowRepository) GetByPeriod(ctx context.Context, period string) ([]ledger.Row, error) {
	query := `
		SELECT code, label, amount, flow_type, category, subcategory, detail_class, period
		FROM ledger_rows
		WHERE period = $1
		ORDER BY code
	`

	rows, err := r.querier.Query(ctx, query, period)
	if err != nil {
		r.logger.Error("Failed to query ledger rows", "period", period, "error", err)
		return nil, fmt.Errorf("failed to query ledger rows: %w", err)
	}
	defer rows.Close()

	var result []ledger.Row
	for rows.Next() {
		var row ledger.Row
		err := rows.Scan(
			&row.Code,
			&row.Label,
			&row.Amount,
			&row.FlowType,
			&row.Classification.Category,
			&row.Classification.SubCategory,
			&row.Classification.DetailClass,
			&row.Period,
		)
		if err != nil {
			r.logger.Error("Failed to scan ledger row", "period", period, "error", err)
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger rows: %w", err)
	}

	if len(result) == 0 {
		return nil, ledger.ErrPeriodNotFound{Period: period}
	}

	return result, nil
}

// GetPeriods lists the distinct reporting periods present in the ledger,
// newest first
func (r *RowRepository) GetPeriods(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT period
		FROM ledger_rows
		ORDER BY period DESC
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query periods", "error", err)
		return nil, fmt.Errorf("failed to query periods: %w", err)
	}
	defer rows.Close()

	var periods []string
	for rows.Next() {
		var period string
		if err := rows.Scan(&period); err != nil {
			return nil, fmt.Errorf("failed to scan period: %w", err)
		}
		periods = append(periods, period)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate periods: %w", err)
	}

	return periods, nil
}
