package ledger

import (
	"context"
)

// Repository provides read access to the current ledger rows held in
// PostgreSQL. The engine itself never touches this interface; services
// materialize full slices before handing them over.
type Repository interface {
	GetByPeriod(ctx context.Context, period string) ([]Row, error)
	GetPeriods(ctx context.Context) ([]string, error)
}

// HistoryRepository provides read access to the historical row archive in
// MongoDB, spanning all prior reporting periods. Used for retroactive
// impact analysis and for re-tagging rows after a confirmed apply.
type HistoryRepository interface {
	GetByAccountCode(ctx context.Context, code string) ([]HistoricalRow, error)
	UpdateClassificationByCode(ctx context.Context, code string, classification Classification) (int64, error)
}

// ErrPeriodNotFound indicates a reporting period with no ledger rows
type ErrPeriodNotFound struct {
	Period string
}

func (e ErrPeriodNotFound) Error() string {
	return "no ledger rows found for period: " + e.Period
}

// Is implements the errors.Is interface for ErrPeriodNotFound
func (e ErrPeriodNotFound) Is(target error) bool {
	t, ok := target.(ErrPeriodNotFound)
	if !ok {
		return false
	}
	if t.Period == "" {
		return true
	}
	return e.Period == t.Period
}
