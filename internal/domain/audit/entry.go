// Package audit models the audit trail written whenever a confirmed
// classification change is applied retroactively.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coa-classifier/internal/domain/shared"
)

// Entry is one audit log record for a retroactive classification apply
type Entry struct {
	ID              uuid.UUID                     `json:"id" bson:"id"`
	RequestID       uuid.UUID                     `json:"request_id" bson:"request_id"`
	Changes         []shared.ClassificationChange `json:"changes" bson:"changes"`
	AffectedRecords int                           `json:"affected_records" bson:"affected_records"`
	AffectedReports []string                      `json:"affected_reports" bson:"affected_reports"`
	FinancialDelta  decimal.Decimal               `json:"financial_delta" bson:"financial_delta"`
	RequestedBy     string                        `json:"requested_by,omitempty" bson:"requested_by,omitempty"`
	CorrelationID   string                        `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	Status          shared.ApplyStatus            `json:"status" bson:"status"`
	FailureReason   string                        `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	CreatedAt       time.Time                     `json:"created_at" bson:"created_at"`
	ProcessedAt     *time.Time                    `json:"processed_at,omitempty" bson:"processed_at,omitempty"`
}

// Repository manages audit entry persistence
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByRequestID(ctx context.Context, requestID uuid.UUID) (*Entry, error)
	UpdateStatus(ctx context.Context, requestID uuid.UUID, status shared.ApplyStatus, reason string) error
}

// ErrEntryNotFound indicates a missing audit entry
type ErrEntryNotFound struct {
	RequestID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "audit entry not found: " + e.RequestID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.RequestID == uuid.Nil {
		return true
	}
	return e.RequestID == t.RequestID
}

// ErrDuplicateEntry indicates request uniqueness violation
type ErrDuplicateEntry struct {
	RequestID uuid.UUID
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate audit entry: " + e.RequestID.String()
}

// Is implements the errors.Is interface for ErrDuplicateEntry
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	if t.RequestID == uuid.Nil {
		return true
	}
	return e.RequestID == t.RequestID
}
