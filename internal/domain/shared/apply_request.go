package shared

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNoChanges          = errors.New("apply request carries no classification changes")
	ErrInvalidAccountCode = errors.New("apply request references a malformed account code")
)

// ClassificationChange is one (account_code, new classification) pair inside
// an apply request
type ClassificationChange struct {
	AccountCode       string    `json:"account_code"`
	Category          string    `json:"category"`
	Classification    string    `json:"classification"`
	SubClassification string    `json:"sub_classification"`
	EffectiveFrom     time.Time `json:"effective_from"`
}

// RetroApplyRequest defines a Kafka message asking the retro processor to
// propagate a confirmed batch of classification changes to the historical
// archive. The impact figures come from the planning phase and are carried
// along for the audit trail.
type RetroApplyRequest struct {
	RequestID       uuid.UUID              `json:"request_id"`
	Changes         []ClassificationChange `json:"changes"`
	AffectedRecords int                    `json:"affected_records"`
	AffectedReports []string               `json:"affected_reports"`
	FinancialDelta  decimal.Decimal        `json:"financial_delta"`
	RequestedBy     string                 `json:"requested_by,omitempty"`
	CorrelationID   string                 `json:"correlation_id"`
	Timestamp       time.Time              `json:"timestamp"`
}
