package service

import (
	"context"

	"github.com/coa-classifier/internal/domain/shared"
	"github.com/coa-classifier/internal/engine"
)

// ValidationReport is the combined output of one validation run over a
// reporting period
type ValidationReport struct {
	Period           string                           `json:"period"`
	FamilyCount      int                              `json:"family_count"`
	RowCount         int                              `json:"row_count"`
	Results          []*engine.FamilyValidationResult `json:"results"`
	VarianceFindings []engine.VarianceFinding         `json:"variance_findings"`
	Recommendations  []engine.Recommendation          `json:"recommendations"`
}

// ValidationService defines the interface for classification validation operations
type ValidationService interface {
	// ValidatePeriod loads one period's ledger rows, merges the active rule
	// catalogue, and runs consistency validation plus amount reconciliation
	// over every family. Returns ErrPeriodNotFound if the period has no rows.
	ValidatePeriod(ctx context.Context, period string) (*ValidationReport, error)

	// RecommendFamily returns the classification approach recommendation for
	// one family within a period. Returns nil if the family does not exist.
	RecommendFamily(ctx context.Context, period, familyKey string) (*engine.Recommendation, error)

	// GetPeriods lists the reporting periods available for validation
	GetPeriods(ctx context.Context) ([]string, error)
}

// ApplyService defines the interface for retroactive impact and apply operations
type ApplyService interface {
	// AnalyzeImpact estimates the blast radius of changing one account code's
	// classification across the historical archive
	AnalyzeImpact(ctx context.Context, code string) (*engine.ImpactReport, error)

	// RequestApply validates and enqueues a confirmed batch of classification
	// changes for retroactive processing. The impact figures are computed
	// before enqueueing and carried in the published request. The boolean is
	// true when the request ID was already processed and the returned request
	// reflects the earlier run.
	RequestApply(ctx context.Context, request *shared.RetroApplyRequest) (*shared.RetroApplyRequest, bool, error)
}
