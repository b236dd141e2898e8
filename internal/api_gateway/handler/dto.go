package handler

import "github.com/shopspring/decimal"

// ValidatePeriodRequest represents a request to validate one reporting period
type ValidatePeriodRequest struct {
	Period string `json:"period" binding:"required"`
}

// ClassificationChangeRequest is one account/classification pair inside an
// apply request
type ClassificationChangeRequest struct {
	AccountCode       string `json:"account_code" binding:"required"`
	Category          string `json:"category" binding:"required"`
	Classification    string `json:"classification"`
	SubClassification string `json:"sub_classification"`
	EffectiveFrom     string `json:"effective_from,omitempty"`
}

// ApplyChangesRequest represents a confirmed batch of classification changes
// to apply retroactively
type ApplyChangesRequest struct {
	RequestID   string                        `json:"request_id,omitempty"`
	Changes     []ClassificationChangeRequest `json:"changes" binding:"required"`
	RequestedBy string                        `json:"requested_by,omitempty"`
}

// IssueResponse represents one validation issue in API responses
type IssueResponse struct {
	ID                     string   `json:"id"`
	Type                   string   `json:"type"`
	Severity               string   `json:"severity"`
	FinancialImpact        string   `json:"financial_impact"`
	ParentCode             string   `json:"parent_code"`
	AffectedAccounts       []string `json:"affected_accounts"`
	ClassifiedAccounts     []string `json:"classified_accounts,omitempty"`
	UnclassifiedAccounts   []string `json:"unclassified_accounts,omitempty"`
	CompletenessPercentage float64  `json:"completeness_percentage,omitempty"`
	ResolutionSteps        []string `json:"resolution_steps"`
	AutoFixable            bool     `json:"auto_fixable"`
	PriorityRank           int      `json:"priority_rank"`
	ErrorMessage           string   `json:"error_message"`
	BusinessImpact         string   `json:"business_impact"`
	ActionableResolution   string   `json:"actionable_resolution"`
}

// FamilyResultResponse represents one family's validation outcome
type FamilyResultResponse struct {
	FamilyKey           string          `json:"family_key"`
	FamilyName          string          `json:"family_name"`
	TotalAmount         string          `json:"total_amount"`
	Issues              []IssueResponse `json:"issues"`
	FinancialImpact     string          `json:"financial_impact"`
	RecommendedApproach string          `json:"recommended_approach"`
}

// VarianceFindingResponse represents one amount-reconciliation finding
type VarianceFindingResponse struct {
	FamilyKey          string   `json:"family_key"`
	ParentCode         string   `json:"parent_code"`
	ParentLabel        string   `json:"parent_label"`
	ParentLevel        int      `json:"parent_level"`
	ParentAmount       string   `json:"parent_amount"`
	ChildrenSum        string   `json:"children_sum"`
	Variance           string   `json:"variance"`
	VariancePercentage float64  `json:"variance_percentage"`
	Class              string   `json:"class"`
	Severity           string   `json:"severity"`
	ChildCodes         []string `json:"child_codes"`
	Description        string   `json:"description"`
}

// RecommendationResponse represents a per-family approach recommendation
type RecommendationResponse struct {
	FamilyKey           string   `json:"family_key"`
	FamilyName          string   `json:"family_name"`
	Approach            string   `json:"approach"`
	CurrentCompleteness float64  `json:"current_completeness"`
	SpecificActions     []string `json:"specific_actions"`
}

// ValidationReportResponse represents a full validation run in API responses
type ValidationReportResponse struct {
	Period           string                    `json:"period"`
	FamilyCount      int                       `json:"family_count"`
	RowCount         int                       `json:"row_count"`
	Results          []FamilyResultResponse    `json:"results"`
	VarianceFindings []VarianceFindingResponse `json:"variance_findings"`
	Recommendations  []RecommendationResponse  `json:"recommendations"`
}

// PeriodListResponse represents the available reporting periods
type PeriodListResponse struct {
	Periods []string `json:"periods"`
}

// ImpactReportResponse represents a retroactive impact analysis in API
// responses
type ImpactReportResponse struct {
	AccountCode          string   `json:"account_code"`
	AffectedRecords      int      `json:"affected_records"`
	AffectedReports      []string `json:"affected_reports"`
	TotalFinancialImpact string   `json:"total_financial_impact"`
}

// ApplyAcceptedResponse represents an enqueued apply request
type ApplyAcceptedResponse struct {
	RequestID       string          `json:"request_id"`
	Status          string          `json:"status"`
	AffectedRecords int             `json:"affected_records"`
	AffectedReports []string        `json:"affected_reports"`
	FinancialDelta  decimal.Decimal `json:"financial_delta"`
}
