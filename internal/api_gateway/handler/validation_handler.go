package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/coa-classifier/internal/api_gateway/service"
	"github.com/coa-classifier/internal/domain/ledger"
	"github.com/coa-classifier/internal/engine"
)

// ValidationHandler handles HTTP requests for period validation runs
type ValidationHandler struct {
	validationService service.ValidationService
	logger            *slog.Logger
}

// NewValidationHandler creates a new validation handler
func NewValidationHandler(logger *slog.Logger, validationService service.ValidationService) *ValidationHandler {
	return &ValidationHandler{
		validationService: validationService,
		logger:            logger,
	}
}

// Validate runs the full validation pipeline for one reporting period
func (h *ValidationHandler) Validate(c *gin.Context) {
	var req ValidatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	report, err := h.validationService.ValidatePeriod(c.Request.Context(), req.Period)
	if err != nil {
		if errors.Is(err, ledger.ErrPeriodNotFound{}) {
			RespondNotFound(c, "No ledger rows found for period "+req.Period)
			return
		}
		h.logger.Error("Validation run failed", "period", req.Period, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapValidationReportToResponse(report))
}

// GetPeriods lists the reporting periods available for validation
func (h *ValidationHandler) GetPeriods(c *gin.Context) {
	periods, err := h.validationService.GetPeriods(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list periods", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, PeriodListResponse{Periods: periods})
}

// RecommendFamily returns the classification approach recommendation for one
// family within a period, 404 if the period holds no rows for it
func (h *ValidationHandler) RecommendFamily(c *gin.Context) {
	familyKey := c.Param("key")
	period := c.Query("period")
	if period == "" {
		RespondBadRequest(c, "Query parameter 'period' is required")
		return
	}

	rec, err := h.validationService.RecommendFamily(c.Request.Context(), period, familyKey)
	if err != nil {
		if errors.Is(err, ledger.ErrPeriodNotFound{}) {
			RespondNotFound(c, "No ledger rows found for period "+period)
			return
		}
		h.logger.Error("Failed to build recommendation", "period", period, "family_key", familyKey, "error", err)
		RespondInternalError(c)
		return
	}

	if rec == nil {
		RespondNotFound(c, "Family not found in period")
		return
	}

	RespondOK(c, mapRecommendationToResponse(*rec))
}

func mapValidationReportToResponse(report *service.ValidationReport) ValidationReportResponse {
	results := make([]FamilyResultResponse, 0, len(report.Results))
	for _, r := range report.Results {
		results = append(results, mapFamilyResultToResponse(r))
	}

	findings := make([]VarianceFindingResponse, 0, len(report.VarianceFindings))
	for _, f := range report.VarianceFindings {
		findings = append(findings, VarianceFindingResponse{
			FamilyKey:          f.FamilyKey,
			ParentCode:         f.ParentCode,
			ParentLabel:        f.ParentLabel,
			ParentLevel:        f.ParentLevel,
			ParentAmount:       f.ParentAmount.String(),
			ChildrenSum:        f.ChildrenSum.String(),
			Variance:           f.Variance.String(),
			VariancePercentage: f.VariancePercentage,
			Class:              string(f.Class),
			Severity:           string(f.Severity),
			ChildCodes:         f.ChildCodes,
			Description:        f.Description,
		})
	}

	recommendations := make([]RecommendationResponse, 0, len(report.Recommendations))
	for _, rec := range report.Recommendations {
		recommendations = append(recommendations, mapRecommendationToResponse(rec))
	}

	return ValidationReportResponse{
		Period:           report.Period,
		FamilyCount:      report.FamilyCount,
		RowCount:         report.RowCount,
		Results:          results,
		VarianceFindings: findings,
		Recommendations:  recommendations,
	}
}

func mapFamilyResultToResponse(r *engine.FamilyValidationResult) FamilyResultResponse {
	issues := make([]IssueResponse, 0, len(r.Issues))
	for _, issue := range r.Issues {
		issues = append(issues, IssueResponse{
			ID:                     issue.ID.String(),
			Type:                   string(issue.Type),
			Severity:               string(issue.Severity),
			FinancialImpact:        issue.FinancialImpact.String(),
			ParentCode:             issue.ParentCode,
			AffectedAccounts:       issue.AffectedAccounts,
			ClassifiedAccounts:     issue.ClassifiedAccounts,
			UnclassifiedAccounts:   issue.UnclassifiedAccounts,
			CompletenessPercentage: issue.CompletenessPercentage,
			ResolutionSteps:        issue.ResolutionSteps,
			AutoFixable:            issue.AutoFixable,
			PriorityRank:           issue.PriorityRank,
			ErrorMessage:           issue.ErrorMessage,
			BusinessImpact:         issue.BusinessImpact,
			ActionableResolution:   issue.ActionableResolution,
		})
	}

	return FamilyResultResponse{
		FamilyKey:           r.FamilyKey,
		FamilyName:          r.FamilyName,
		TotalAmount:         r.TotalAmount.String(),
		Issues:              issues,
		FinancialImpact:     r.FinancialImpact.String(),
		RecommendedApproach: string(r.RecommendedApproach),
	}
}

func mapRecommendationToResponse(rec engine.Recommendation) RecommendationResponse {
	return RecommendationResponse{
		FamilyKey:           rec.FamilyKey,
		FamilyName:          rec.FamilyName,
		Approach:            string(rec.Approach),
		CurrentCompleteness: rec.CurrentCompleteness,
		SpecificActions:     rec.SpecificActions,
	}
}
