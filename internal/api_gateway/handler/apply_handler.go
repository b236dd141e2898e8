package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coa-classifier/internal/api_gateway/middleware"
	"github.com/coa-classifier/internal/api_gateway/service"
	"github.com/coa-classifier/internal/domain/account"
	"github.com/coa-classifier/internal/domain/shared"
)

// ApplyHandler handles HTTP requests for retroactive impact analysis and
// apply requests
type ApplyHandler struct {
	applyService service.ApplyService
	logger       *slog.Logger
}

// NewApplyHandler creates a new apply handler
func NewApplyHandler(logger *slog.Logger, applyService service.ApplyService) *ApplyHandler {
	return &ApplyHandler{
		applyService: applyService,
		logger:       logger,
	}
}

// AnalyzeImpact previews how many historical records and reports a
// classification change for one account code would touch
func (h *ApplyHandler) AnalyzeImpact(c *gin.Context) {
	code := c.Param("code")

	report, err := h.applyService.AnalyzeImpact(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, account.ErrMalformedCode{}) {
			h.logger.Error("Invalid account code", "code", code, "error", err)
			RespondBadRequest(c, "Invalid account code: "+code)
			return
		}
		h.logger.Error("Impact analysis failed", "code", code, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, ImpactReportResponse{
		AccountCode:          report.AccountCode,
		AffectedRecords:      report.AffectedRecords,
		AffectedReports:      report.AffectedReports,
		TotalFinancialImpact: report.TotalFinancialImpact.String(),
	})
}

// Apply enqueues a confirmed batch of classification changes for retroactive
// processing. A request ID may be supplied for idempotent retries; replays
// of an already-processed ID return the original outcome with 200 instead of
// re-enqueueing.
func (h *ApplyHandler) Apply(c *gin.Context) {
	var req ApplyChangesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	requestID := uuid.New()
	if req.RequestID != "" {
		parsed, err := uuid.Parse(req.RequestID)
		if err != nil {
			h.logger.Error("Invalid request ID", "request_id", req.RequestID, "error", err)
			RespondBadRequest(c, "Invalid request ID")
			return
		}
		requestID = parsed
	}

	changes := make([]shared.ClassificationChange, 0, len(req.Changes))
	for _, ch := range req.Changes {
		effectiveFrom := time.Now()
		if ch.EffectiveFrom != "" {
			parsed, err := time.Parse(time.RFC3339, ch.EffectiveFrom)
			if err != nil {
				RespondBadRequest(c, "Invalid effective_from for account "+ch.AccountCode+", expected RFC 3339")
				return
			}
			effectiveFrom = parsed
		}
		changes = append(changes, shared.ClassificationChange{
			AccountCode:       ch.AccountCode,
			Category:          ch.Category,
			Classification:    ch.Classification,
			SubClassification: ch.SubClassification,
			EffectiveFrom:     effectiveFrom,
		})
	}

	applyRequest := &shared.RetroApplyRequest{
		RequestID:     requestID,
		Changes:       changes,
		RequestedBy:   req.RequestedBy,
		CorrelationID: middleware.GetCorrelationID(c),
		Timestamp:     time.Now(),
	}

	enriched, replayed, err := h.applyService.RequestApply(c.Request.Context(), applyRequest)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrNoChanges):
			RespondBadRequest(c, "Apply request carries no classification changes")
		case errors.Is(err, shared.ErrInvalidAccountCode):
			RespondBadRequest(c, "Apply request references a malformed account code")
		default:
			h.logger.Error("Failed to enqueue apply request", "request_id", requestID.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	response := ApplyAcceptedResponse{
		RequestID:       enriched.RequestID.String(),
		Status:          string(shared.ApplyStatusPending),
		AffectedRecords: enriched.AffectedRecords,
		AffectedReports: enriched.AffectedReports,
		FinancialDelta:  enriched.FinancialDelta,
	}

	if replayed {
		RespondOK(c, response)
		return
	}
	RespondAccepted(c, response)
}
