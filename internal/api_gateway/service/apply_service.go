package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coa-classifier/internal/domain/account"
	"github.com/coa-classifier/internal/domain/audit"
	"github.com/coa-classifier/internal/domain/ledger"
	"github.com/coa-classifier/internal/domain/shared"
	"github.com/coa-classifier/internal/engine"
	"github.com/coa-classifier/internal/platform/messaging/producers"
)

// ApplyServiceImpl implements the ApplyService interface
type ApplyServiceImpl struct {
	historyRepo ledger.HistoryRepository
	auditRepo   audit.Repository
	producer    producers.MessagePublisher
	logger      *slog.Logger
}

// NewApplyService creates a new retroactive apply service
func NewApplyService(
	logger *slog.Logger,
	historyRepo ledger.HistoryRepository,
	auditRepo audit.Repository,
	producer producers.MessagePublisher,
) ApplyService {
	return &ApplyServiceImpl{
		historyRepo: historyRepo,
		auditRepo:   auditRepo,
		producer:    producer,
		logger:      logger,
	}
}

// AnalyzeImpact estimates how many historical records and reports a
// classification change for one account code would touch. Code format is
// validated here, at the boundary, so the engine never sees malformed input.
func (s *ApplyServiceImpl) AnalyzeImpact(ctx context.Context, code string) (*engine.ImpactReport, error) {
	if err := account.Validate(code); err != nil {
		return nil, err
	}

	history, err := s.historyRepo.GetByAccountCode(ctx, code)
	if err != nil {
		s.logger.Error("Failed to load historical rows for impact analysis",
			"code", code,
			"error", err,
		)
		return nil, err
	}

	report := engine.AnalyzeImpact(code, history)
	s.logger.Info("Impact analysis completed",
		"code", code,
		"affected_records", report.AffectedRecords,
		"affected_reports", len(report.AffectedReports),
	)
	return &report, nil
}

// RequestApply validates the change batch, computes its aggregate impact,
// and publishes the enriched request for the retro processor. Requests whose
// ID already appears in the audit trail are not re-published; the earlier
// run's figures are returned instead.
func (s *ApplyServiceImpl) RequestApply(ctx context.Context, request *shared.RetroApplyRequest) (*shared.RetroApplyRequest, bool, error) {
	if len(request.Changes) == 0 {
		return nil, false, shared.ErrNoChanges
	}
	for _, change := range request.Changes {
		if err := account.Validate(change.AccountCode); err != nil {
			s.logger.Error("Apply request carries malformed account code",
				"request_id", request.RequestID.String(),
				"account_code", change.AccountCode,
			)
			return nil, false, shared.ErrInvalidAccountCode
		}
	}

	existing, err := s.auditRepo.GetByRequestID(ctx, request.RequestID)
	if err != nil && !errors.Is(err, audit.ErrEntryNotFound{}) {
		s.logger.Error("Failed to check apply request idempotency",
			"request_id", request.RequestID.String(),
			"error", err,
		)
		return nil, false, err
	}
	if existing != nil {
		s.logger.Info("Apply request already processed",
			"request_id", request.RequestID.String(),
			"status", string(existing.Status),
		)
		return requestFromAuditEntry(existing), true, nil
	}

	records := 0
	reports := make(map[string]bool)
	delta := decimal.Zero
	for _, change := range request.Changes {
		impact, err := s.AnalyzeImpact(ctx, change.AccountCode)
		if err != nil {
			return nil, false, err
		}
		records += impact.AffectedRecords
		for _, reportID := range impact.AffectedReports {
			reports[reportID] = true
		}
		delta = delta.Add(impact.TotalFinancialImpact)
	}

	request.AffectedRecords = records
	request.AffectedReports = sortedReportIDs(reports)
	request.FinancialDelta = delta
	request.Timestamp = time.Now()

	key := request.RequestID.String()
	if err := s.producer.Publish(ctx, key, request); err != nil {
		s.logger.Error("Failed to publish apply request",
			"request_id", key,
			"changes", len(request.Changes),
			"error", err,
		)
		return nil, false, err
	}

	s.logger.Info("Apply request published",
		"request_id", key,
		"changes", len(request.Changes),
		"affected_records", request.AffectedRecords,
		"affected_reports", len(request.AffectedReports),
	)
	return request, false, nil
}

// requestFromAuditEntry reconstructs the apply request view of an already
// processed audit entry for idempotent responses
func requestFromAuditEntry(entry *audit.Entry) *shared.RetroApplyRequest {
	return &shared.RetroApplyRequest{
		RequestID:       entry.RequestID,
		Changes:         entry.Changes,
		AffectedRecords: entry.AffectedRecords,
		AffectedReports: entry.AffectedReports,
		FinancialDelta:  entry.FinancialDelta,
		RequestedBy:     entry.RequestedBy,
		CorrelationID:   entry.CorrelationID,
		Timestamp:       entry.CreatedAt,
	}
}

func sortedReportIDs(reports map[string]bool) []string {
	ids := make([]string, 0, len(reports))
	for id := range reports {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
