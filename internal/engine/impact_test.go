package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/coa-classifier/internal/domain/ledger"
)

func histRow(id, reportID, code string, amount int64) ledger.HistoricalRow {
	return ledger.HistoricalRow{
		Row: ledger.Row{
			Code:   code,
			Label:  "Cemento Gris",
			Amount: decimal.NewFromInt(amount),
		},
		ID:       id,
		ReportID: reportID,
	}
}

func TestAnalyzeImpact(t *testing.T) {
	history := []ledger.HistoricalRow{
		histRow("r1", "2025-01", "5000-1000-001-001", 120_000),
		histRow("r2", "2025-01", "5000-1000-001-001", -55_300),
		histRow("r3", "2025-02", "5000-1000-001-001", 98_000),
		histRow("r4", "2025-02", "5000-1000-001-001", 64_000),
		histRow("r5", "2025-03", "5000-1000-001-001", 100_000),
		histRow("r6", "2025-03", "5000-1000-001-001", 45_000),
		// Other codes in the same reports must not count
		histRow("r7", "2025-01", "5000-1000-001-002", 999_999),
		histRow("r8", "2025-04", "6000-2001-001-001", 500_000),
	}

	report := AnalyzeImpact("5000-1000-001-001", history)

	assert.Equal(t, "5000-1000-001-001", report.AccountCode)
	assert.Equal(t, 6, report.AffectedRecords)
	assert.Equal(t, []string{"2025-01", "2025-02", "2025-03"}, report.AffectedReports)
	assert.Equal(t, []string{"r1", "r2", "r3", "r4", "r5", "r6"}, report.AffectedRowIDs)
	// Impact is the sum of absolute amounts: reversals widen the blast
	// radius, they do not cancel it
	assert.True(t, report.TotalFinancialImpact.Equal(decimal.NewFromInt(482_300)),
		"got %s", report.TotalFinancialImpact)
}

func TestAnalyzeImpact_NoHistory(t *testing.T) {
	report := AnalyzeImpact("5000-1000-001-001", nil)

	assert.Equal(t, 0, report.AffectedRecords)
	assert.Empty(t, report.AffectedReports)
	assert.Empty(t, report.AffectedRowIDs)
	assert.True(t, report.TotalFinancialImpact.IsZero())
}

func TestAnalyzeImpact_ReportsAreDistinctAndSorted(t *testing.T) {
	history := []ledger.HistoricalRow{
		histRow("b2", "2025-03", "5000-1000-001-001", 10),
		histRow("b1", "2025-01", "5000-1000-001-001", 10),
		histRow("b3", "2025-03", "5000-1000-001-001", 10),
	}

	report := AnalyzeImpact("5000-1000-001-001", history)

	assert.Equal(t, 3, report.AffectedRecords)
	assert.Equal(t, []string{"2025-01", "2025-03"}, report.AffectedReports)
	assert.Equal(t, []string{"b1", "b2", "b3"}, report.AffectedRowIDs)
}
