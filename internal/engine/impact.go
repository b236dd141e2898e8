package engine

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/coa-classifier/internal/domain/ledger"
)

// ImpactReport quantifies what a proposed classification change for one
// account code would touch across the historical archive. Pure aggregation;
// the commit phase is a separate concern owned by the persistence
// collaborator.
type ImpactReport struct {
	AccountCode          string          `json:"account_code"`
	AffectedRecords      int             `json:"affected_records"`
	AffectedReports      []string        `json:"affected_reports"`
	AffectedRowIDs       []string        `json:"affected_row_ids"`
	TotalFinancialImpact decimal.Decimal `json:"total_financial_impact"`
}

// AnalyzeImpact aggregates the historical rows carrying the given account
// code: row count, distinct reports touched and the total absolute monetary
// amount involved. Zero matching rows is a valid zero-impact result, not an
// error; changing a brand-new code's classification touches nothing.
func AnalyzeImpact(code string, history []ledger.HistoricalRow) ImpactReport {
	report := ImpactReport{
		AccountCode:          code,
		TotalFinancialImpact: decimal.Zero,
	}

	reports := make(map[string]bool)
	for _, row := range history {
		if row.Code != code {
			continue
		}
		report.AffectedRecords++
		report.TotalFinancialImpact = report.TotalFinancialImpact.Add(row.Amount.Abs())
		if row.ReportID != "" {
			reports[row.ReportID] = true
		}
		if row.ID != "" {
			report.AffectedRowIDs = append(report.AffectedRowIDs, row.ID)
		}
	}

	report.AffectedReports = make([]string, 0, len(reports))
	for id := range reports {
		report.AffectedReports = append(report.AffectedReports, id)
	}
	sort.Strings(report.AffectedReports)
	sort.Strings(report.AffectedRowIDs)

	return report
}
