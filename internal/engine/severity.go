package engine

import "github.com/shopspring/decimal"

// Severity ranks how urgently a finding needs attention
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Amount thresholds shared by consistency and reconciliation findings
var (
	severityCriticalAmount = decimal.NewFromInt(1_000_000)
	severityHighAmount     = decimal.NewFromInt(500_000)
	severityMediumAmount   = decimal.NewFromInt(100_000)

	rank1Amount = decimal.NewFromInt(5_000_000)
	rank2Amount = decimal.NewFromInt(1_000_000)
	rank3Amount = decimal.NewFromInt(500_000)
	rank4Amount = decimal.NewFromInt(100_000)
)

// severityFor grades a finding from its absolute financial impact and the
// percentage of the parent amount left unclassified. Either signal alone
// can raise the grade.
func severityFor(amount decimal.Decimal, missingPercentage float64) Severity {
	abs := amount.Abs()
	switch {
	case abs.GreaterThanOrEqual(severityCriticalAmount) || missingPercentage > 50:
		return SeverityCritical
	case abs.GreaterThanOrEqual(severityHighAmount) || missingPercentage > 25:
		return SeverityHigh
	case abs.GreaterThanOrEqual(severityMediumAmount) || missingPercentage > 10:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// priorityRankFor maps impact to a 1 (highest) to 5 ordering rank, used
// purely for sorting results, not for severity display
func priorityRankFor(amount decimal.Decimal) int {
	abs := amount.Abs()
	switch {
	case abs.GreaterThanOrEqual(rank1Amount):
		return 1
	case abs.GreaterThanOrEqual(rank2Amount):
		return 2
	case abs.GreaterThanOrEqual(rank3Amount):
		return 3
	case abs.GreaterThanOrEqual(rank4Amount):
		return 4
	default:
		return 5
	}
}
