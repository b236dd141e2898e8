// Package ledger defines the flat ledger rows the classification engine
// consumes. Rows are produced by the ingestion layer and are read-only
// input for a validation run.
package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FlowType defines the business flow direction of a ledger row
type FlowType string

const (
	FlowTypeIncome    FlowType = "Income"
	FlowTypeExpense   FlowType = "Expense"
	FlowTypeUndefined FlowType = "Undefined"
)

// Placeholder strings the source system uses for "not classified yet".
// They count as empty for classification-status purposes.
const (
	PlaceholderCategory    = "Sin Categoría"
	PlaceholderClass       = "Sin Clasificación"
	PlaceholderSubClass    = "Sin Subclasificación"
	placeholderPrefixASCII = "sin "
)

// IsPlaceholder reports whether a classification field value is one of the
// "Sin …" empty markers or blank
func IsPlaceholder(value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return true
	}
	lower := strings.ToLower(trimmed)
	return lower == strings.ToLower(PlaceholderCategory) ||
		lower == strings.ToLower(PlaceholderClass) ||
		lower == strings.ToLower(PlaceholderSubClass) ||
		strings.HasPrefix(lower, placeholderPrefixASCII)
}

// Classification carries the three-field business classification attached to
// a row. An empty struct (or one filled with placeholder values) means the
// row is unclassified in the raw data.
type Classification struct {
	Category    string `json:"category" bson:"category"`
	SubCategory string `json:"subcategory" bson:"subcategory"`
	DetailClass string `json:"detail_class" bson:"detail_class"`
}

// IsEmpty reports whether every classification field is blank or placeholder
func (c Classification) IsEmpty() bool {
	return IsPlaceholder(c.Category) && IsPlaceholder(c.SubCategory) && IsPlaceholder(c.DetailClass)
}

// IsComplete reports whether all three fields carry a real value
func (c Classification) IsComplete() bool {
	return !IsPlaceholder(c.Category) && !IsPlaceholder(c.SubCategory) && !IsPlaceholder(c.DetailClass)
}

// Row is one ledger line for a reporting period. Amount is a signed decimal
// in a single consistent currency; signs follow the income-positive
// convention established at the ingestion boundary.
type Row struct {
	Code           string          `json:"code" bson:"code"`
	Label          string          `json:"label" bson:"label"`
	Amount         decimal.Decimal `json:"amount" bson:"amount"`
	FlowType       FlowType        `json:"flow_type" bson:"flow_type"`
	Classification Classification  `json:"classification" bson:"classification"`
	Period         string          `json:"period" bson:"period"`
}

// HistoricalRow is a ledger row as stored in the historical archive,
// annotated with the report it appeared in. Used by the retroactive impact
// analyzer.
type HistoricalRow struct {
	Row      `bson:",inline"`
	ID       string `json:"id" bson:"_id,omitempty"`
	ReportID string `json:"report_id" bson:"report_id"`
}
