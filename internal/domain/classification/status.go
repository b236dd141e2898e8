// Package classification holds the business-classification rule catalogue
// and the status evaluator that decides whether a ledger row counts as
// classified.
package classification

import (
	"github.com/coa-classifier/internal/domain/ledger"
)

// Status describes the classification state of one ledger row
type Status string

const (
	// StatusClassified means the row carries a complete classification in
	// the raw data
	StatusClassified Status = "CLASSIFIED"
	// StatusUnclassified means at least one classification field is empty
	// or a placeholder
	StatusUnclassified Status = "UNCLASSIFIED"
	// StatusImplicitlyClassified is a computed annotation for non-leaf rows
	// whose full set of level-4 descendants are classified. Never persisted
	// as ground truth.
	StatusImplicitlyClassified Status = "IMPLICITLY_CLASSIFIED"
)

// StatusOf evaluates the base classification status of a row: CLASSIFIED
// iff the flow type is defined and both the category and detail-class
// fields carry real (non-placeholder) values. The implicit upgrade for
// parents is applied later, during family validation, because it depends on
// sibling data this function cannot see.
func StatusOf(row ledger.Row) Status {
	if row.FlowType == ledger.FlowTypeUndefined || row.FlowType == "" {
		return StatusUnclassified
	}
	if ledger.IsPlaceholder(row.Classification.Category) {
		return StatusUnclassified
	}
	if ledger.IsPlaceholder(row.Classification.DetailClass) {
		return StatusUnclassified
	}
	return StatusClassified
}

// IsClassified reports whether a status counts as directly classified
func (s Status) IsClassified() bool {
	return s == StatusClassified
}

// Covers reports whether a status represents classification coverage of any
// kind, direct or through children
func (s Status) Covers() bool {
	return s == StatusClassified || s == StatusImplicitlyClassified
}
