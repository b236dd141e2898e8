package classification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/coa-classifier/internal/domain/ledger"
)

// Rule is one entry of the user-maintained classification catalogue: the
// classification to apply to every row carrying the given account code.
// Rules are versioned by effective_from; only active rules are visible to
// the evaluator.
type Rule struct {
	ID                uuid.UUID `json:"id"`
	AccountCode       string    `json:"account_code"`
	Category          string    `json:"category"`
	Classification    string    `json:"classification"`
	SubClassification string    `json:"sub_classification"`
	EffectiveFrom     time.Time `json:"effective_from"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
}

// ToRowClassification maps a catalogue rule onto the three-field
// classification shape rows carry
func (r Rule) ToRowClassification() ledger.Classification {
	return ledger.Classification{
		Category:    r.Category,
		SubCategory: r.Classification,
		DetailClass: r.SubClassification,
	}
}

// Catalogue is an in-memory snapshot of the active rules, keyed by account
// code. Built once per validation run and discarded with it.
type Catalogue struct {
	rules map[string]Rule
}

// NewCatalogue indexes the given rules by account code, keeping only active
// ones. When several active rules exist for a code, the most recent
// effective_from wins.
func NewCatalogue(rules []Rule) *Catalogue {
	indexed := make(map[string]Rule, len(rules))
	for _, r := range rules {
		if !r.IsActive {
			continue
		}
		existing, ok := indexed[r.AccountCode]
		if ok && existing.EffectiveFrom.After(r.EffectiveFrom) {
			continue
		}
		indexed[r.AccountCode] = r
	}
	return &Catalogue{rules: indexed}
}

// Lookup returns the active rule for an account code, if any
func (c *Catalogue) Lookup(code string) (Rule, bool) {
	r, ok := c.rules[code]
	return r, ok
}

// Len returns the number of active rules in the snapshot
func (c *Catalogue) Len() int {
	return len(c.rules)
}

// Apply merges catalogue classifications into rows that carry none of their
// own. Row-level classification always wins over the catalogue; the result
// is a new slice, the input is left untouched.
func (c *Catalogue) Apply(rows []ledger.Row) []ledger.Row {
	merged := make([]ledger.Row, len(rows))
	copy(merged, rows)
	for i := range merged {
		if !merged[i].Classification.IsEmpty() {
			continue
		}
		rule, ok := c.Lookup(merged[i].Code)
		if !ok {
			continue
		}
		merged[i].Classification = rule.ToRowClassification()
		if merged[i].FlowType == ledger.FlowTypeUndefined || merged[i].FlowType == "" {
			merged[i].FlowType = flowTypeForCategory(rule.Category)
		}
	}
	return merged
}

// flowTypeForCategory infers a flow type from the rule's top-level category
// when the row itself left it undefined
func flowTypeForCategory(category string) ledger.FlowType {
	switch category {
	case "Ingresos", "Income":
		return ledger.FlowTypeIncome
	case "":
		return ledger.FlowTypeUndefined
	default:
		return ledger.FlowTypeExpense
	}
}

// Change is one confirmed (account_code, new classification) pair to be
// committed to the catalogue
type Change struct {
	AccountCode       string    `json:"account_code"`
	Category          string    `json:"category"`
	Classification    string    `json:"classification"`
	SubClassification string    `json:"sub_classification"`
	EffectiveFrom     time.Time `json:"effective_from"`
}

// Repository manages classification rule persistence
type Repository interface {
	GetActive(ctx context.Context) ([]Rule, error)
	GetByAccountCode(ctx context.Context, code string) (*Rule, error)

	// ApplyChanges deactivates any existing rules for the changed codes and
	// inserts the new versions. Must run inside the supplied transaction so
	// the batch commits atomically with its outbox message.
	ApplyChanges(ctx context.Context, changes []Change) error
	WithTx(tx pgx.Tx) Repository
}

// ErrRuleNotFound indicates a missing catalogue rule
type ErrRuleNotFound struct {
	AccountCode string
}

func (e ErrRuleNotFound) Error() string {
	return "classification rule not found for account: " + e.AccountCode
}

// Is implements the errors.Is interface for ErrRuleNotFound
func (e ErrRuleNotFound) Is(target error) bool {
	t, ok := target.(ErrRuleNotFound)
	if !ok {
		return false
	}
	if t.AccountCode == "" {
		return true
	}
	return e.AccountCode == t.AccountCode
}
