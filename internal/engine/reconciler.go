package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"
)

// VarianceClass grades the gap between a stated parent amount and the sum
// of its detected children
type VarianceClass string

const (
	VariancePerfect  VarianceClass = "PERFECT"
	VarianceMinor    VarianceClass = "MINOR_VARIANCE"
	VarianceMajor    VarianceClass = "MAJOR_VARIANCE"
	VarianceCritical VarianceClass = "CRITICAL_MISMATCH"
)

// varianceTolerance absorbs currency-unit rounding: gaps of at most one
// unit are PERFECT regardless of percentage. Gaps below one basis point
// of the stated amount are rounding noise at scale and also PERFECT.
var varianceTolerance = decimal.NewFromInt(1)

const variancePctEpsilon = 0.01

// VarianceFinding is one non-PERFECT parent/children amount mismatch
type VarianceFinding struct {
	FamilyKey          string          `json:"family_key"`
	ParentCode         string          `json:"parent_code"`
	ParentLabel        string          `json:"parent_label"`
	ParentLevel        int             `json:"parent_level"`
	ParentAmount       decimal.Decimal `json:"parent_amount"`
	ChildrenSum        decimal.Decimal `json:"children_sum"`
	Variance           decimal.Decimal `json:"variance"`
	VariancePercentage float64         `json:"variance_percentage"`
	Class              VarianceClass   `json:"class"`
	Severity           Severity        `json:"severity"`
	ChildCodes         []string        `json:"child_codes"`
	Description        string          `json:"description"`
}

// Reconciler compares stated parent amounts against the sum of their
// detected children, independently of classification state. A family can
// pass reconciliation yet fail consistency validation, and vice versa;
// callers run both.
type Reconciler struct {
	logger *slog.Logger
}

func NewReconciler(logger *slog.Logger) *Reconciler {
	return &Reconciler{logger: logger}
}

// ReconcileAll reconciles every family plus the root level, which crosses
// family boundaries, and returns the combined findings sorted by variance
// descending, parent code ascending on ties
func (r *Reconciler) ReconcileAll(families map[string]*Family) []VarianceFinding {
	var findings []VarianceFinding
	for _, key := range sortedKeys(families) {
		findings = append(findings, r.ReconcileFamily(families[key])...)
	}
	findings = append(findings, r.ReconcileRoots(families)...)
	sort.SliceStable(findings, func(i, j int) bool {
		if !findings[i].Variance.Equal(findings[j].Variance) {
			return findings[i].Variance.GreaterThan(findings[j].Variance)
		}
		return findings[i].ParentCode < findings[j].ParentCode
	})
	return findings
}

// ReconcileFamily checks every non-leaf account that has at least one
// detected child at the next level down within the family. Parents without
// children are skipped, not failed: a missing side of the comparison means
// there is nothing to reconcile. Root accounts are not handled here; their
// division children live in other families, so the level 1 comparison runs
// over the whole snapshot in ReconcileRoots.
func (r *Reconciler) ReconcileFamily(f *Family) []VarianceFinding {
	var findings []VarianceFinding

	for _, parentLevel := range []int{2, 3} {
		childGroups, _ := childrenByParent(f.Level(parentLevel + 1))

		for _, parent := range f.Level(parentLevel) {
			children := childGroups[parent.Code]
			if len(children) == 0 {
				r.logger.Debug("Parent account has no detected children, skipping reconciliation",
					"family_key", f.Key,
					"parent_code", parent.Code,
				)
				continue
			}

			if finding := r.reconcileParent(f.Key, parent, parentLevel, children); finding != nil {
				findings = append(findings, *finding)
			}
		}
	}

	return findings
}

// ReconcileRoots compares each root account (division 0000, alone in its
// own family) against the level-2 division accounts of the same type across
// every other family. Child order follows the sorted family keys, which for
// a fixed type is the children's own code order.
func (r *Reconciler) ReconcileRoots(families map[string]*Family) []VarianceFinding {
	childGroups := make(map[string][]AccountInfo)
	for _, key := range sortedKeys(families) {
		for _, acc := range families[key].Level(2) {
			parentCode := acc.Address.ParentCode()
			if parentCode == "" {
				continue
			}
			childGroups[parentCode] = append(childGroups[parentCode], acc)
		}
	}

	var findings []VarianceFinding
	for _, key := range sortedKeys(families) {
		f := families[key]
		for _, root := range f.Level(1) {
			children := childGroups[root.Code]
			if len(children) == 0 {
				r.logger.Debug("Root account has no detected division children, skipping reconciliation",
					"family_key", f.Key,
					"root_code", root.Code,
				)
				continue
			}

			if finding := r.reconcileParent(f.Key, root, 1, children); finding != nil {
				findings = append(findings, *finding)
			}
		}
	}
	return findings
}

// reconcileParent grades one parent against its summed children. Returns
// nil when the gap is within the PERFECT tolerance.
func (r *Reconciler) reconcileParent(familyKey string, parent AccountInfo, parentLevel int, children []AccountInfo) *VarianceFinding {
	childrenSum := sumAmounts(children)
	variance := parent.Amount.Sub(childrenSum).Abs()
	variancePct := 0.0
	if !parent.Amount.IsZero() {
		variancePct, _ = variance.Div(parent.Amount.Abs()).Mul(decimal.NewFromInt(100)).Float64()
	}

	class := classifyVariance(variance, variancePct)
	if class == VariancePerfect {
		return nil
	}

	return &VarianceFinding{
		FamilyKey:          familyKey,
		ParentCode:         parent.Code,
		ParentLabel:        parent.Label,
		ParentLevel:        parentLevel,
		ParentAmount:       parent.Amount,
		ChildrenSum:        childrenSum,
		Variance:           variance,
		VariancePercentage: variancePct,
		Class:              class,
		Severity:           severityFor(variance, variancePct),
		ChildCodes:         codesOf(children),
		Description: fmt.Sprintf("Stated amount of %s is %s but its %d children sum to %s (gap %s, %.2f%%)",
			parent.Code, formatMoney(parent.Amount), len(children), formatMoney(childrenSum), formatMoney(variance), variancePct),
	}
}

// classifyVariance applies the shared tolerance ladder: a one-unit gap or
// a sub-basis-point gap is rounding, percentage bands grade the rest. A
// zero stated parent yields a percentage of exactly 0, which never takes
// the epsilon shortcut: any gap against a zero parent is reportable.
func classifyVariance(variance decimal.Decimal, variancePct float64) VarianceClass {
	switch {
	case variance.LessThanOrEqual(varianceTolerance):
		return VariancePerfect
	case variancePct > 0 && variancePct < variancePctEpsilon:
		return VariancePerfect
	case variancePct <= 1:
		return VarianceMinor
	case variancePct <= 5:
		return VarianceMajor
	default:
		return VarianceCritical
	}
}
