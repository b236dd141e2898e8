package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coa-classifier/internal/domain/classification"
)

// IssueType identifies the kind of classification inconsistency detected
type IssueType string

const (
	IssueMixedLevel4Siblings IssueType = "MIXED_LEVEL4_SIBLINGS"
	IssueMixedLevel3Siblings IssueType = "MIXED_LEVEL3_SIBLINGS"
	IssueOverClassification  IssueType = "OVER_CLASSIFICATION"
)

// autoFixSiblingLimit is the largest unclassified batch considered safe to
// fix automatically
const autoFixSiblingLimit = 2

// Issue is one detected inconsistency. Issues are transient reports, never
// a source of truth; re-running validation on an unchanged snapshot yields
// the same issues byte for byte.
type Issue struct {
	ID                     uuid.UUID       `json:"id"`
	Type                   IssueType       `json:"type"`
	Severity               Severity        `json:"severity"`
	FinancialImpact        decimal.Decimal `json:"financial_impact"`
	ParentCode             string          `json:"parent_code"`
	AffectedAccounts       []string        `json:"affected_accounts"`
	ClassifiedAccounts     []string        `json:"classified_accounts,omitempty"`
	UnclassifiedAccounts   []string        `json:"unclassified_accounts,omitempty"`
	CompletenessPercentage float64         `json:"completeness_percentage,omitempty"`
	ResolutionSteps        []string        `json:"resolution_steps"`
	AutoFixable            bool            `json:"auto_fixable"`
	PriorityRank           int             `json:"priority_rank"`
	ErrorMessage           string          `json:"error_message"`
	BusinessImpact         string          `json:"business_impact"`
	ActionableResolution   string          `json:"actionable_resolution"`
}

// FamilyValidationResult reports every issue found in one family. Families
// with zero issues are dropped from the result set.
type FamilyValidationResult struct {
	FamilyKey           string          `json:"family_key"`
	FamilyName          string          `json:"family_name"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	Issues              []Issue         `json:"issues"`
	FinancialImpact     decimal.Decimal `json:"financial_impact"`
	RecommendedApproach Approach        `json:"recommended_approach"`
}

// Config carries the validator's business-rule knobs
type Config struct {
	// StrictOverClassification also flags a directly classified parent
	// whose detail children are only partially classified. The source
	// system only checks full coverage; partial coverage is an ambiguous
	// business rule, so it stays behind this switch.
	StrictOverClassification bool

	// SummaryThreshold is the level-4 account count above which an
	// unclassified family is steered to summary-level classification
	SummaryThreshold int
}

// DefaultConfig returns the validator defaults used when no configuration
// overrides them
func DefaultConfig() Config {
	return Config{
		StrictOverClassification: false,
		SummaryThreshold:         DefaultSummaryThreshold,
	}
}

// Validator runs the bottom-up consistency algorithm over family snapshots
type Validator struct {
	cfg    Config
	logger *slog.Logger
}

func NewValidator(logger *slog.Logger, cfg Config) *Validator {
	if cfg.SummaryThreshold <= 0 {
		cfg.SummaryThreshold = DefaultSummaryThreshold
	}
	return &Validator{cfg: cfg, logger: logger}
}

// ValidateAll validates every family and returns the results ordered by
// total financial impact, highest first. Families are independent; the
// iteration order here is fixed only so identical snapshots produce
// identical output.
func (v *Validator) ValidateAll(families map[string]*Family) ([]*FamilyValidationResult, error) {
	results := make([]*FamilyValidationResult, 0, len(families))
	for _, key := range sortedKeys(families) {
		result, err := v.ValidateFamily(families[key])
		if err != nil {
			return nil, err
		}
		if result != nil {
			results = append(results, result)
		}
	}
	SortResults(results)
	return results, nil
}

// SortResults orders validation results by financial impact descending,
// family key ascending on ties
func SortResults(results []*FamilyValidationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if !results[i].FinancialImpact.Equal(results[j].FinancialImpact) {
			return results[i].FinancialImpact.GreaterThan(results[j].FinancialImpact)
		}
		return results[i].FamilyKey < results[j].FamilyKey
	})
}

// ValidateFamily walks one family strictly bottom-up: level-4 sibling
// consistency first, then level-3 checks (which depend on level 4's
// implicit-classification results), then level 2. Returns nil when the
// family has no issues.
func (v *Validator) ValidateFamily(f *Family) (*FamilyValidationResult, error) {
	if err := f.checkInvariant(); err != nil {
		return nil, err
	}

	level4ByParent, level4Parents := childrenByParent(f.Level(4))
	level3ByParent, level3Parents := childrenByParent(f.Level(3))

	// Implicit classification is derived every run, never cached: a level-3
	// parent is implicitly classified when its full set of detail children
	// is classified; a level-2 parent when all its level-3 children are
	// covered directly or implicitly.
	implicitLevel3 := implicitParents(level4ByParent, func(s classification.Status) bool { return s.IsClassified() })
	upgradeImplicit(f.Level(3), implicitLevel3)
	implicitLevel2 := implicitParents(level3ByParent, func(s classification.Status) bool { return s.Covers() })
	upgradeImplicit(f.Level(2), implicitLevel2)

	var issues []Issue

	// Step A: mixed classification among level-4 siblings
	for _, parentCode := range level4Parents {
		if issue, ok := v.mixedSiblingIssue(f, IssueMixedLevel4Siblings, parentCode, 3, level4ByParent[parentCode]); ok {
			issues = append(issues, issue)
		}
	}

	// Level-3 pass: sibling consistency, then over-classification against
	// the implicit set computed from level 4
	for _, parentCode := range level3Parents {
		if issue, ok := v.mixedSiblingIssue(f, IssueMixedLevel3Siblings, parentCode, 2, level3ByParent[parentCode]); ok {
			issues = append(issues, issue)
		}
	}
	issues = append(issues, v.overClassificationIssues(f, 3, level4ByParent, implicitLevel3)...)

	// Level-2 pass: over-classification against implicitly covered level-3
	// descendants
	issues = append(issues, v.overClassificationIssues(f, 2, level3ByParent, implicitLevel2)...)

	if len(issues) == 0 {
		return nil, nil
	}

	totalImpact := decimal.Zero
	for _, issue := range issues {
		totalImpact = totalImpact.Add(issue.FinancialImpact)
	}

	recommendation := Recommend(f, v.cfg.SummaryThreshold)

	return &FamilyValidationResult{
		FamilyKey:           f.Key,
		FamilyName:          f.Name,
		TotalAmount:         f.TotalAmount,
		Issues:              issues,
		FinancialImpact:     totalImpact,
		RecommendedApproach: recommendation.Approach,
	}, nil
}

// implicitParents returns the parent codes whose full child set satisfies
// the coverage predicate. Parents with zero children never qualify.
func implicitParents(childGroups map[string][]AccountInfo, covered func(classification.Status) bool) map[string]bool {
	implicit := make(map[string]bool, len(childGroups))
	for parentCode, children := range childGroups {
		all := len(children) > 0
		for _, child := range children {
			if !covered(child.Status) {
				all = false
				break
			}
		}
		if all {
			implicit[parentCode] = true
		}
	}
	return implicit
}

// upgradeImplicit annotates unclassified parents that are fully covered by
// their children. Direct classification is never overwritten; the
// over-classification check needs to keep seeing it.
func upgradeImplicit(accounts []AccountInfo, implicit map[string]bool) {
	for i := range accounts {
		if implicit[accounts[i].Code] && accounts[i].Status == classification.StatusUnclassified {
			accounts[i].Status = classification.StatusImplicitlyClassified
		}
	}
}

// mixedSiblingIssue checks one sibling group for the mixed-classification
// rule: at least two members with both classified and unclassified
// representatives present.
func (v *Validator) mixedSiblingIssue(f *Family, issueType IssueType, parentCode string, parentLevel int, siblings []AccountInfo) (Issue, bool) {
	if len(siblings) < 2 {
		return Issue{}, false
	}

	var classified, unclassified []AccountInfo
	for _, acc := range siblings {
		if acc.Status.Covers() {
			classified = append(classified, acc)
		} else {
			unclassified = append(unclassified, acc)
		}
	}
	if len(classified) == 0 || len(unclassified) == 0 {
		return Issue{}, false
	}

	classifiedSum := sumAmounts(classified)
	unclassifiedAbs := sumAbsAmounts(unclassified)

	// Impact: gap against the stated parent amount when the parent row
	// exists; otherwise the unclassified members' absolute total. A missing
	// parent means "no stated total", not an error.
	var impact decimal.Decimal
	var missingPct float64
	parent, parentExists := f.FindByCode(parentLevel, parentCode)
	if parentExists {
		impact = parent.Amount.Sub(classifiedSum).Abs()
		if !parent.Amount.IsZero() {
			missingPct, _ = unclassifiedAbs.Div(parent.Amount.Abs()).Mul(decimal.NewFromInt(100)).Float64()
		}
	} else {
		v.logger.Debug("No stated parent row for sibling group, using unclassified sum as impact",
			"family_key", f.Key,
			"parent_code", parentCode,
		)
		impact = unclassifiedAbs
		missingPct = 100 - completenessOf(len(classified), len(siblings))
	}

	completeness := completenessOf(len(classified), len(siblings))

	unclassifiedCodes := codesOf(unclassified)
	steps := []string{
		fmt.Sprintf("Review the %d unclassified accounts under %s: %s", len(unclassified), parentCode, strings.Join(unclassifiedCodes, ", ")),
		fmt.Sprintf("Assign the same classification scheme their %d classified siblings already use", len(classified)),
		"Re-run validation to confirm the sibling group is consistent",
	}

	issue := Issue{
		ID:                     issueID(f.Key, issueType, parentCode),
		Type:                   issueType,
		Severity:               severityFor(impact, missingPct),
		FinancialImpact:        impact,
		ParentCode:             parentCode,
		AffectedAccounts:       codesOf(siblings),
		ClassifiedAccounts:     codesOf(classified),
		UnclassifiedAccounts:   unclassifiedCodes,
		CompletenessPercentage: completeness,
		ResolutionSteps:        steps,
		AutoFixable:            len(unclassified) <= autoFixSiblingLimit,
		PriorityRank:           priorityRankFor(impact),
		ErrorMessage: fmt.Sprintf("%d of %d sibling accounts under %s are unclassified while the rest are classified",
			len(unclassified), len(siblings), parentCode),
		BusinessImpact: fmt.Sprintf("%s cannot be attributed consistently: partial sibling classification skews every report that rolls up %s",
			formatMoney(impact), parentCode),
		ActionableResolution: fmt.Sprintf("Classify %s to reach 100%% coverage of the sibling group (currently %.1f%%)",
			strings.Join(unclassifiedCodes, ", "), completeness),
	}
	return issue, true
}

// overClassificationIssues emits an issue for every parent at parentLevel
// that is directly classified while also covered through its children:
// summing both levels would double-count the same money, so severity is
// always critical.
func (v *Validator) overClassificationIssues(f *Family, parentLevel int, childGroups map[string][]AccountInfo, implicit map[string]bool) []Issue {
	var issues []Issue
	for _, parent := range f.Level(parentLevel) {
		if !parent.Status.IsClassified() {
			continue
		}
		children := childGroups[parent.Code]
		if !implicit[parent.Code] && !v.strictPartialCoverage(children) {
			continue
		}

		childrenSum := sumAmounts(children)
		impact := decimal.Min(parent.Amount.Abs(), childrenSum.Abs())

		issues = append(issues, Issue{
			ID:               issueID(f.Key, IssueOverClassification, parent.Code),
			Type:             IssueOverClassification,
			Severity:         SeverityCritical,
			FinancialImpact:  impact,
			ParentCode:       parent.Code,
			AffectedAccounts: append([]string{parent.Code}, codesOf(children)...),
			ResolutionSteps: []string{
				fmt.Sprintf("Decide whether %s is classified at detail level (keep the children) or summary level (keep the parent)", parent.Code),
				"Remove the direct classification from the losing level",
				"Re-run validation to confirm the double counting is gone",
			},
			AutoFixable:  true,
			PriorityRank: priorityRankFor(impact),
			ErrorMessage: fmt.Sprintf("Account %s is directly classified while all of its children are classified too",
				parent.Code),
			BusinessImpact: fmt.Sprintf("%s is represented twice: naive summation counts the parent and its children as separate money",
				formatMoney(impact)),
			ActionableResolution: fmt.Sprintf("Keep the classification on either %s or its %d children, never both",
				parent.Code, len(children)),
		})
	}
	return issues
}

// strictPartialCoverage applies the configurable partial-coverage rule:
// under strict mode, any classified child is enough to flag a directly
// classified parent.
func (v *Validator) strictPartialCoverage(children []AccountInfo) bool {
	if !v.cfg.StrictOverClassification {
		return false
	}
	for _, child := range children {
		if child.Status.Covers() {
			return true
		}
	}
	return false
}

// issueID derives a stable identifier from the issue's coordinates so that
// re-validating an unchanged snapshot reproduces identical output
func issueID(familyKey string, issueType IssueType, parentCode string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(familyKey+"|"+string(issueType)+"|"+parentCode))
}

func completenessOf(classified, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(classified) / float64(total) * 100
}

func sumAmounts(accounts []AccountInfo) decimal.Decimal {
	sum := decimal.Zero
	for _, acc := range accounts {
		sum = sum.Add(acc.Amount)
	}
	return sum
}

func sumAbsAmounts(accounts []AccountInfo) decimal.Decimal {
	sum := decimal.Zero
	for _, acc := range accounts {
		sum = sum.Add(acc.Amount.Abs())
	}
	return sum
}

func codesOf(accounts []AccountInfo) []string {
	codes := make([]string, 0, len(accounts))
	for _, acc := range accounts {
		codes = append(codes, acc.Code)
	}
	sort.Strings(codes)
	return codes
}

func formatMoney(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}
