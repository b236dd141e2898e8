package engine

import (
	"fmt"
)

// Approach names the classification granularity a family should standardize
// on
type Approach string

const (
	ApproachDetail    Approach = "DETAIL_CLASSIFICATION"
	ApproachSummary   Approach = "SUMMARY_CLASSIFICATION"
	ApproachHighLevel Approach = "HIGH_LEVEL_CLASSIFICATION"
)

// DefaultSummaryThreshold is the level-4 account count above which a family
// with no classification yet is steered to summary-level classification;
// more detail accounts than this are too many to manage individually.
const DefaultSummaryThreshold = 15

// Recommendation is the per-family granularity advice, with the concrete
// remaining work spelled out
type Recommendation struct {
	FamilyKey           string   `json:"family_key"`
	FamilyName          string   `json:"family_name"`
	Approach            Approach `json:"approach"`
	CurrentCompleteness float64  `json:"current_completeness"`
	SpecificActions     []string `json:"specific_actions"`
}

// Recommend compares the directly classified counts at levels 4, 3 and 2
// and recommends the level that already dominates. A family with nothing
// classified yet is steered by its level-4 cardinality against the summary
// threshold.
func Recommend(f *Family, summaryThreshold int) Recommendation {
	if summaryThreshold <= 0 {
		summaryThreshold = DefaultSummaryThreshold
	}

	count4 := f.ClassifiedCount(4)
	count3 := f.ClassifiedCount(3)
	count2 := f.ClassifiedCount(2)

	rec := Recommendation{
		FamilyKey:  f.Key,
		FamilyName: f.Name,
	}

	var chosenLevel int
	switch {
	case count4 == 0 && count3 == 0 && count2 == 0:
		if len(f.Level(4)) > summaryThreshold {
			rec.Approach = ApproachSummary
			chosenLevel = 3
		} else {
			rec.Approach = ApproachDetail
			chosenLevel = 4
		}
	case count4 >= count3 && count4 >= count2 && count4 > 0:
		rec.Approach = ApproachDetail
		chosenLevel = 4
	case count3 >= count2 && count3 > 0:
		rec.Approach = ApproachSummary
		chosenLevel = 3
	default:
		rec.Approach = ApproachHighLevel
		chosenLevel = 2
	}

	accounts := f.Level(chosenLevel)
	classified := f.ClassifiedCount(chosenLevel)
	rec.CurrentCompleteness = completenessOf(classified, len(accounts))

	if len(accounts) == 0 {
		// Summary recommendation for a family whose ledger only carries
		// detail rows: the summary accounts have to be classified as they
		// appear, grouped by their computed parents.
		groups, parents := childrenByParent(f.Level(chosenLevel + 1))
		for _, parentCode := range parents {
			rec.SpecificActions = append(rec.SpecificActions,
				fmt.Sprintf("Classify summary account %s covering %d detail accounts", parentCode, len(groups[parentCode])))
		}
		if len(rec.SpecificActions) == 0 {
			rec.SpecificActions = []string{"No accounts found at the recommended level"}
		}
		return rec
	}

	for _, acc := range accounts {
		if acc.Status.IsClassified() {
			continue
		}
		label := acc.Label
		if label == "" {
			label = "unnamed account"
		}
		rec.SpecificActions = append(rec.SpecificActions,
			fmt.Sprintf("Classify %s (%s)", acc.Code, label))
	}
	if len(rec.SpecificActions) == 0 {
		rec.SpecificActions = []string{fmt.Sprintf("Level %d is fully classified, no action needed", chosenLevel)}
	}

	return rec
}
