// Package engine implements the hierarchical account-classification
// validator: family grouping, bottom-up consistency validation, amount
// reconciliation, approach recommendation and retroactive impact analysis.
//
// The package is pure and stateless across invocations. Every entry point
// takes already-materialized snapshots and returns freshly built results;
// nothing here performs I/O or holds state beyond one call, so concurrent
// runs over separate snapshots need no locking.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/coa-classifier/internal/domain/account"
	"github.com/coa-classifier/internal/domain/classification"
	"github.com/coa-classifier/internal/domain/ledger"
)

// UnknownFamilyName is the fallback when a family has no row that can name it
const UnknownFamilyName = "Unknown Family"

// ErrFamilyKeyMismatch indicates a row bucketed into a family whose key does
// not match the row's own parsed address. Grouping derives the key from the
// address, so this only fires on a caller bug and aborts the run.
var ErrFamilyKeyMismatch = errors.New("account does not belong to its family")

// AccountInfo is one ledger row annotated with its derived hierarchy data
// and classification status
type AccountInfo struct {
	Address account.Address
	Code    string
	Label   string
	Amount  decimal.Decimal
	Status  classification.Status
}

// Family is the derived aggregate of all rows sharing one type+division
// prefix, bucketed by hierarchy level. Built fresh on every validation run;
// never mutated across runs.
type Family struct {
	Key             string
	Name            string
	TotalAmount     decimal.Decimal
	AccountsByLevel map[int][]AccountInfo
}

// Level returns the accounts at the given hierarchy level, sorted by code
func (f *Family) Level(level int) []AccountInfo {
	return f.AccountsByLevel[level]
}

// ClassifiedCount counts the directly classified accounts at a level
func (f *Family) ClassifiedCount(level int) int {
	count := 0
	for _, acc := range f.AccountsByLevel[level] {
		if acc.Status.IsClassified() {
			count++
		}
	}
	return count
}

// FindByCode locates an account at the given level by its code
func (f *Family) FindByCode(level int, code string) (AccountInfo, bool) {
	for _, acc := range f.AccountsByLevel[level] {
		if acc.Code == code {
			return acc, true
		}
	}
	return AccountInfo{}, false
}

// checkInvariant verifies family closure: every bucketed account must
// derive the family's own key
func (f *Family) checkInvariant() error {
	for level, accounts := range f.AccountsByLevel {
		for _, acc := range accounts {
			if acc.Address.FamilyKey() != f.Key {
				return fmt.Errorf("%w: account %s (level %d) in family %s", ErrFamilyKeyMismatch, acc.Code, level, f.Key)
			}
		}
	}
	return nil
}

// GroupFamilies buckets ledger rows into families by their type+division
// prefix and hierarchy level. Rows with malformed codes are skipped with a
// warning rather than failing the run; the engine is best-effort over dirty
// source data. TotalAmount is the signed sum of every row in the family,
// parents included, so whatever rollups the source carries are preserved.
//
// Grouping is order-independent: buckets are sorted by code before return,
// so the same snapshot always produces the same families.
func GroupFamilies(logger *slog.Logger, rows []ledger.Row) map[string]*Family {
	families := make(map[string]*Family)

	for _, row := range rows {
		addr, err := account.Parse(row.Code)
		if err != nil {
			logger.Warn("Skipping ledger row with malformed account code",
				"code", row.Code,
				"label", row.Label,
				"error", err,
			)
			continue
		}

		if addr.HasSkippedSegment() {
			logger.Warn("Account code skips its category segment, treating as detail level",
				"code", row.Code,
				"label", row.Label,
			)
		}

		key := addr.FamilyKey()
		fam, ok := families[key]
		if !ok {
			fam = &Family{
				Key:             key,
				TotalAmount:     decimal.Zero,
				AccountsByLevel: make(map[int][]AccountInfo),
			}
			families[key] = fam
		}

		level := addr.Level()
		fam.AccountsByLevel[level] = append(fam.AccountsByLevel[level], AccountInfo{
			Address: addr,
			Code:    addr.String(),
			Label:   row.Label,
			Amount:  row.Amount,
			Status:  classification.StatusOf(row),
		})
		fam.TotalAmount = fam.TotalAmount.Add(row.Amount)
	}

	for _, fam := range families {
		for level := range fam.AccountsByLevel {
			accounts := fam.AccountsByLevel[level]
			sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })
		}
		fam.Name = resolveFamilyName(logger, fam)
	}

	return families
}

// resolveFamilyName picks a human-readable name for the family: the level-1
// or level-2 account label when present, then the first available row label,
// then a literal placeholder. Never fatal.
func resolveFamilyName(logger *slog.Logger, fam *Family) string {
	for _, level := range []int{1, 2} {
		for _, acc := range fam.AccountsByLevel[level] {
			if acc.Label != "" {
				return acc.Label
			}
		}
	}

	logger.Warn("Family has no level-1 or level-2 account to name it, falling back",
		"family_key", fam.Key,
	)
	for _, level := range []int{3, 4} {
		for _, acc := range fam.AccountsByLevel[level] {
			if acc.Label != "" {
				return acc.Label
			}
		}
	}
	return UnknownFamilyName
}

// sortedKeys returns map keys in ascending order, the iteration order used
// everywhere determinism matters
func sortedKeys(families map[string]*Family) []string {
	keys := make([]string, 0, len(families))
	for key := range families {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// childrenByParent groups the accounts of one level by their computed
// parent code, returning the grouping plus sorted parent codes
func childrenByParent(accounts []AccountInfo) (map[string][]AccountInfo, []string) {
	groups := make(map[string][]AccountInfo)
	for _, acc := range accounts {
		parentCode := acc.Address.ParentCode()
		if parentCode == "" {
			continue
		}
		groups[parentCode] = append(groups[parentCode], acc)
	}

	parents := make([]string, 0, len(groups))
	for code := range groups {
		parents = append(parents, code)
	}
	sort.Strings(parents)
	return groups, parents
}
