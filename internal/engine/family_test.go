package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coa-classifier/internal/domain/classification"
	"github.com/coa-classifier/internal/domain/ledger"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func row(code, label string, amount int64, classified bool) ledger.Row {
	r := ledger.Row{
		Code:     code,
		Label:    label,
		Amount:   decimal.NewFromInt(amount),
		FlowType: ledger.FlowTypeUndefined,
	}
	if classified {
		r.FlowType = ledger.FlowTypeExpense
		r.Classification = ledger.Classification{
			Category:    "Costos",
			SubCategory: "Materiales",
			DetailClass: label,
		}
	}
	return r
}

func TestGroupFamilies(t *testing.T) {
	rows := []ledger.Row{
		row("5000-1002-000-000", "Planta Norte", 13_150_000, false),
		row("5000-1002-001-000", "Materias Primas", 13_150_000, false),
		row("5000-1002-001-001", "Cemento", 9_360_000, true),
		row("5000-1002-001-002", "Agregado Grueso", 1_210_000, true),
		row("4100-0000-000-000", "Ventas", 50_000_000, true),
		row("not-a-code", "Basura", 999, false),
	}

	families := GroupFamilies(testLogger(), rows)
	require.Len(t, families, 2)

	fam := families["5000-1002"]
	require.NotNil(t, fam)
	assert.Equal(t, "Planta Norte", fam.Name)
	assert.Len(t, fam.Level(2), 1)
	assert.Len(t, fam.Level(3), 1)
	assert.Len(t, fam.Level(4), 2)
	// Signed sum over every row, parents included
	assert.True(t, fam.TotalAmount.Equal(decimal.NewFromInt(13_150_000+13_150_000+9_360_000+1_210_000)))

	// Malformed row filtered, not surfaced
	ventas := families["4100-0000"]
	require.NotNil(t, ventas)
	assert.Len(t, ventas.Level(1), 1)
}

// Grouping must be independent of input order (P2 closure + determinism)
func TestGroupFamilies_OrderIndependent(t *testing.T) {
	rows := []ledger.Row{
		row("5000-1002-001-001", "Cemento", 100, true),
		row("5000-1002-001-002", "Agregado", 200, false),
		row("5000-1002-001-000", "Materias Primas", 300, false),
	}
	reversed := []ledger.Row{rows[2], rows[1], rows[0]}

	a := GroupFamilies(testLogger(), rows)
	b := GroupFamilies(testLogger(), reversed)

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, a["5000-1002"].AccountsByLevel, b["5000-1002"].AccountsByLevel)
	assert.True(t, a["5000-1002"].TotalAmount.Equal(b["5000-1002"].TotalAmount))
}

// P2: every bucketed account derives the family's own key
func TestGroupFamilies_FamilyClosure(t *testing.T) {
	rows := []ledger.Row{
		row("5000-1002-001-001", "Cemento", 100, true),
		row("5000-1003-001-001", "Arena", 200, false),
		row("4100-0000-000-000", "Ventas", 300, true),
	}

	families := GroupFamilies(testLogger(), rows)
	for key, fam := range families {
		assert.Equal(t, key, fam.Key)
		for _, accounts := range fam.AccountsByLevel {
			for _, acc := range accounts {
				assert.Equal(t, fam.Key, acc.Address.FamilyKey())
			}
		}
		assert.NoError(t, fam.checkInvariant())
	}
}

func TestGroupFamilies_SkippedSegmentTolerated(t *testing.T) {
	rows := []ledger.Row{
		row("5000-1002-000-003", "Hueco", 50, false), // category skipped
	}
	families := GroupFamilies(testLogger(), rows)
	fam := families["5000-1002"]
	require.NotNil(t, fam)
	// Treated as level 4, not rejected
	assert.Len(t, fam.Level(4), 1)
}

func TestResolveFamilyName_Fallbacks(t *testing.T) {
	t.Run("Level2Preferred", func(t *testing.T) {
		families := GroupFamilies(testLogger(), []ledger.Row{
			row("5000-1002-000-000", "Planta Norte", 0, false),
			row("5000-1002-001-001", "Cemento", 100, false),
		})
		assert.Equal(t, "Planta Norte", families["5000-1002"].Name)
	})

	t.Run("FirstRowLabelFallback", func(t *testing.T) {
		families := GroupFamilies(testLogger(), []ledger.Row{
			row("5000-1002-001-001", "Cemento", 100, false),
		})
		assert.Equal(t, "Cemento", families["5000-1002"].Name)
	})

	t.Run("UnknownFamilyPlaceholder", func(t *testing.T) {
		families := GroupFamilies(testLogger(), []ledger.Row{
			row("5000-1002-001-001", "", 100, false),
		})
		assert.Equal(t, UnknownFamilyName, families["5000-1002"].Name)
	})
}

func TestFamily_InvariantViolationDetected(t *testing.T) {
	families := GroupFamilies(testLogger(), []ledger.Row{
		row("5000-1002-001-001", "Cemento", 100, true),
	})
	fam := families["5000-1002"]

	// Simulate a caller bug: smuggle a foreign account into the bucket
	foreign := GroupFamilies(testLogger(), []ledger.Row{row("4100-0000-000-000", "Ventas", 1, true)})["4100-0000"].Level(1)[0]
	fam.AccountsByLevel[1] = append(fam.AccountsByLevel[1], foreign)

	err := fam.checkInvariant()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFamilyKeyMismatch)

	v := NewValidator(testLogger(), DefaultConfig())
	_, err = v.ValidateFamily(fam)
	assert.Error(t, err)
}

func TestFamily_ClassifiedCount(t *testing.T) {
	families := GroupFamilies(testLogger(), []ledger.Row{
		row("5000-1002-001-001", "Cemento", 100, true),
		row("5000-1002-001-002", "Agregado", 200, false),
		row("5000-1002-001-003", "Aditivo", 300, true),
	})
	fam := families["5000-1002"]
	assert.Equal(t, 2, fam.ClassifiedCount(4))
	assert.Equal(t, 0, fam.ClassifiedCount(3))

	acc, ok := fam.FindByCode(4, "5000-1002-001-002")
	require.True(t, ok)
	assert.Equal(t, classification.StatusUnclassified, acc.Status)
}
