package classification

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coa-classifier/internal/domain/ledger"
)

func classifiedRow(code string) ledger.Row {
	return ledger.Row{
		Code:     code,
		Label:    "Cemento",
		Amount:   decimal.NewFromInt(1000),
		FlowType: ledger.FlowTypeExpense,
		Classification: ledger.Classification{
			Category:    "Costos",
			SubCategory: "Materiales",
			DetailClass: "Cemento",
		},
	}
}

func TestStatusOf(t *testing.T) {
	t.Run("CompleteClassification", func(t *testing.T) {
		assert.Equal(t, StatusClassified, StatusOf(classifiedRow("5000-1002-001-001")))
	})

	t.Run("UndefinedFlowType", func(t *testing.T) {
		row := classifiedRow("5000-1002-001-001")
		row.FlowType = ledger.FlowTypeUndefined
		assert.Equal(t, StatusUnclassified, StatusOf(row))
	})

	t.Run("PlaceholderCategory", func(t *testing.T) {
		row := classifiedRow("5000-1002-001-001")
		row.Classification.Category = ledger.PlaceholderCategory
		assert.Equal(t, StatusUnclassified, StatusOf(row))
	})

	t.Run("PlaceholderDetailClass", func(t *testing.T) {
		row := classifiedRow("5000-1002-001-001")
		row.Classification.DetailClass = ledger.PlaceholderSubClass
		assert.Equal(t, StatusUnclassified, StatusOf(row))
	})

	t.Run("BlankFields", func(t *testing.T) {
		row := classifiedRow("5000-1002-001-001")
		row.Classification = ledger.Classification{}
		assert.Equal(t, StatusUnclassified, StatusOf(row))
	})
}

func TestStatus_Covers(t *testing.T) {
	assert.True(t, StatusClassified.Covers())
	assert.True(t, StatusImplicitlyClassified.Covers())
	assert.False(t, StatusUnclassified.Covers())

	assert.True(t, StatusClassified.IsClassified())
	assert.False(t, StatusImplicitlyClassified.IsClassified())
}

func TestCatalogue(t *testing.T) {
	now := time.Now()
	rules := []Rule{
		{AccountCode: "5000-1002-001-001", Category: "Costos", Classification: "Materiales", SubClassification: "Cemento", EffectiveFrom: now.Add(-48 * time.Hour), IsActive: true},
		// Newer version of the same rule must win
		{AccountCode: "5000-1002-001-001", Category: "Costos", Classification: "Materiales", SubClassification: "Cemento Gris", EffectiveFrom: now, IsActive: true},
		// Inactive rules are invisible
		{AccountCode: "5000-1002-001-002", Category: "Costos", Classification: "Materiales", SubClassification: "Agregado", EffectiveFrom: now, IsActive: false},
	}

	cat := NewCatalogue(rules)
	assert.Equal(t, 1, cat.Len())

	rule, ok := cat.Lookup("5000-1002-001-001")
	require.True(t, ok)
	assert.Equal(t, "Cemento Gris", rule.SubClassification)

	_, ok = cat.Lookup("5000-1002-001-002")
	assert.False(t, ok)
}

func TestCatalogue_Apply(t *testing.T) {
	now := time.Now()
	cat := NewCatalogue([]Rule{
		{AccountCode: "5000-1002-001-002", Category: "Costos", Classification: "Materiales", SubClassification: "Agregado", EffectiveFrom: now, IsActive: true},
	})

	rows := []ledger.Row{
		classifiedRow("5000-1002-001-001"),
		{Code: "5000-1002-001-002", Label: "Agregado Grueso", Amount: decimal.NewFromInt(500), FlowType: ledger.FlowTypeUndefined},
		{Code: "5000-1002-001-003", Label: "Urea", Amount: decimal.NewFromInt(656), FlowType: ledger.FlowTypeUndefined},
	}

	merged := cat.Apply(rows)

	// Row-level classification untouched
	assert.Equal(t, StatusClassified, StatusOf(merged[0]))
	// Catalogue rule filled in, flow type inferred from category
	assert.Equal(t, StatusClassified, StatusOf(merged[1]))
	assert.Equal(t, ledger.FlowTypeExpense, merged[1].FlowType)
	// No rule: stays unclassified
	assert.Equal(t, StatusUnclassified, StatusOf(merged[2]))
	// Input slice not mutated
	assert.True(t, rows[1].Classification.IsEmpty())
}
