package analytics

import (
	"testing"

	"recycling-tracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable() ConversionTable {
	return ConversionTable{
		domain.MaterialPlastic: {CO2PerKg: 2, TreeEquivPerKg: 0.1, CarEquivPerKg: 0.001},
		domain.MaterialPaper:   {CO2PerKg: 1, TreeEquivPerKg: 0.05, CarEquivPerKg: 0.0005},
	}
}

func TestComputeImpact(t *testing.T) {
	perMaterial := map[domain.MaterialType]MaterialTotals{
		domain.MaterialPlastic: {Count: 3, MassKg: kg("10.5")},
		domain.MaterialPaper:   {Count: 1, MassKg: kg("4")},
	}

	got := ComputeImpact(perMaterial, testTable())

	assertKg(t, "25", got.CO2AvoidedKg)
	assertKg(t, "1.25", got.TreeEquivalent)
	assertKg(t, "0.0125", got.CarEquivalent)
	assert.Empty(t, got.UnlistedMaterials)

	assert.Equal(t, RoundedImpact{CO2AvoidedKg: 25, TreeEquivalent: 1, CarEquivalent: 0}, got.Rounded())
}

func TestComputeImpact_Empty(t *testing.T) {
	got := ComputeImpact(nil, DefaultConversionTable())
	assert.True(t, got.CO2AvoidedKg.IsZero())
	assert.True(t, got.TreeEquivalent.IsZero())
	assert.True(t, got.CarEquivalent.IsZero())
	assert.Equal(t, RoundedImpact{}, got.Rounded())
}

func TestComputeImpact_UnlistedMaterialContributesZero(t *testing.T) {
	perMaterial := map[domain.MaterialType]MaterialTotals{
		domain.MaterialPlastic: {Count: 1, MassKg: kg("1")},
		domain.MaterialGlass:   {Count: 2, MassKg: kg("50")},
		domain.MaterialOther:   {Count: 1, MassKg: kg("0")},
	}

	got := ComputeImpact(perMaterial, testTable())

	assertKg(t, "2", got.CO2AvoidedKg)
	// zero mass is not worth reporting
	assert.Equal(t, []domain.MaterialType{domain.MaterialGlass}, got.UnlistedMaterials)
}

func TestComputeImpact_DefaultTableSkipsOther(t *testing.T) {
	got := ComputeImpact(map[domain.MaterialType]MaterialTotals{
		domain.MaterialOther: {Count: 1, MassKg: kg("3")},
	}, DefaultConversionTable())

	assert.True(t, got.CO2AvoidedKg.IsZero())
	assert.Equal(t, []domain.MaterialType{domain.MaterialOther}, got.UnlistedMaterials)
}

func TestComputeImpact_Deterministic(t *testing.T) {
	a := map[domain.MaterialType]MaterialTotals{}
	b := map[domain.MaterialType]MaterialTotals{}
	for _, m := range domain.Materials {
		a[m] = MaterialTotals{Count: 1, MassKg: kg("1.37")}
	}
	for i := len(domain.Materials) - 1; i >= 0; i-- {
		b[domain.Materials[i]] = MaterialTotals{Count: 1, MassKg: kg("1.37")}
	}

	table := DefaultConversionTable()
	first := ComputeImpact(a, table)
	for i := 0; i < 20; i++ {
		again := ComputeImpact(b, table)
		require.True(t, first.CO2AvoidedKg.Equal(again.CO2AvoidedKg))
		require.True(t, first.TreeEquivalent.Equal(again.TreeEquivalent))
		require.True(t, first.CarEquivalent.Equal(again.CarEquivalent))
		require.Equal(t, first.UnlistedMaterials, again.UnlistedMaterials)
	}
}

func TestComputeImpact_RoundsOnlyAtPresentation(t *testing.T) {
	table := ConversionTable{
		domain.MaterialPlastic: {TreeEquivPerKg: 0.1},
		domain.MaterialPaper:   {TreeEquivPerKg: 0.1},
		domain.MaterialGlass:   {TreeEquivPerKg: 0.1},
	}
	perMaterial := map[domain.MaterialType]MaterialTotals{
		domain.MaterialPlastic: {Count: 1, MassKg: kg("4")},
		domain.MaterialPaper:   {Count: 1, MassKg: kg("4")},
		domain.MaterialGlass:   {Count: 1, MassKg: kg("4")},
	}

	got := ComputeImpact(perMaterial, table)

	// 0.4 trees per material would round to zero each; the sum rounds to one.
	assertKg(t, "1.2", got.TreeEquivalent)
	assert.Equal(t, int64(1), got.Rounded().TreeEquivalent)
}

func TestImpactMetrics_Summary(t *testing.T) {
	m := ImpactMetrics{
		CO2AvoidedKg:   kg("18248.4"),
		TreeEquivalent: kg("838.2"),
		CarEquivalent:  kg("3.97"),
	}
	assert.Equal(t, "Avoided 18,248 kg CO2, equivalent to 838 trees or 4 cars off the road for a year", m.Summary())
}
