package analytics

import (
	"sort"

	"recycling-tracker/internal/domain"

	"github.com/shopspring/decimal"
)

// ImpactMetrics are the environmental equivalents of a recycled mass. Values
// keep full precision; use Rounded for display.
type ImpactMetrics struct {
	CO2AvoidedKg   decimal.Decimal `json:"co2_avoided_kg"`
	TreeEquivalent decimal.Decimal `json:"tree_equivalent"`
	CarEquivalent  decimal.Decimal `json:"car_equivalent"`

	// UnlistedMaterials had mass but no entry in the conversion table and
	// contributed zero. Callers log these as a data-quality signal.
	UnlistedMaterials []domain.MaterialType `json:"unlisted_materials,omitempty"`
}

// RoundedImpact is the presentation form of ImpactMetrics.
type RoundedImpact struct {
	CO2AvoidedKg   int64 `json:"co2_avoided_kg"`
	TreeEquivalent int64 `json:"tree_equivalent"`
	CarEquivalent  int64 `json:"car_equivalent"`
}

// Rounded rounds each metric independently to the nearest integer.
func (m ImpactMetrics) Rounded() RoundedImpact {
	return RoundedImpact{
		CO2AvoidedKg:   m.CO2AvoidedKg.Round(0).IntPart(),
		TreeEquivalent: m.TreeEquivalent.Round(0).IntPart(),
		CarEquivalent:  m.CarEquivalent.Round(0).IntPart(),
	}
}

// ComputeImpact applies table to the per-material totals of a snapshot.
//
// Products and sums are exact decimals so the result does not depend on map
// iteration order, and repeated calls on the same input are identical.
func ComputeImpact(perMaterial map[domain.MaterialType]MaterialTotals, table ConversionTable) ImpactMetrics {
	materials := make([]domain.MaterialType, 0, len(perMaterial))
	for m := range perMaterial {
		materials = append(materials, m)
	}
	sort.Slice(materials, func(i, j int) bool { return materials[i] < materials[j] })

	co2, trees, cars := decimal.Zero, decimal.Zero, decimal.Zero
	var unlisted []domain.MaterialType
	for _, m := range materials {
		mass := perMaterial[m].MassKg
		factor, ok := table.Lookup(m)
		if !ok {
			if mass.IsPositive() {
				unlisted = append(unlisted, m)
			}
			continue
		}
		co2PerKg, treePerKg, carPerKg := factor.decimals()
		co2 = co2.Add(mass.Mul(co2PerKg))
		trees = trees.Add(mass.Mul(treePerKg))
		cars = cars.Add(mass.Mul(carPerKg))
	}

	return ImpactMetrics{
		CO2AvoidedKg:      co2,
		TreeEquivalent:    trees,
		CarEquivalent:     cars,
		UnlistedMaterials: unlisted,
	}
}
