package analytics

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"recycling-tracker/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Reference sequestration and emission rates used to derive the default
// equivalence factors.
// Source: https://www.epa.gov/energy/greenhouse-gas-equivalencies-calculator
const (
	// TreeAbsorptionKgPerYear is kg CO2 absorbed by one mature tree in a year.
	TreeAbsorptionKgPerYear = 21.77

	// CarEmissionKgPerYear is kg CO2 emitted by a typical passenger vehicle in a year.
	CarEmissionKgPerYear = 4600.0
)

// ImpactFactor converts one kilogram of a recycled material into
// environmental equivalents.
type ImpactFactor struct {
	CO2PerKg       float64 `json:"co2_per_kg" yaml:"co2_per_kg"`
	TreeEquivPerKg float64 `json:"tree_equiv_per_kg" yaml:"tree_equiv_per_kg"`
	CarEquivPerKg  float64 `json:"car_equiv_per_kg" yaml:"car_equiv_per_kg"`
}

func factorFromCO2(co2PerKg float64) ImpactFactor {
	return ImpactFactor{
		CO2PerKg:       co2PerKg,
		TreeEquivPerKg: roundTo(co2PerKg/TreeAbsorptionKgPerYear, 6),
		CarEquivPerKg:  roundTo(co2PerKg/CarEmissionKgPerYear, 8),
	}
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func (f ImpactFactor) validate(material domain.MaterialType) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"co2_per_kg", f.CO2PerKg},
		{"tree_equiv_per_kg", f.TreeEquivPerKg},
		{"car_equiv_per_kg", f.CarEquivPerKg},
	}
	for _, field := range fields {
		v := field.value
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s.%s = %v", ErrInvalidFactor, material, field.name, v)
		}
	}
	return nil
}

// ConversionTable maps material types to their impact factors. Materials
// missing from the table contribute nothing to impact metrics.
type ConversionTable map[domain.MaterialType]ImpactFactor

// DefaultConversionTable returns the built-in factors. It is a fresh copy on
// every call.
func DefaultConversionTable() ConversionTable {
	return ConversionTable{
		domain.MaterialPlastic: factorFromCO2(1.5),
		domain.MaterialPaper:   factorFromCO2(0.9),
		domain.MaterialGlass:   factorFromCO2(0.3),
		domain.MaterialOrganic: factorFromCO2(0.5),
		domain.MaterialMetal:   factorFromCO2(4.0),
	}
}

func (t ConversionTable) Lookup(material domain.MaterialType) (ImpactFactor, bool) {
	f, ok := t[material]
	return f, ok
}

func (t ConversionTable) Validate() error {
	for material, f := range t {
		if !material.Valid() {
			return fmt.Errorf("%w: unknown material %q", ErrInvalidFactor, material)
		}
		if err := f.validate(material); err != nil {
			return err
		}
	}
	return nil
}

// Policy is the externally configurable part of the engine.
type Policy struct {
	Factors    ConversionTable `json:"factors" yaml:"factors"`
	Milestones []MilestoneTier `json:"milestones" yaml:"milestones"`
}

func DefaultPolicy() Policy {
	return Policy{
		Factors:    DefaultConversionTable(),
		Milestones: DefaultMilestoneTiers(),
	}
}

// ParsePolicy decodes a YAML (or JSON) policy document. Sections that are
// absent keep their defaults; a present factors section replaces the whole
// default table.
func ParsePolicy(data []byte) (Policy, error) {
	var doc Policy
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return Policy{}, fmt.Errorf("failed to decode impact policy: %w", err)
	}

	p := DefaultPolicy()
	if doc.Factors != nil {
		p.Factors = doc.Factors
	}
	if doc.Milestones != nil {
		p.Milestones = doc.Milestones
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	p.Milestones = sortedTiers(p.Milestones)
	return p, nil
}

func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read impact policy %s: %w", path, err)
	}
	return ParsePolicy(data)
}

func (p Policy) Validate() error {
	if err := p.Factors.Validate(); err != nil {
		return err
	}
	return ValidateMilestoneTiers(p.Milestones)
}

// decimals converts the float factors so accumulation happens in exact
// decimal arithmetic.
func (f ImpactFactor) decimals() (co2, tree, car decimal.Decimal) {
	return decimal.NewFromFloat(f.CO2PerKg), decimal.NewFromFloat(f.TreeEquivPerKg), decimal.NewFromFloat(f.CarEquivPerKg)
}

// Materials returns the materials of the table sorted by name.
func (t ConversionTable) Materials() []domain.MaterialType {
	out := make([]domain.MaterialType, 0, len(t))
	for m := range t {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
