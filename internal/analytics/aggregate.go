// Package analytics turns raw recycling reports into aggregate statistics,
// environmental impact equivalences, monthly series, rankings and milestone
// progress.
//
// Every function in this package is a pure computation over its arguments.
// Nothing is cached or persisted here; callers fetch rows, aggregate, and
// throw the results away after rendering.
package analytics

import (
	"sort"

	"recycling-tracker/internal/domain"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type MaterialTotals struct {
	Count  int             `json:"count"`
	MassKg decimal.Decimal `json:"mass_kg"`
}

type MonthTotals struct {
	Count       int             `json:"count"`
	MassKg      decimal.Decimal `json:"mass_kg"`
	ActiveUsers int             `json:"active_users"`
}

type LocationTotals struct {
	Count         int             `json:"count"`
	MassKg        decimal.Decimal `json:"mass_kg"`
	DistinctUsers int             `json:"distinct_users"`
}

// Snapshot is the request scoped aggregate of a report collection.
//
// Invariants: TotalMassKg equals the sum of PerMaterial mass and TotalReports
// equals the sum of PerMaterial counts.
type Snapshot struct {
	TotalReports int                                    `json:"total_reports"`
	TotalMassKg  decimal.Decimal                        `json:"total_mass_kg"`
	PerMaterial  map[domain.MaterialType]MaterialTotals `json:"per_material"`
	PerMonth     map[Month]MonthTotals                  `json:"per_month"`
	PerLocation  map[string]LocationTotals              `json:"per_location"`
}

// EmptySnapshot returns the zero aggregate with non-nil maps.
func EmptySnapshot() Snapshot {
	return Snapshot{
		TotalMassKg: decimal.Zero,
		PerMaterial: map[domain.MaterialType]MaterialTotals{},
		PerMonth:    map[Month]MonthTotals{},
		PerLocation: map[string]LocationTotals{},
	}
}

type userSet map[string]struct{}

// Aggregate builds a Snapshot from reports. The reports are expected to be
// filtered by the caller already (time range, user, status).
//
// An empty input yields EmptySnapshot. A negative quantity, an unknown
// material or an unknown status fails the whole aggregation with a
// *ValidationError naming the offending record.
func Aggregate(reports []domain.Report) (Snapshot, error) {
	snap := EmptySnapshot()
	if len(reports) == 0 {
		return snap, nil
	}

	monthUsers := make(map[Month]userSet)
	locationUsers := make(map[string]userSet)

	for i, r := range reports {
		if err := validateReport(i, r); err != nil {
			return EmptySnapshot(), err
		}

		snap.TotalReports++
		snap.TotalMassKg = snap.TotalMassKg.Add(r.QuantityKg)

		mt := snap.PerMaterial[r.MaterialType]
		mt.Count++
		mt.MassKg = mt.MassKg.Add(r.QuantityKg)
		snap.PerMaterial[r.MaterialType] = mt

		month := MonthOf(r.ReportedAt)
		mo := snap.PerMonth[month]
		mo.Count++
		mo.MassKg = mo.MassKg.Add(r.QuantityKg)
		snap.PerMonth[month] = mo
		addUser(monthUsers, month, r.UserID)

		lo := snap.PerLocation[r.Location]
		lo.Count++
		lo.MassKg = lo.MassKg.Add(r.QuantityKg)
		snap.PerLocation[r.Location] = lo
		addUser(locationUsers, r.Location, r.UserID)
	}

	for month, users := range monthUsers {
		mo := snap.PerMonth[month]
		mo.ActiveUsers = len(users)
		snap.PerMonth[month] = mo
	}
	for location, users := range locationUsers {
		lo := snap.PerLocation[location]
		lo.DistinctUsers = len(users)
		snap.PerLocation[location] = lo
	}

	return snap, nil
}

func addUser[K comparable](sets map[K]userSet, key K, userID string) {
	set, ok := sets[key]
	if !ok {
		set = make(userSet)
		sets[key] = set
	}
	set[userID] = struct{}{}
}

func validateReport(i int, r domain.Report) error {
	switch {
	case r.QuantityKg.IsNegative():
		return &ValidationError{Index: i, ReportID: r.ID, Field: "quantity_kg", Value: r.QuantityKg.String(), Reason: "must not be negative"}
	case !r.MaterialType.Valid():
		return &ValidationError{Index: i, ReportID: r.ID, Field: "material_type", Value: string(r.MaterialType), Reason: "unknown material type"}
	case !r.Status.Valid():
		return &ValidationError{Index: i, ReportID: r.ID, Field: "status", Value: string(r.Status), Reason: "unknown status"}
	}
	return nil
}

// Months returns the months present in the snapshot in chronological order.
func (s Snapshot) Months() []Month {
	months := make([]Month, 0, len(s.PerMonth))
	for m := range s.PerMonth {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months
}

type MaterialShare struct {
	Material domain.MaterialType `json:"material"`
	Count    int                 `json:"count"`
	MassKg   decimal.Decimal     `json:"mass_kg"`
	// SharePct is this material's share of the total mass, 0 when the total is 0.
	SharePct float64 `json:"share_pct"`
}

// MaterialsByMass orders the per-material totals by mass, heaviest first,
// ties broken by material name.
func (s Snapshot) MaterialsByMass() []MaterialShare {
	shares := make([]MaterialShare, 0, len(s.PerMaterial))
	for material, t := range s.PerMaterial {
		share := MaterialShare{Material: material, Count: t.Count, MassKg: t.MassKg}
		if s.TotalMassKg.IsPositive() {
			share.SharePct = t.MassKg.Mul(hundred).Div(s.TotalMassKg).Round(2).InexactFloat64()
		}
		shares = append(shares, share)
	}
	sort.Slice(shares, func(i, j int) bool {
		if c := shares[i].MassKg.Cmp(shares[j].MassKg); c != 0 {
			return c > 0
		}
		return shares[i].Material < shares[j].Material
	})
	return shares
}

type LocationRollup struct {
	Location string `json:"location"`
	LocationTotals
}

// TopLocations returns up to n locations ordered by report count, then mass,
// then name. n <= 0 returns all of them.
func (s Snapshot) TopLocations(n int) []LocationRollup {
	rollups := make([]LocationRollup, 0, len(s.PerLocation))
	for location, t := range s.PerLocation {
		rollups = append(rollups, LocationRollup{Location: location, LocationTotals: t})
	}
	sort.Slice(rollups, func(i, j int) bool {
		a, b := rollups[i], rollups[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if c := a.MassKg.Cmp(b.MassKg); c != 0 {
			return c > 0
		}
		return a.Location < b.Location
	})
	if n > 0 && len(rollups) > n {
		rollups = rollups[:n]
	}
	return rollups
}

// Delta compares a metric between two periods.
type Delta struct {
	Current  decimal.Decimal `json:"current"`
	Previous decimal.Decimal `json:"previous"`
	// Percent is nil when Previous is zero: the change is undefined and
	// callers render a neutral indicator.
	Percent *float64 `json:"percent"`
}

func (d Delta) Defined() bool { return d.Percent != nil }

// PeriodDelta computes (current - previous) / previous * 100.
func PeriodDelta(current, previous decimal.Decimal) Delta {
	d := Delta{Current: current, Previous: previous}
	if previous.IsZero() {
		return d
	}
	pct := current.Sub(previous).Div(previous).Mul(hundred).Round(2).InexactFloat64()
	d.Percent = &pct
	return d
}

// MonthOverMonth returns report count and mass deltas of month against the
// month before it.
func (s Snapshot) MonthOverMonth(month Month) (reports Delta, mass Delta) {
	cur := s.PerMonth[month]
	prev := s.PerMonth[month.Prev()]
	reports = PeriodDelta(decimal.NewFromInt(int64(cur.Count)), decimal.NewFromInt(int64(prev.Count)))
	mass = PeriodDelta(cur.MassKg, prev.MassKg)
	return reports, mass
}
