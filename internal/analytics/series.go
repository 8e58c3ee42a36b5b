package analytics

import "github.com/shopspring/decimal"

type SeriesPoint struct {
	Month       Month           `json:"month"`
	ReportCount int             `json:"report_count"`
	MassKg      decimal.Decimal `json:"mass_kg"`
	ActiveUsers int             `json:"active_users"`
}

// BuildMonthlySeries emits one point per calendar month of r, oldest first.
// Months without activity are filled with zeros so charts never show gaps.
func BuildMonthlySeries(perMonth map[Month]MonthTotals, r MonthRange) ([]SeriesPoint, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	series := make([]SeriesPoint, 0, r.Len())
	for m := r.Start; !m.After(r.End); m = m.Next() {
		t := perMonth[m]
		mass := t.MassKg
		if t.Count == 0 {
			mass = decimal.Zero
		}
		series = append(series, SeriesPoint{
			Month:       m,
			ReportCount: t.Count,
			MassKg:      mass,
			ActiveUsers: t.ActiveUsers,
		})
	}
	return series, nil
}
