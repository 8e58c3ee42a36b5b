package analytics

import (
	"fmt"
	"time"
)

const monthLayout = "2006-01"

// Month is a calendar month key, rendered as "YYYY-MM".
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf truncates t to its year-month in t's own location. No timezone
// conversion is performed.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthOf(t), nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// Start returns the first instant of the month in loc.
func (m Month) Start(loc *time.Location) time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
}

func (m Month) AddMonths(n int) Month {
	return MonthOf(time.Date(m.Year, m.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC))
}

func (m Month) Next() Month { return m.AddMonths(1) }

func (m Month) Prev() Month { return m.AddMonths(-1) }

func (m Month) index() int {
	return m.Year*12 + int(m.Month) - 1
}

func (m Month) Before(o Month) bool { return m.index() < o.index() }

func (m Month) After(o Month) bool { return m.index() > o.index() }

func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MonthRange is an inclusive range of calendar months.
type MonthRange struct {
	Start Month `json:"start"`
	End   Month `json:"end"`
}

func ParseMonthRange(start, end string) (MonthRange, error) {
	s, err := ParseMonth(start)
	if err != nil {
		return MonthRange{}, err
	}
	e, err := ParseMonth(end)
	if err != nil {
		return MonthRange{}, err
	}
	r := MonthRange{Start: s, End: e}
	if err := r.Validate(); err != nil {
		return MonthRange{}, err
	}
	return r, nil
}

// LastMonths returns the n months ending with (and including) end.
func LastMonths(end Month, n int) MonthRange {
	if n < 1 {
		n = 1
	}
	return MonthRange{Start: end.AddMonths(-(n - 1)), End: end}
}

// RangeEndingAt resolves optional YYYY-MM bounds. A missing end defaults to
// current and a missing start to the n months ending at end.
func RangeEndingAt(start, end string, current Month, n int) (MonthRange, error) {
	if end != "" {
		m, err := ParseMonth(end)
		if err != nil {
			return MonthRange{}, err
		}
		current = m
	}
	r := LastMonths(current, n)
	if start != "" {
		m, err := ParseMonth(start)
		if err != nil {
			return MonthRange{}, err
		}
		r.Start = m
	}
	if err := r.Validate(); err != nil {
		return MonthRange{}, err
	}
	return r, nil
}

func (r MonthRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidRange)
	}
	if r.Start.After(r.End) {
		return fmt.Errorf("%w: %s is after %s", ErrInvalidRange, r.Start, r.End)
	}
	return nil
}

// Len is the number of months in the range, 0 for an invalid range.
func (r MonthRange) Len() int {
	if r.Start.After(r.End) {
		return 0
	}
	return r.End.index() - r.Start.index() + 1
}

// Bounds returns the half-open time interval [from, to) covered by the range.
func (r MonthRange) Bounds(loc *time.Location) (from, to time.Time) {
	return r.Start.Start(loc), r.End.Next().Start(loc)
}

func (r MonthRange) String() string {
	return r.Start.String() + ".." + r.End.String()
}
