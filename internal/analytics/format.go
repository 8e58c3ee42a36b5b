package analytics

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	millionThreshold = 1_000_000
	billionThreshold = 1_000_000_000
)

// printer formats numbers with English thousand separators.
var printer = message.NewPrinter(language.English)

// FormatNumber formats an integer with thousand separators: 18248 -> "18,248".
func FormatNumber(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatDecimal rounds d to places and adds thousand separators to the integer
// part: 1234.567 with 2 places -> "1,234.57".
func FormatDecimal(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)
	intPart, frac, hasFrac := strings.Cut(s, ".")
	negative := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	n, err := decimal.NewFromString(intPart)
	if err != nil {
		return s
	}
	out := FormatNumber(n.IntPart())
	if negative {
		out = "-" + out
	}
	if hasFrac {
		out += "." + frac
	}
	return out
}

// FormatLarge abbreviates values of a million and above: "~1.5 billion".
func FormatLarge(d decimal.Decimal) string {
	f := d.InexactFloat64()
	switch {
	case f >= billionThreshold:
		return fmt.Sprintf("~%.1f billion", f/billionThreshold)
	case f >= millionThreshold:
		return fmt.Sprintf("~%.1f million", f/millionThreshold)
	}
	return FormatNumber(d.Round(0).IntPart())
}

// Summary renders the rounded impact as a one line sentence.
func (m ImpactMetrics) Summary() string {
	r := m.Rounded()
	return fmt.Sprintf("Avoided %s kg CO2, equivalent to %s trees or %s cars off the road for a year",
		FormatLarge(decimal.NewFromInt(r.CO2AvoidedKg)),
		FormatLarge(decimal.NewFromInt(r.TreeEquivalent)),
		FormatLarge(decimal.NewFromInt(r.CarEquivalent)))
}
