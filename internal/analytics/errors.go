package analytics

import "fmt"

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = constError("invalid report")

	// ErrNotFound is returned by Rank when the population is empty or the
	// target user is not part of it.
	ErrNotFound = constError("ranking entry not found")

	// ErrAllMilestonesCompleted is the terminal milestone state: the user met
	// the threshold of the last tier.
	ErrAllMilestonesCompleted = constError("all milestones completed")

	// ErrNoMilestoneTiers is returned when no tier is configured.
	ErrNoMilestoneTiers = constError("no milestone tiers configured")

	// ErrInvalidMilestone is returned for a tier without a label, with a
	// non-positive threshold or with a threshold used twice.
	ErrInvalidMilestone = constError("invalid milestone tier")

	// ErrInvalidMonth is returned for a month key that is not YYYY-MM.
	ErrInvalidMonth = constError("invalid month")

	// ErrInvalidRange is returned when a month range ends before it starts.
	ErrInvalidRange = constError("invalid month range")

	// ErrInvalidFactor is returned for a negative or non-finite factor or an
	// unknown material.
	ErrInvalidFactor = constError("invalid impact factor")
)

// ValidationError identifies the record that made an aggregation fail.
type ValidationError struct {
	Index    int // position in the input sequence
	ReportID string
	Field    string
	Value    string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid report %q at index %d: %s %q: %s", e.ReportID, e.Index, e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
