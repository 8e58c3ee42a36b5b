package analytics

import (
	"fmt"
	"sort"
)

type MilestoneTier struct {
	Threshold int    `json:"threshold" yaml:"threshold"`
	Label     string `json:"label" yaml:"label"`
}

func DefaultMilestoneTiers() []MilestoneTier {
	return []MilestoneTier{
		{Threshold: 10, Label: "Eco Starter"},
		{Threshold: 25, Label: "Green Helper"},
		{Threshold: 50, Label: "Recycling Champion"},
		{Threshold: 100, Label: "Planet Guardian"},
	}
}

// MilestoneProgress describes the next unmet tier.
type MilestoneProgress struct {
	// TierIndex is the position of Tier in ascending threshold order.
	TierIndex       int           `json:"current_tier_index"`
	Tier            MilestoneTier `json:"tier"`
	Achieved        int           `json:"achieved"`
	Remaining       int           `json:"remaining"`
	PercentComplete float64       `json:"percent_complete"`
}

func ValidateMilestoneTiers(tiers []MilestoneTier) error {
	if len(tiers) == 0 {
		return ErrNoMilestoneTiers
	}
	seen := make(map[int]struct{}, len(tiers))
	for _, t := range tiers {
		if t.Threshold <= 0 {
			return fmt.Errorf("%w: milestone %q threshold must be positive, got %d", ErrInvalidMilestone, t.Label, t.Threshold)
		}
		if t.Label == "" {
			return fmt.Errorf("%w: milestone with threshold %d has no label", ErrInvalidMilestone, t.Threshold)
		}
		if _, dup := seen[t.Threshold]; dup {
			return fmt.Errorf("%w: duplicate milestone threshold %d", ErrInvalidMilestone, t.Threshold)
		}
		seen[t.Threshold] = struct{}{}
	}
	return nil
}

func sortedTiers(tiers []MilestoneTier) []MilestoneTier {
	sorted := make([]MilestoneTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Threshold < sorted[j].Threshold })
	return sorted
}

// NextMilestone finds the first tier whose threshold exceeds totalReports.
// Completion is measured against that tier's threshold alone, not
// cumulatively. Once the last threshold is met it returns
// ErrAllMilestonesCompleted.
func NextMilestone(totalReports int, tiers []MilestoneTier) (MilestoneProgress, error) {
	if totalReports < 0 {
		return MilestoneProgress{}, fmt.Errorf("%w: total reports must not be negative, got %d", ErrValidation, totalReports)
	}
	if len(tiers) == 0 {
		return MilestoneProgress{}, ErrNoMilestoneTiers
	}

	sorted := sortedTiers(tiers)
	for i, t := range sorted {
		if t.Threshold <= totalReports {
			continue
		}
		pct := float64(totalReports) * 100 / float64(t.Threshold)
		if pct > 100 {
			pct = 100
		}
		return MilestoneProgress{
			TierIndex:       i,
			Tier:            t,
			Achieved:        i,
			Remaining:       t.Threshold - totalReports,
			PercentComplete: pct,
		}, nil
	}
	return MilestoneProgress{}, ErrAllMilestonesCompleted
}
