package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextMilestone(t *testing.T) {
	tiers := DefaultMilestoneTiers()

	tests := []struct {
		name          string
		total         int
		wantThreshold int
		wantIndex     int
		wantRemaining int
		wantPct       float64
	}{
		{name: "no reports", total: 0, wantThreshold: 10, wantIndex: 0, wantRemaining: 10, wantPct: 0},
		{name: "almost first", total: 9, wantThreshold: 10, wantIndex: 0, wantRemaining: 1, wantPct: 90},
		{name: "exactly first", total: 10, wantThreshold: 25, wantIndex: 1, wantRemaining: 15, wantPct: 40},
		{name: "between tiers", total: 30, wantThreshold: 50, wantIndex: 2, wantRemaining: 20, wantPct: 60},
		{name: "last tier pending", total: 99, wantThreshold: 100, wantIndex: 3, wantRemaining: 1, wantPct: 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextMilestone(tt.total, tiers)
			require.NoError(t, err)
			assert.Equal(t, tt.wantThreshold, got.Tier.Threshold)
			assert.Equal(t, tt.wantIndex, got.TierIndex)
			assert.Equal(t, tt.wantIndex, got.Achieved)
			assert.Equal(t, tt.wantRemaining, got.Remaining)
			assert.InDelta(t, tt.wantPct, got.PercentComplete, 0.0001)
			assert.LessOrEqual(t, got.PercentComplete, float64(100))
		})
	}
}

func TestNextMilestone_AllCompleted(t *testing.T) {
	for _, total := range []int{100, 101, 5000} {
		_, err := NextMilestone(total, DefaultMilestoneTiers())
		assert.ErrorIs(t, err, ErrAllMilestonesCompleted)
	}
}

func TestNextMilestone_UnsortedTiers(t *testing.T) {
	tiers := []MilestoneTier{
		{Threshold: 50, Label: "gold"},
		{Threshold: 5, Label: "bronze"},
		{Threshold: 20, Label: "silver"},
	}

	got, err := NextMilestone(7, tiers)
	require.NoError(t, err)
	assert.Equal(t, "silver", got.Tier.Label)
	assert.Equal(t, 1, got.TierIndex)
	assert.Equal(t, "gold", tiers[0].Label, "input is not reordered")
}

func TestNextMilestone_Errors(t *testing.T) {
	_, err := NextMilestone(3, nil)
	assert.ErrorIs(t, err, ErrNoMilestoneTiers)

	_, err = NextMilestone(-1, DefaultMilestoneTiers())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidateMilestoneTiers(t *testing.T) {
	tests := []struct {
		name    string
		tiers   []MilestoneTier
		wantErr error
	}{
		{name: "defaults", tiers: DefaultMilestoneTiers()},
		{name: "empty", tiers: []MilestoneTier{}, wantErr: ErrNoMilestoneTiers},
		{name: "zero threshold", tiers: []MilestoneTier{{Threshold: 0, Label: "x"}}, wantErr: ErrInvalidMilestone},
		{name: "missing label", tiers: []MilestoneTier{{Threshold: 3}}, wantErr: ErrInvalidMilestone},
		{
			name:    "duplicate threshold",
			tiers:   []MilestoneTier{{Threshold: 3, Label: "a"}, {Threshold: 3, Label: "b"}},
			wantErr: ErrInvalidMilestone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMilestoneTiers(tt.tiers)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
