package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierForXP(t *testing.T) {
	assert.Equal(t, 0, TierForXP(0, 100, 50))
	assert.Equal(t, 0, TierForXP(99, 100, 50))
	assert.Equal(t, 1, TierForXP(100, 100, 50))
	assert.Equal(t, 2, TierForXP(250, 100, 50))
	assert.Equal(t, 50, TierForXP(5000, 100, 50))

	// capped at the season ceiling
	assert.Equal(t, 50, TierForXP(999999, 100, 50))

	// degenerate inputs never panic or go negative
	assert.Equal(t, 0, TierForXP(500, 0, 50))
	assert.Equal(t, 0, TierForXP(-100, 100, 50))
}

func TestTierForXPMatchesFloorDivision(t *testing.T) {
	const xpPerTier = int64(100)
	const totalTiers = 50

	for xp := int64(0); xp <= 6000; xp += 37 {
		want := int(xp / xpPerTier)
		if want > totalTiers {
			want = totalTiers
		}
		assert.Equal(t, want, TierForXP(xp, xpPerTier, totalTiers), "xp=%d", xp)
	}
}

func TestClaimedTracks(t *testing.T) {
	progress := &BattlePassProgress{
		ClaimedFreeTiers:    []int{1, 2, 5},
		ClaimedPremiumTiers: []int{1},
	}

	assert.True(t, progress.Claimed(5, TRACK_FREE))
	assert.False(t, progress.Claimed(5, TRACK_PREMIUM))
	assert.True(t, progress.Claimed(1, TRACK_PREMIUM))
	assert.False(t, progress.Claimed(3, TRACK_FREE))
}
