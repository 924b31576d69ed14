package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTiersCrossed(t *testing.T) {
	assert.Equal(t, 0, tiersCrossed(50, 50, 100, 50))
	assert.Equal(t, 1, tiersCrossed(150, 150, 100, 50))
	assert.Equal(t, 2, tiersCrossed(300, 150, 100, 50))

	// gains above the tier cap stop counting
	assert.Equal(t, 1, tiersCrossed(5010, 20, 100, 50))
	assert.Equal(t, 0, tiersCrossed(6000, 100, 100, 50))
}

// Two writers racing on the same row each derive their crossing from the XP
// they observed after their own update, so the counts compose instead of
// both reading the same stale tier.
func TestTiersCrossedComposesUnderConcurrency(t *testing.T) {
	first := tiersCrossed(150, 150, 100, 50)
	second := tiersCrossed(300, 150, 100, 50)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
	assert.Equal(t, 3, first+second)
}
