package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextProgressClampsAtTarget(t *testing.T) {
	// three events of value 4 against target 10: 4, 8, 10
	progress := int64(0)
	progress = NextProgress(progress, 4, 10)
	assert.Equal(t, int64(4), progress)
	progress = NextProgress(progress, 4, 10)
	assert.Equal(t, int64(8), progress)
	progress = NextProgress(progress, 4, 10)
	assert.Equal(t, int64(10), progress)

	// once at target, further events change nothing
	assert.Equal(t, int64(10), NextProgress(progress, 100, 10))
}

func TestNextProgressNonDecreasing(t *testing.T) {
	current := int64(0)
	for _, value := range []int64{3, 0, -5, 7, 2, 100} {
		next := NextProgress(current, value, 20)
		assert.GreaterOrEqual(t, next, current)
		assert.LessOrEqual(t, next, int64(20))
		current = next
	}
}
