package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"arcana/internal/models"
)

func questPool(n int) []models.ProgressDefinition {
	pool := make([]models.ProgressDefinition, n)
	for i := range pool {
		pool[i] = models.ProgressDefinition{
			ID:       string(rune('a' + i)),
			Category: models.DEFINITION_QUEST,
			Period:   models.PERIOD_DAILY,
		}
	}
	return pool
}

func TestSelectQuestsDeterministic(t *testing.T) {
	pool := questPool(12)

	first := SelectQuests(pool, 42, "2026-08-26", 3)
	second := SelectQuests(pool, 42, "2026-08-26", 3)

	assert.Len(t, first, 3)
	assert.Equal(t, first, second)
}

func TestSelectQuestsVariesByUserAndPeriod(t *testing.T) {
	pool := questPool(12)
	base := SelectQuests(pool, 42, "2026-08-26", 3)

	// different seeds should produce a different pick at least once across a
	// handful of users; with 12 choose 3 orderings a full collision run is
	// effectively impossible
	differs := false
	for userID := int64(1); userID <= 10; userID++ {
		if userID == 42 {
			continue
		}
		picked := SelectQuests(pool, userID, "2026-08-26", 3)
		if !assert.ObjectsAreEqual(base, picked) {
			differs = true
			break
		}
	}
	assert.True(t, differs)

	differs = false
	for _, periodKey := range []string{"2026-08-27", "2026-08-28", "2026-08-29", "2026-08-30"} {
		if !assert.ObjectsAreEqual(base, SelectQuests(pool, 42, periodKey, 3)) {
			differs = true
			break
		}
	}
	assert.True(t, differs)
}

func TestSelectQuestsSmallPool(t *testing.T) {
	pool := questPool(2)
	picked := SelectQuests(pool, 42, "2026-08-26", 3)
	assert.Equal(t, pool, picked)
}

func TestPeriodKey(t *testing.T) {
	at := time.Date(2026, 8, 26, 15, 4, 5, 0, time.UTC)

	assert.Equal(t, "2026-08-26", PeriodKey(models.PERIOD_DAILY, at))
	assert.Equal(t, "2026-W35", PeriodKey(models.PERIOD_WEEKLY, at))
	assert.Equal(t, "permanent", PeriodKey(models.PERIOD_PERMANENT, at))
}

func TestPeriodEnd(t *testing.T) {
	wednesday := time.Date(2026, 8, 26, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC), periodEnd(models.PERIOD_DAILY, wednesday))
	// weekly quests run until the following Monday
	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), periodEnd(models.PERIOD_WEEKLY, wednesday))
}

func TestMergeLockedAchievements(t *testing.T) {
	rows := []models.UserProgress{
		{UserID: 42, DefinitionID: "ach-first-win", Status: models.ACHIEVEMENT_UNLOCKED},
	}
	definitions := []models.ProgressDefinition{
		{ID: "ach-first-win"},
		{ID: "wins-100"},
	}

	merged := mergeLockedAchievements(rows, definitions, 42)
	assert.Len(t, merged, 2)
	assert.Equal(t, models.ACHIEVEMENT_UNLOCKED, merged[0].Status)
	assert.Equal(t, "wins-100", merged[1].DefinitionID)
	assert.Equal(t, models.ACHIEVEMENT_LOCKED, merged[1].Status)
	assert.Equal(t, int64(0), merged[1].CurrentProgress)

	// touched rows never get a duplicate locked entry
	again := mergeLockedAchievements(merged, definitions, 42)
	assert.Len(t, again, 2)
}
