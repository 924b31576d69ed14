package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	PROGRESS_ACTIVE    = "active"
	PROGRESS_COMPLETED = "completed"
	PROGRESS_CLAIMED   = "claimed"

	ACHIEVEMENT_LOCKED   = "locked"
	ACHIEVEMENT_UNLOCKED = "unlocked"
)

type UserProgress struct {
	bun.BaseModel   `bun:"table:user_progress"`
	ID              int64      `bun:"id,pk,autoincrement" json:"id"`
	UserID          int64      `bun:"user_id" json:"user_id"`
	DefinitionID    string     `bun:"definition_id" json:"definition_id"`
	PeriodKey       string     `bun:"period_key" json:"period_key"`
	CurrentProgress int64      `bun:"current_progress" json:"current_progress"`
	Status          string     `bun:"status" json:"status"`
	UnlockedAt      *time.Time `bun:"unlocked_at" json:"unlocked_at"`
	ClaimedAt       *time.Time `bun:"claimed_at" json:"claimed_at"`
	ExpiresAt       *time.Time `bun:"expires_at" json:"expires_at"`
	CreatedAt       time.Time  `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time  `bun:"updated_at" json:"updated_at"`

	Definition *ProgressDefinition `bun:"-" json:"definition,omitempty"`
}

// NextProgress clamps an increment to [0, target]; progress never moves
// backwards.
func NextProgress(current, value, target int64) int64 {
	if value < 0 {
		value = 0
	}
	next := current + value
	if next > target {
		return target
	}

	return next
}
