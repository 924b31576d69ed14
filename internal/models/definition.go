package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	DEFINITION_QUEST       = "quest"
	DEFINITION_ACHIEVEMENT = "achievement"

	PERIOD_DAILY     = "daily"
	PERIOD_WEEKLY    = "weekly"
	PERIOD_PERMANENT = "permanent"
)

// ProgressDefinition is seeded reference data: what a quest or achievement
// requires and what it pays out.
type ProgressDefinition struct {
	bun.BaseModel `bun:"table:progress_definition"`
	ID            string    `bun:"id,pk" json:"id"`
	Category      string    `bun:"category" json:"category"`
	Name          string    `bun:"name" json:"name"`
	Kind          EventKind `bun:"kind" json:"kind"`
	Target        int64     `bun:"target" json:"target"`
	Reward        Reward    `bun:"reward,type:jsonb" json:"reward"`
	Mode          *string   `bun:"mode" json:"mode"`
	Archetype     *string   `bun:"archetype" json:"archetype"`
	Period        string    `bun:"period" json:"period"`
	Secret        bool      `bun:"secret" json:"-"`
	Active        bool      `bun:"active" json:"active"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
}

// Matches reports whether an event counts towards this definition.
func (d *ProgressDefinition) Matches(event *DomainEvent) bool {
	if !d.Active || d.Kind != event.Kind {
		return false
	}
	if d.Mode != nil && *d.Mode != event.Mode {
		return false
	}
	if d.Archetype != nil && *d.Archetype != event.Archetype {
		return false
	}

	return true
}
