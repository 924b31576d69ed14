package models

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type EventKind string

const (
	EVENT_MATCH_WON    EventKind = "match_won"
	EVENT_MATCH_LOST   EventKind = "match_lost"
	EVENT_MATCH_PLAYED EventKind = "match_played"
	EVENT_CARD_PLAYED  EventKind = "card_played"
	EVENT_WAGER_WON    EventKind = "wager_won"
	EVENT_STAGE_CLEAR  EventKind = "stage_clear"
)

var eventKinds = map[EventKind]bool{
	EVENT_MATCH_WON:    true,
	EVENT_MATCH_LOST:   true,
	EVENT_MATCH_PLAYED: true,
	EVENT_CARD_PLAYED:  true,
	EVENT_WAGER_WON:    true,
	EVENT_STAGE_CLEAR:  true,
}

func KnownEventKind(kind EventKind) bool {
	return eventKinds[kind]
}

// DomainEvent is an immutable fact about a gameplay outcome. It carries only
// what the handler groups need; dispatch happens after the originating
// transaction commits, so consumers must re-query for effects.
type DomainEvent struct {
	EventID    string    `json:"event_id,omitempty" msgpack:"event_id"`
	Kind       EventKind `json:"kind" msgpack:"kind"`
	UserID     int64     `json:"user_id" msgpack:"user_id"`
	OpponentID *int64    `json:"opponent_id,omitempty" msgpack:"opponent_id"`
	MatchID    string    `json:"match_id,omitempty" msgpack:"match_id"`
	Mode       string    `json:"mode,omitempty" msgpack:"mode"`
	Stage      string    `json:"stage,omitempty" msgpack:"stage"`
	Archetype  string    `json:"archetype,omitempty" msgpack:"archetype"`
	Value      int64     `json:"value" msgpack:"value"`
	XP         int64     `json:"xp" msgpack:"xp"`
	WagerNano  int64     `json:"wager_nano,omitempty" msgpack:"wager_nano"`
}

// EventReceipt marks one handler group as having processed one event. The
// row commits in the same transaction as the group's writes, which is what
// makes at-least-once task delivery safe.
type EventReceipt struct {
	bun.BaseModel `bun:"table:event_receipt"`

	EventID      string    `bun:"event_id,pk"`
	HandlerGroup string    `bun:"handler_group,pk"`
	ProcessedAt  time.Time `bun:"processed_at,notnull"`
}

func (e *DomainEvent) Validate() error {
	if !eventKinds[e.Kind] {
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if e.UserID == 0 {
		return fmt.Errorf("event %s: missing user", e.Kind)
	}
	if e.Value < 0 || e.XP < 0 || e.WagerNano < 0 {
		return fmt.Errorf("event %s: negative values", e.Kind)
	}

	return nil
}
