package models

import (
	"fmt"
)

type RewardKind string

const (
	REWARD_GOLD   RewardKind = "gold"
	REWARD_GEMS   RewardKind = "gems"
	REWARD_XP     RewardKind = "xp"
	REWARD_CARD   RewardKind = "card"
	REWARD_PACK   RewardKind = "pack"
	REWARD_TITLE  RewardKind = "title"
	REWARD_AVATAR RewardKind = "avatar"

	// ledger-only kind: premium pass grants have no Reward payload
	REWARD_PREMIUM RewardKind = "premium"
)

// Reward is a tagged variant; Kind decides which of the payload fields is
// meaningful. Use Validate before persisting a definition.
type Reward struct {
	Kind   RewardKind `json:"kind"`
	Amount int64      `json:"amount,omitempty"`
	CardID string     `json:"card_id,omitempty"`
	PackID string     `json:"pack_id,omitempty"`
	Title  string     `json:"title,omitempty"`
	Avatar string     `json:"avatar,omitempty"`
}

func (r Reward) Validate() error {
	switch r.Kind {
	case REWARD_GOLD, REWARD_GEMS, REWARD_XP:
		if r.Amount <= 0 {
			return fmt.Errorf("reward %s: amount must be positive", r.Kind)
		}
	case REWARD_CARD:
		if r.CardID == "" {
			return fmt.Errorf("reward card: missing card_id")
		}
	case REWARD_PACK:
		if r.PackID == "" {
			return fmt.Errorf("reward pack: missing pack_id")
		}
	case REWARD_TITLE:
		if r.Title == "" {
			return fmt.Errorf("reward title: missing title")
		}
	case REWARD_AVATAR:
		if r.Avatar == "" {
			return fmt.Errorf("reward avatar: missing avatar")
		}
	default:
		return fmt.Errorf("unknown reward kind %q", r.Kind)
	}

	return nil
}
