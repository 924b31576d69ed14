package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	SEASON_DRAFT  = "draft"
	SEASON_ACTIVE = "active"
	SEASON_ENDED  = "ended"

	TRACK_FREE    = "free"
	TRACK_PREMIUM = "premium"
)

type BattlePassSeason struct {
	bun.BaseModel   `bun:"table:battle_pass_season"`
	ID              string     `bun:"id,pk" json:"id"`
	Name            string     `bun:"name" json:"name"`
	XPPerTier       int64      `bun:"xp_per_tier" json:"xp_per_tier"`
	TotalTiers      int        `bun:"total_tiers" json:"total_tiers"`
	PriceGems       *int64     `bun:"price_gems" json:"price_gems"`
	PriceNano       *int64     `bun:"price_nano" json:"price_nano"`
	TreasuryWallet  string     `bun:"treasury_wallet" json:"-"`
	Status          string     `bun:"status" json:"status"`
	StartTime       *time.Time `bun:"start_time" json:"start_time"`
	EndTime         *time.Time `bun:"end_time" json:"end_time"`
	CreatedAt       time.Time  `bun:"created_at,default:current_timestamp" json:"created_at"`
}

// TierReward is one claimable slot on a season's reward grid.
type TierReward struct {
	bun.BaseModel `bun:"table:tier_reward"`
	ID            int64  `bun:"id,pk,autoincrement" json:"id"`
	SeasonID      string `bun:"season_id" json:"season_id"`
	Tier          int    `bun:"tier" json:"tier"`
	Track         string `bun:"track" json:"track"`
	Reward        Reward `bun:"reward,type:jsonb" json:"reward"`
}

type BattlePassProgress struct {
	bun.BaseModel       `bun:"table:battle_pass_progress"`
	ID                  int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID              int64     `bun:"user_id" json:"user_id"`
	SeasonID            string    `bun:"season_id" json:"season_id"`
	CurrentXP           int64     `bun:"current_xp" json:"current_xp"`
	CurrentTier         int       `bun:"current_tier" json:"current_tier"`
	IsPremium           bool      `bun:"is_premium" json:"is_premium"`
	ClaimedFreeTiers    []int     `bun:"claimed_free_tiers,array" json:"claimed_free_tiers"`
	ClaimedPremiumTiers []int     `bun:"claimed_premium_tiers,array" json:"claimed_premium_tiers"`
	CreatedAt           time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt           time.Time `bun:"updated_at" json:"updated_at"`
}

// TierForXP derives the tier from accumulated XP. The stored current_tier is
// always recomputed from current_xp with this; it is never an independent
// source of truth.
func TierForXP(xp, xpPerTier int64, totalTiers int) int {
	if xpPerTier <= 0 {
		return 0
	}
	tier := int(xp / xpPerTier)
	if tier > totalTiers {
		return totalTiers
	}
	if tier < 0 {
		return 0
	}

	return tier
}

func (p *BattlePassProgress) Claimed(tier int, track string) bool {
	claimed := p.ClaimedFreeTiers
	if track == TRACK_PREMIUM {
		claimed = p.ClaimedPremiumTiers
	}
	for _, t := range claimed {
		if t == tier {
			return true
		}
	}

	return false
}
