package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrAlreadyClaimed = errors.New("reward already claimed")
var ErrAlreadyPremium = errors.New("premium pass already active")
var ErrPurchaseActive = errors.New("another purchase is in flight")
var ErrTierLocked = errors.New("tier not reached yet")
var ErrQuestNotCompleted = errors.New("quest not completed")
var ErrClaimLock = errors.New("claim locked")
var ErrPurchaseLock = errors.New("purchase locked")
var ErrNotOwner = errors.New("not the owner")

const (
	CONFIG_DAILY_QUEST_COUNT    = "DAILY_QUEST_COUNT"
	CONFIG_WEEKLY_QUEST_COUNT   = "WEEKLY_QUEST_COUNT"
	CONFIG_LEADERBOARD_LIMIT    = "LEADERBOARD_LIMIT"
	CONFIG_PURCHASE_TTL_SECONDS = "PURCHASE_TTL_SECONDS"

	DAILY_QUEST_DEFAULT_COUNT  = 3
	WEEKLY_QUEST_DEFAULT_COUNT = 3
	LEADERBOARD_DEFAULT_LIMIT  = 20

	// purchase confirmation workflow
	PURCHASE_TTL                  = 300 * time.Second
	PURCHASE_CONFIRMATION_TIMEOUT = 900 * time.Second
	PURCHASE_POLL_DELAY           = 5 * time.Second
	PURCHASE_RPC_RETRY_DELAY      = 15 * time.Second
	PURCHASE_MAX_NOT_FOUND_POLLS  = 60
	PURCHASE_MAX_RPC_RETRIES      = 5
	PURCHASE_MIN_CONFIRMATIONS    = 3
	PURCHASE_FIRST_POLL_DELAY     = 3 * time.Second
	PURCHASE_WATCHDOG_QUIET       = 60 * time.Second

	// deferred task operations
	TASK_PURCHASE_POLL  = "purchase.poll"
	TASK_EVENT_DISPATCH = "event.dispatch"

	PURCHASE_INITIATE_RATE_LIMIT_PER_MINUTE = 5
	CLAIM_RATE_LIMIT_PER_MINUTE             = 30

	CACHE_TTL_5_SECONDS  = 5 * time.Second
	CACHE_TTL_15_SECONDS = 15 * time.Second
	CACHE_TTL_1_MIN      = 1 * time.Minute
	CACHE_TTL_5_MINS     = 5 * time.Minute
	CACHE_TTL_15_MINS    = 15 * time.Minute
	CACHE_TTL_1_HOUR     = 1 * time.Hour
	CACHE_TTL_1_DAY      = 24 * time.Hour
)

func LockKeyClaimTier(userID int64, seasonID string) string {
	return fmt.Sprintf("lock:claim-tier:%d:%s", userID, seasonID)
}

func LockKeyClaimQuest(userID int64) string {
	return fmt.Sprintf("lock:claim-quest:%d", userID)
}

func LockKeyPurchase(userID int64, seasonID string) string {
	return fmt.Sprintf("lock:purchase:%d:%s", userID, seasonID)
}

func LockKeyPurchaseStep(purchaseID string) string {
	return fmt.Sprintf("lock:purchase-step:%s", purchaseID)
}

// db
func DBKeyUser(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

func DBKeyConfig(key string) string {
	return fmt.Sprintf("config:%s", strings.ToLower(key))
}

func DBKeySeason(seasonID string) string {
	return fmt.Sprintf("season:%s", strings.ToLower(seasonID))
}

func DBKeyActiveSeason() string {
	return "season:active"
}

func DBKeyTierRewards(seasonID string) string {
	return fmt.Sprintf("season:%s:tier_rewards", strings.ToLower(seasonID))
}

func DBKeyBattlePassProgress(userID int64, seasonID string) string {
	return fmt.Sprintf("battle_pass:%s:%d", strings.ToLower(seasonID), userID)
}

func DBKeyUserQuests(userID int64) string {
	return fmt.Sprintf("user:%d:quests", userID)
}

func DBKeyUserAchievements(userID int64) string {
	return fmt.Sprintf("user:%d:achievements", userID)
}

func DBKeyQuestPool(period string) string {
	return fmt.Sprintf("quest_pool:%s", period)
}

func DBKeyUserWallet(userID int64) string {
	return fmt.Sprintf("user_wallet:%d", userID)
}

func DBKeyUserCards(userID int64) string {
	return fmt.Sprintf("user:%d:cards", userID)
}

func DBKeyCards() string {
	return "cards:all"
}

func DBKeyLeaderboard(seasonID string, userID int64, limit int) string {
	return fmt.Sprintf("leaderboard_by_user:%s:%d:%d", strings.ToLower(seasonID), userID, limit)
}

func LimitKeyPurchaseInitiate(userID int64) string {
	return fmt.Sprintf("limit:purchase:%d", userID)
}

func LimitKeyClaim(userID int64) string {
	return fmt.Sprintf("limit:claim:%d", userID)
}

// PeriodKey pins a quest row to its generation window; achievements live
// outside any window.
func PeriodKey(period string, now time.Time) string {
	switch period {
	case "daily":
		return now.UTC().Format("2006-01-02")
	case "weekly":
		year, week := now.UTC().ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	default:
		return "permanent"
	}
}
