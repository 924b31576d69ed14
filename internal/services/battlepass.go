package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"

	"arcana/internal/datastore"
	"arcana/internal/models"
	"arcana/internal/pkg/caching"
)

type ServiceBattlePass struct {
	container          *do.Injector
	redisDB            redis.UniversalClient
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	rs                 *redsync.Redsync
	readonlyCache      caching.ReadOnlyCache

	serviceLedger *ServiceLedger
	bot           *Bot
}

func NewServiceBattlePass(container *do.Injector) (*ServiceBattlePass, error) {
	db, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
	if err != nil {
		return nil, err
	}

	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	rs, err := do.Invoke[*redsync.Redsync](container)
	if err != nil {
		return nil, err
	}

	readonlyCache, err := do.Invoke[caching.ReadOnlyCache](container)
	if err != nil {
		return nil, err
	}

	serviceLedger, err := do.Invoke[*ServiceLedger](container)
	if err != nil {
		return nil, err
	}

	bot, err := do.Invoke[*Bot](container)
	if err != nil {
		return nil, err
	}

	return &ServiceBattlePass{container, db, postgresDB, readonlyPostgresDB, cache, rs, readonlyCache, serviceLedger, bot}, nil
}

// ActiveSeason returns nil without error when no season is running; worker
// paths use it to skip season-bound work quietly.
func (service *ServiceBattlePass) ActiveSeason(ctx context.Context) (*models.BattlePassSeason, error) {
	callback := func() (*models.BattlePassSeason, error) {
		season, err := datastore.GetActiveSeason(ctx, service.readonlyPostgresDB, time.Now())
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return season, err
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyActiveSeason(), CACHE_TTL_5_MINS, callback)
}

func (service *ServiceBattlePass) GetActiveSeason(ctx context.Context) (*models.BattlePassSeason, error) {
	season, err := service.ActiveSeason(ctx)
	if err != nil {
		return nil, err
	}
	if season == nil {
		return nil, errorx.Wrap(errors.New("no active season"), errorx.NotExist)
	}

	return season, nil
}

func (service *ServiceBattlePass) GetSeason(ctx context.Context, seasonID string) (*models.BattlePassSeason, error) {
	callback := func() (*models.BattlePassSeason, error) {
		return datastore.GetSeason(ctx, service.readonlyPostgresDB, seasonID)
	}

	season, err := caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeySeason(seasonID), CACHE_TTL_5_MINS, callback)
	if err == sql.ErrNoRows {
		return nil, errorx.Wrap(errors.New("season not found"), errorx.NotExist)
	}

	return season, err
}

func (service *ServiceBattlePass) GetTierRewards(ctx context.Context, seasonID string) ([]models.TierReward, error) {
	callback := func() ([]models.TierReward, error) {
		return datastore.ListTierRewards(ctx, service.readonlyPostgresDB, seasonID)
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyTierRewards(seasonID), CACHE_TTL_15_MINS, callback)
}

// GetOrCreateProgress lazily creates the per-user season row on first touch.
func (service *ServiceBattlePass) GetOrCreateProgress(ctx context.Context, userID int64, seasonID string) (*models.BattlePassProgress, error) {
	progress, err := datastore.GetBattlePassProgress(ctx, service.postgresDB, userID, seasonID)
	if err == nil {
		return progress, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	row := &models.BattlePassProgress{
		UserID:              userID,
		SeasonID:            seasonID,
		ClaimedFreeTiers:    []int{},
		ClaimedPremiumTiers: []int{},
		UpdatedAt:           time.Now(),
	}
	if err := datastore.InsertBattlePassProgress(ctx, service.postgresDB, row); err != nil {
		return nil, err
	}

	return datastore.GetBattlePassProgress(ctx, service.postgresDB, userID, seasonID)
}

// tiersCrossed derives how many tier boundaries a delta crossed from the
// post-update XP alone, so concurrent writers cannot skew each other's count.
func tiersCrossed(newXP, delta, xpPerTier int64, totalTiers int) int {
	return models.TierForXP(newXP, xpPerTier, totalTiers) - models.TierForXP(newXP-delta, xpPerTier, totalTiers)
}

// AddXP accumulates season XP and rederives the tier. Returns the updated
// row and how many tiers the delta crossed (can exceed 1). The caller
// provides the write handle so the update can ride an enclosing transaction.
func (service *ServiceBattlePass) AddXP(ctx context.Context, db bun.IDB, userID int64, seasonID string, delta int64) (*models.BattlePassProgress, int, error) {
	if delta <= 0 {
		return nil, 0, errorx.Wrap(errors.New("xp delta must be positive"), errorx.Validation)
	}

	season, err := service.GetSeason(ctx, seasonID)
	if err != nil {
		return nil, 0, err
	}

	progress, err := service.GetOrCreateProgress(ctx, userID, seasonID)
	if err != nil {
		return nil, 0, err
	}

	updated, err := datastore.AddSeasonXP(ctx, db, progress.ID, delta, season.XPPerTier, season.TotalTiers)
	if err != nil {
		return nil, 0, err
	}

	service.invalidateProgress(ctx, userID, seasonID)

	tiersGained := tiersCrossed(updated.CurrentXP, delta, season.XPPerTier, season.TotalTiers)
	if tiersGained > 0 {
		go func(userID int64, tier, gained int) {
			if err := service.bot.SendTierUpMsg(userID, tier, gained); err != nil {
				log.Println("tier-up notification:", err)
			}
		}(userID, updated.CurrentTier, tiersGained)
	}

	return updated, tiersGained, nil
}

func (service *ServiceBattlePass) GetProgress(ctx context.Context, userID int64, seasonID string) (*models.BattlePassProgress, error) {
	callback := func() (*models.BattlePassProgress, error) {
		progress, err := datastore.GetBattlePassProgress(ctx, service.readonlyPostgresDB, userID, seasonID)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return progress, err
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyBattlePassProgress(userID, seasonID), CACHE_TTL_1_MIN, callback)
}

// ClaimTierReward grants one tier/track slot exactly once.
func (service *ServiceBattlePass) ClaimTierReward(ctx context.Context, user *models.User, seasonID string, tier int, track string) error {
	mutex := service.rs.NewMutex(LockKeyClaimTier(user.ID, seasonID))
	if err := mutex.Lock(); err != nil {
		return errorx.Wrap(ErrClaimLock, errorx.Invalid)
	}
	// nolint:errcheck
	defer mutex.Unlock()

	err := service.claimOne(ctx, user.ID, seasonID, tier, track)
	if err != nil {
		return err
	}

	service.invalidateProgress(ctx, user.ID, seasonID)

	return nil
}

func (service *ServiceBattlePass) invalidateProgress(ctx context.Context, userID int64, seasonID string) {
	_ = service.cache.Delete(ctx, DBKeyBattlePassProgress(userID, seasonID))
	_ = service.cache.Delete(ctx, DBKeyUser(userID))
}

// ClaimAll walks every eligible unclaimed slot through the same single-claim
// path; already-claimed slots are skipped rather than surfaced.
func (service *ServiceBattlePass) ClaimAll(ctx context.Context, user *models.User, seasonID string) (int, error) {
	mutex := service.rs.NewMutex(LockKeyClaimTier(user.ID, seasonID))
	if err := mutex.Lock(); err != nil {
		return 0, errorx.Wrap(ErrClaimLock, errorx.Invalid)
	}
	// nolint:errcheck
	defer mutex.Unlock()

	progress, err := service.GetOrCreateProgress(ctx, user.ID, seasonID)
	if err != nil {
		return 0, err
	}

	rewards, err := service.GetTierRewards(ctx, seasonID)
	if err != nil {
		return 0, err
	}

	claimed := 0
	for _, slot := range rewards {
		if slot.Tier > progress.CurrentTier {
			continue
		}
		if slot.Track == models.TRACK_PREMIUM && !progress.IsPremium {
			continue
		}
		if progress.Claimed(slot.Tier, slot.Track) {
			continue
		}

		err := service.claimOne(ctx, user.ID, seasonID, slot.Tier, slot.Track)
		if err != nil {
			if errors.Is(err, ErrAlreadyClaimed) {
				continue
			}
			return claimed, err
		}
		claimed++
	}

	if claimed > 0 {
		service.invalidateProgress(ctx, user.ID, seasonID)
	}

	return claimed, nil
}

func (service *ServiceBattlePass) claimOne(ctx context.Context, userID int64, seasonID string, tier int, track string) error {
	if track != models.TRACK_FREE && track != models.TRACK_PREMIUM {
		return errorx.Wrap(errors.New("unknown track"), errorx.Validation)
	}

	progress, err := service.GetOrCreateProgress(ctx, userID, seasonID)
	if err != nil {
		return err
	}

	if tier <= 0 || tier > progress.CurrentTier {
		return errorx.Wrap(ErrTierLocked, errorx.Invalid)
	}
	if track == models.TRACK_PREMIUM && !progress.IsPremium {
		return errorx.Wrap(errors.New("premium pass required"), errorx.Authn)
	}

	slot, err := datastore.GetTierReward(ctx, service.postgresDB, seasonID, tier, track)
	if err == sql.ErrNoRows {
		return errorx.Wrap(errors.New("no reward at this tier"), errorx.NotExist)
	}
	if err != nil {
		return err
	}

	return service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// the conditional append is the at-most-once guard; losing the race
		// means someone already claimed this slot
		appended, err := datastore.AppendClaimedTier(ctx, tx, progress.ID, tier, track)
		if err != nil {
			return err
		}
		if !appended {
			return errorx.Wrap(ErrAlreadyClaimed, errorx.Invalid)
		}

		referenceID := fmt.Sprintf("tier:%d:%s:%s:%d", userID, seasonID, track, tier)
		return service.serviceLedger.ApplyReward(ctx, tx, userID, slot.Reward, referenceID, map[string]interface{}{
			"season_id": seasonID,
			"tier":      tier,
			"track":     track,
		})
	})
}

// PurchasePremiumWithGems debits gems and flips the premium flag in one
// transaction. The token-paid path lives in ServicePurchase.
func (service *ServiceBattlePass) PurchasePremiumWithGems(ctx context.Context, user *models.User, seasonID string) error {
	mutex := service.rs.NewMutex(LockKeyPurchase(user.ID, seasonID))
	if err := mutex.Lock(); err != nil {
		return errorx.Wrap(ErrPurchaseLock, errorx.Invalid)
	}
	// nolint:errcheck
	defer mutex.Unlock()

	season, err := service.GetSeason(ctx, seasonID)
	if err != nil {
		return err
	}
	if season.PriceGems == nil {
		return errorx.Wrap(errors.New("season has no gem price"), errorx.Invalid)
	}

	progress, err := service.GetOrCreateProgress(ctx, user.ID, seasonID)
	if err != nil {
		return err
	}
	if progress.IsPremium {
		return errorx.Wrap(ErrAlreadyPremium, errorx.Invalid)
	}

	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		debited, err := datastore.DebitGems(ctx, tx, user.ID, *season.PriceGems)
		if err != nil {
			return err
		}
		if !debited {
			return errorx.Wrap(errors.New("insufficient gems"), errorx.Invalid)
		}

		flipped, err := datastore.SetPremium(ctx, tx, progress.ID)
		if err != nil {
			return err
		}
		if !flipped {
			return errorx.Wrap(ErrAlreadyPremium, errorx.Invalid)
		}

		return datastore.InsertLedgerEntry(ctx, tx, &models.LedgerEntry{
			UserID:      user.ID,
			Kind:        models.REWARD_GEMS,
			Amount:      -*season.PriceGems,
			ReferenceID: fmt.Sprintf("premium:%d:%s", user.ID, seasonID),
			Metadata:    map[string]interface{}{"season_id": seasonID, "method": "gems"},
		})
	})
	if err != nil {
		return err
	}

	service.invalidateProgress(ctx, user.ID, seasonID)

	return nil
}
