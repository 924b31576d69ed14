package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"math/rand"
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

type ServiceProgress struct {
	container          *do.Injector
	redisDB            redis.UniversalClient
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	rs                 *redsync.Redsync
	readonlyCache      caching.ReadOnlyCache

	serviceLedger *ServiceLedger
	serviceConfig *ServiceConfig
	bot           *Bot
}

func NewServiceProgress(container *do.Injector) (*ServiceProgress, error) {
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

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	bot, err := do.Invoke[*Bot](container)
	if err != nil {
		return nil, err
	}

	return &ServiceProgress{container, db, postgresDB, readonlyPostgresDB, cache, rs, readonlyCache, serviceLedger, serviceConfig, bot}, nil
}

// SelectQuests deterministically picks n quests from the pool for one user
// and period. The shuffle is seeded from (userID, periodKey), so re-running
// generation for the same period always yields the same assignment — safe
// under duplicate scheduling.
func SelectQuests(pool []models.ProgressDefinition, userID int64, periodKey string, n int) []models.ProgressDefinition {
	if n >= len(pool) {
		return pool
	}

	h := fnv.New64a()
	fmt.Fprintf(h, "%d:%s", userID, periodKey)
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	picked := make([]models.ProgressDefinition, len(pool))
	copy(picked, pool)
	rng.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})

	return picked[:n]
}

func (service *ServiceProgress) QuestPool(ctx context.Context, period string) ([]models.ProgressDefinition, error) {
	callback := func() ([]models.ProgressDefinition, error) {
		return datastore.GetQuestPool(ctx, service.readonlyPostgresDB, period)
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyQuestPool(period), CACHE_TTL_15_MINS, callback)
}

// GenerateQuests assigns this period's quests to a user. Inserts are
// ON CONFLICT DO NOTHING keyed by (user, definition, period), so both a
// retried cron run and a duplicate-delivered task are no-ops.
func (service *ServiceProgress) GenerateQuests(ctx context.Context, userID int64, period string, now time.Time) error {
	pool, err := service.QuestPool(ctx, period)
	if err != nil {
		return err
	}
	if len(pool) == 0 {
		return nil
	}

	count := DAILY_QUEST_DEFAULT_COUNT
	configKey := CONFIG_DAILY_QUEST_COUNT
	if period == models.PERIOD_WEEKLY {
		count = WEEKLY_QUEST_DEFAULT_COUNT
		configKey = CONFIG_WEEKLY_QUEST_COUNT
	}
	count, _ = service.serviceConfig.GetIntConfig(ctx, configKey, count)

	periodKey := PeriodKey(period, now)
	expiresAt := periodEnd(period, now)

	for _, definition := range SelectQuests(pool, userID, periodKey, count) {
		row := &models.UserProgress{
			UserID:       userID,
			DefinitionID: definition.ID,
			PeriodKey:    periodKey,
			Status:       models.PROGRESS_ACTIVE,
			ExpiresAt:    &expiresAt,
			UpdatedAt:    now,
		}
		if err := datastore.InsertUserProgress(ctx, service.postgresDB, row); err != nil {
			return err
		}
	}

	return service.cache.Delete(ctx, DBKeyUserQuests(userID))
}

// MatchEvent feeds one gameplay event into every matching active definition.
// It runs inside the worker's progression handler group; the caller owns the
// transaction, so an event's receipt and its increments commit together.
func (service *ServiceProgress) MatchEvent(ctx context.Context, db bun.IDB, event *models.DomainEvent) error {
	if err := event.Validate(); err != nil {
		return errorx.Wrap(err, errorx.Validation)
	}

	definitions, err := datastore.GetActiveDefinitionsByKind(ctx, service.readonlyPostgresDB, event.Kind)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	now := time.Now()
	for i := range definitions {
		definition := definitions[i]
		if !definition.Matches(event) {
			continue
		}

		switch definition.Category {
		case models.DEFINITION_QUEST:
			err = service.advanceQuest(ctx, db, event, &definition, now)
		case models.DEFINITION_ACHIEVEMENT:
			err = service.advanceAchievement(ctx, db, event, &definition, now)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func (service *ServiceProgress) advanceQuest(ctx context.Context, db bun.IDB, event *models.DomainEvent, definition *models.ProgressDefinition, now time.Time) error {
	periodKey := PeriodKey(definition.Period, now)
	row, err := datastore.GetUserProgress(ctx, db, event.UserID, definition.ID, periodKey)
	if err == sql.ErrNoRows {
		// quest not assigned to this user this period
		return nil
	}
	if err != nil {
		return err
	}
	if row.Status != models.PROGRESS_ACTIVE {
		return nil
	}

	updated, err := datastore.IncrementProgress(ctx, db, row.ID, event.Value, definition.Target)
	if err == sql.ErrNoRows {
		// row left the active state between read and write
		return nil
	}
	if err != nil {
		return err
	}

	if updated.CurrentProgress >= definition.Target {
		// completion only flips the status; the reward waits for an
		// explicit claim
		if _, err := datastore.MarkCompleted(ctx, db, row.ID, now); err != nil {
			return err
		}
	}

	return service.cache.Delete(ctx, DBKeyUserQuests(event.UserID))
}

func (service *ServiceProgress) advanceAchievement(ctx context.Context, db bun.IDB, event *models.DomainEvent, definition *models.ProgressDefinition, now time.Time) error {
	row, err := datastore.GetUserProgress(ctx, db, event.UserID, definition.ID, PeriodKey(models.PERIOD_PERMANENT, now))
	if err == sql.ErrNoRows {
		row = &models.UserProgress{
			UserID:       event.UserID,
			DefinitionID: definition.ID,
			PeriodKey:    PeriodKey(models.PERIOD_PERMANENT, now),
			Status:       models.ACHIEVEMENT_LOCKED,
			UpdatedAt:    now,
		}
		if err := datastore.InsertUserProgress(ctx, db, row); err != nil {
			return err
		}
		row, err = datastore.GetUserProgress(ctx, db, event.UserID, definition.ID, PeriodKey(models.PERIOD_PERMANENT, now))
		if err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if row.Status == models.ACHIEVEMENT_UNLOCKED {
		// frozen once unlocked; later events are ignored
		return nil
	}

	unlocked := false
	updated, err := datastore.IncrementProgress(ctx, db, row.ID, event.Value, definition.Target)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	if updated.CurrentProgress >= definition.Target {
		// the conditional flip decides which of two racing events pays out
		flipped, err := datastore.MarkUnlocked(ctx, db, row.ID, now)
		if err != nil {
			return err
		}

		if flipped {
			unlocked = true
			referenceID := fmt.Sprintf("achievement:%d:%s", event.UserID, definition.ID)
			err = service.serviceLedger.ApplyReward(ctx, db, event.UserID, definition.Reward, referenceID, map[string]interface{}{
				"definition_id": definition.ID,
				"event_kind":    string(event.Kind),
			})
			if err != nil {
				return err
			}
		}
	}

	if unlocked {
		_ = service.cache.Delete(ctx, DBKeyUserAchievements(event.UserID))
		_ = service.cache.Delete(ctx, DBKeyUser(event.UserID))
		go func(userID int64, name string) {
			if err := service.bot.SendAchievementMsg(userID, name); err != nil {
				log.Println("achievement notification:", err)
			}
		}(event.UserID, definition.Name)
	}

	return nil
}

// ClaimQuestReward is the second phase of a quest: the row must be completed
// and not yet claimed; exactly one concurrent caller gets the grant.
func (service *ServiceProgress) ClaimQuestReward(ctx context.Context, user *models.User, progressID int64) (*models.UserProgress, error) {
	mutex := service.rs.NewMutex(LockKeyClaimQuest(user.ID))
	if err := mutex.Lock(); err != nil {
		return nil, errorx.Wrap(ErrClaimLock, errorx.Invalid)
	}
	// nolint:errcheck
	defer mutex.Unlock()

	row, err := datastore.GetUserProgressByID(ctx, service.postgresDB, progressID)
	if err == sql.ErrNoRows {
		return nil, errorx.Wrap(errors.New("quest not found"), errorx.NotExist)
	}
	if err != nil {
		return nil, err
	}
	if row.UserID != user.ID {
		return nil, errorx.Wrap(ErrNotOwner, errorx.Authn)
	}

	definition, err := datastore.GetProgressDefinition(ctx, service.postgresDB, row.DefinitionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		claimed, err := datastore.MarkClaimed(ctx, tx, row.ID, now)
		if err != nil {
			return err
		}
		if !claimed {
			if row.Status == models.PROGRESS_CLAIMED {
				return errorx.Wrap(ErrAlreadyClaimed, errorx.Invalid)
			}
			return errorx.Wrap(ErrQuestNotCompleted, errorx.Invalid)
		}

		referenceID := fmt.Sprintf("quest:%d", row.ID)
		return service.serviceLedger.ApplyReward(ctx, tx, user.ID, definition.Reward, referenceID, map[string]interface{}{
			"definition_id": definition.ID,
			"period_key":    row.PeriodKey,
		})
	})
	if err != nil {
		return nil, err
	}

	row.Status = models.PROGRESS_CLAIMED
	row.ClaimedAt = &now

	_ = service.cache.Delete(ctx, DBKeyUserQuests(user.ID))
	_ = service.cache.Delete(ctx, DBKeyUser(user.ID))

	return row, nil
}

func (service *ServiceProgress) GetUserQuests(ctx context.Context, userID int64, now time.Time) ([]models.UserProgress, error) {
	callback := func() ([]models.UserProgress, error) {
		periodKeys := []string{
			PeriodKey(models.PERIOD_DAILY, now),
			PeriodKey(models.PERIOD_WEEKLY, now),
		}
		rows, err := datastore.ListUserProgress(ctx, service.readonlyPostgresDB, userID, periodKeys)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return rows, err
	}

	rows, err := caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyUserQuests(userID), CACHE_TTL_1_MIN, callback)
	if err != nil {
		return nil, err
	}

	return service.attachDefinitions(ctx, rows, false)
}

// mergeLockedAchievements appends a zero-progress locked row for every
// active achievement the user has never touched, so the listing is complete
// without eagerly inserting rows for every user.
func mergeLockedAchievements(rows []models.UserProgress, definitions []models.ProgressDefinition, userID int64) []models.UserProgress {
	seen := make(map[string]bool, len(rows))
	for i := range rows {
		seen[rows[i].DefinitionID] = true
	}

	for i := range definitions {
		if seen[definitions[i].ID] {
			continue
		}
		rows = append(rows, models.UserProgress{
			UserID:       userID,
			DefinitionID: definitions[i].ID,
			PeriodKey:    "permanent",
			Status:       models.ACHIEVEMENT_LOCKED,
		})
	}

	return rows
}

func (service *ServiceProgress) GetUserAchievements(ctx context.Context, userID int64) ([]models.UserProgress, error) {
	callback := func() ([]models.UserProgress, error) {
		rows, err := datastore.ListUserProgress(ctx, service.readonlyPostgresDB, userID, []string{"permanent"})
		if err != nil && err != sql.ErrNoRows {
			return nil, err
		}

		definitions, err := datastore.GetActiveAchievements(ctx, service.readonlyPostgresDB)
		if err != nil && err != sql.ErrNoRows {
			return nil, err
		}

		return mergeLockedAchievements(rows, definitions, userID), nil
	}

	rows, err := caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyUserAchievements(userID), CACHE_TTL_1_MIN, callback)
	if err != nil {
		return nil, err
	}

	return service.attachDefinitions(ctx, rows, true)
}

func (service *ServiceProgress) attachDefinitions(ctx context.Context, rows []models.UserProgress, hideSecret bool) ([]models.UserProgress, error) {
	out := rows[:0]
	for i := range rows {
		definition, err := datastore.GetProgressDefinition(ctx, service.readonlyPostgresDB, rows[i].DefinitionID)
		if err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			return nil, err
		}
		if hideSecret && definition.Secret && rows[i].Status == models.ACHIEVEMENT_LOCKED {
			continue
		}
		rows[i].Definition = definition
		out = append(out, rows[i])
	}

	return out, nil
}

// SweepExpired removes expired unclaimed quest rows; claimed rows are kept
// for audit.
func (service *ServiceProgress) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	return datastore.DeleteExpiredUnclaimed(ctx, service.postgresDB, now)
}

func periodEnd(period string, now time.Time) time.Time {
	day := now.UTC().Truncate(24 * time.Hour)
	switch period {
	case models.PERIOD_WEEKLY:
		weekday := int(day.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		return day.AddDate(0, 0, 8-weekday)
	default:
		return day.AddDate(0, 0, 1)
	}
}
