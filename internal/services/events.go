package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"

	"arcana/internal/datastore"
	"arcana/internal/datastore/redis_store"
	"arcana/internal/interfaces"
	"arcana/internal/models"
)

// ServiceEvents routes gameplay outcomes into the reward pipeline. Dispatch
// only enqueues; the handler groups run on the worker after the triggering
// transaction has committed, so callers never observe reward effects
// synchronously.
type ServiceEvents struct {
	container  *do.Injector
	redisDB    redis.UniversalClient
	postgresDB *bun.DB

	scheduler interfaces.TaskScheduler

	serviceProgress   *ServiceProgress
	serviceBattlePass *ServiceBattlePass
	serviceLedger     *ServiceLedger
}

func NewServiceEvents(container *do.Injector) (*ServiceEvents, error) {
	redisDB, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
	if err != nil {
		return nil, err
	}

	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	scheduler, err := do.Invoke[interfaces.TaskScheduler](container)
	if err != nil {
		return nil, err
	}

	serviceProgress, err := do.Invoke[*ServiceProgress](container)
	if err != nil {
		return nil, err
	}

	serviceBattlePass, err := do.Invoke[*ServiceBattlePass](container)
	if err != nil {
		return nil, err
	}

	serviceLedger, err := do.Invoke[*ServiceLedger](container)
	if err != nil {
		return nil, err
	}

	return &ServiceEvents{container, redisDB, postgresDB, scheduler, serviceProgress, serviceBattlePass, serviceLedger}, nil
}

// Dispatch enqueues the event for the worker. Unknown kinds are dropped with
// a warning instead of failing the producer. Every event gets a unique id
// here; the worker's per-group receipts key off it.
func (service *ServiceEvents) Dispatch(ctx context.Context, event *models.DomainEvent) error {
	if !models.KnownEventKind(event.Kind) {
		log.Printf("dropping event with unknown kind %q (user %d)", event.Kind, event.UserID)
		return nil
	}

	if err := event.Validate(); err != nil {
		return errorx.Wrap(err, errorx.Validation)
	}

	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}

	return service.scheduler.Schedule(ctx, TASK_EVENT_DISPATCH, event, 0)
}

// HandleDispatch is the worker-side consumer. Handler groups run in a fixed
// order (progression, economy, stats) so none observes a half-updated user
// document from another group in the same dispatch. Each group runs at most
// once per event, so a redelivered task only re-runs the groups that failed.
func (service *ServiceEvents) HandleDispatch(ctx context.Context, event *models.DomainEvent) error {
	if !models.KnownEventKind(event.Kind) {
		log.Printf("dropping event with unknown kind %q (user %d)", event.Kind, event.UserID)
		return nil
	}
	if event.EventID == "" {
		log.Printf("dropping %s event without id (user %d)", event.Kind, event.UserID)
		return nil
	}

	if err := service.handleProgression(ctx, event); err != nil {
		return err
	}
	if err := service.handleEconomy(ctx, event); err != nil {
		return err
	}

	return service.handleStats(ctx, event)
}

// runOnce claims the (event, group) receipt and executes the group's writes
// in the same transaction, so redelivery after a partial dispatch cannot
// apply a group twice.
func (service *ServiceEvents) runOnce(ctx context.Context, event *models.DomainEvent, group string, fn func(ctx context.Context, tx bun.Tx) error) error {
	return service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		claimed, err := datastore.ClaimEventReceipt(ctx, tx, event.EventID, group)
		if err != nil {
			return err
		}
		if !claimed {
			return nil
		}

		return fn(ctx, tx)
	})
}

func (service *ServiceEvents) handleProgression(ctx context.Context, event *models.DomainEvent) error {
	return service.runOnce(ctx, event, "progression", func(ctx context.Context, tx bun.Tx) error {
		if err := service.serviceProgress.MatchEvent(ctx, tx, event); err != nil {
			return err
		}

		if event.XP <= 0 {
			return nil
		}

		season, err := service.serviceBattlePass.ActiveSeason(ctx)
		if err != nil {
			return err
		}
		if season == nil {
			return nil
		}

		_, _, err = service.serviceBattlePass.AddXP(ctx, tx, event.UserID, season.ID, event.XP)
		return err
	})
}

// handleEconomy settles wager payouts. The (match, user) ledger reference
// dedupes across distinct events reporting the same match on top of the
// per-event receipt.
func (service *ServiceEvents) handleEconomy(ctx context.Context, event *models.DomainEvent) error {
	if event.Kind != models.EVENT_WAGER_WON || event.Value <= 0 {
		return nil
	}
	if event.MatchID == "" {
		log.Printf("wager event without match id (user %d), skipping payout", event.UserID)
		return nil
	}

	referenceID := fmt.Sprintf("wager:%s:%d", event.MatchID, event.UserID)

	return service.runOnce(ctx, event, "economy", func(ctx context.Context, tx bun.Tx) error {
		exists, err := datastore.LedgerEntryExists(ctx, tx, referenceID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		reward := models.Reward{Kind: models.REWARD_GOLD, Amount: event.Value}
		return service.serviceLedger.ApplyReward(ctx, tx, event.UserID, reward, referenceID, map[string]interface{}{
			"match_id":   event.MatchID,
			"wager_nano": event.WagerNano,
		})
	})
}

func (service *ServiceEvents) handleStats(ctx context.Context, event *models.DomainEvent) error {
	if event.XP <= 0 {
		return nil
	}

	season, err := service.serviceBattlePass.ActiveSeason(ctx)
	if err != nil {
		return err
	}
	if season == nil {
		return nil
	}

	// the zset write rides inside the receipt's transaction: an increment
	// that fails rolls the receipt back, so the retry gets another go
	return service.runOnce(ctx, event, "stats", func(ctx context.Context, tx bun.Tx) error {
		return redis_store.AddLeaderboardXP(ctx, service.redisDB, season.ID, event.UserID, event.XP)
	})
}
