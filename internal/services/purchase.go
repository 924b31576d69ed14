package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/go-redsync/redsync/v4"
	"github.com/google/uuid"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"
	"github.com/tonkeeper/tongo"
	"github.com/uptrace/bun"

	"arcana/internal/datastore"
	"arcana/internal/interfaces"
	"arcana/internal/models"
)

// ServicePurchase runs the token-paid premium pass purchase as a chain of
// persisted steps: initiate -> submit -> poll... -> complete/fail. Each step
// re-reads the row and transitions it with a conditional update, so the
// workflow survives worker crashes and duplicate task delivery.
type ServicePurchase struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	rs                 *redsync.Redsync

	scheduler interfaces.TaskScheduler
	chain     interfaces.ChainClient
	limiter   interfaces.Limiter

	serviceBattlePass *ServiceBattlePass
	serviceConfig     *ServiceConfig
	bot               *Bot
}

func NewServicePurchase(container *do.Injector) (*ServicePurchase, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	rs, err := do.Invoke[*redsync.Redsync](container)
	if err != nil {
		return nil, err
	}

	scheduler, err := do.Invoke[interfaces.TaskScheduler](container)
	if err != nil {
		return nil, err
	}

	chain, err := do.Invoke[interfaces.ChainClient](container)
	if err != nil {
		return nil, err
	}

	limiter, err := do.Invoke[interfaces.Limiter](container)
	if err != nil {
		return nil, err
	}

	serviceBattlePass, err := do.Invoke[*ServiceBattlePass](container)
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

	return &ServicePurchase{container, postgresDB, readonlyPostgresDB, rs, scheduler, chain, limiter, serviceBattlePass, serviceConfig, bot}, nil
}

// Initiate builds an unsigned transfer for the season's token price and
// persists the intent. At most one non-terminal purchase per (buyer, season).
func (service *ServicePurchase) Initiate(ctx context.Context, user *models.User, seasonID string) (*models.UnsignedTransfer, *models.PendingPurchase, error) {
	err := service.limiter.Allow(ctx, LimitKeyPurchaseInitiate(user.ID), redis_rate.PerMinute(PURCHASE_INITIATE_RATE_LIMIT_PER_MINUTE))
	if err != nil {
		return nil, nil, errorx.Wrap(err, errorx.RateLimiting)
	}

	mutex := service.rs.NewMutex(LockKeyPurchase(user.ID, seasonID))
	if err := mutex.Lock(); err != nil {
		return nil, nil, errorx.Wrap(ErrPurchaseLock, errorx.Invalid)
	}
	// nolint:errcheck
	defer mutex.Unlock()

	season, err := service.serviceBattlePass.GetSeason(ctx, seasonID)
	if err != nil {
		return nil, nil, err
	}
	if season.PriceNano == nil {
		return nil, nil, errorx.Wrap(errors.New("season has no token price"), errorx.Invalid)
	}

	progress, err := service.serviceBattlePass.GetOrCreateProgress(ctx, user.ID, seasonID)
	if err != nil {
		return nil, nil, err
	}
	if progress.IsPremium {
		return nil, nil, errorx.Wrap(ErrAlreadyPremium, errorx.Invalid)
	}

	now := time.Now()

	active, err := datastore.GetActivePurchase(ctx, service.postgresDB, user.ID, seasonID)
	if err != nil && err != sql.ErrNoRows {
		return nil, nil, err
	}
	if err == nil {
		// a stale unsigned intent past its window is dead weight; expire it
		// and let the new intent through
		if active.Status == models.PURCHASE_AWAITING_SIGNATURE && now.After(active.ExpiresAt) {
			_, err := datastore.FailPurchase(ctx, service.postgresDB, active.ID, models.PURCHASE_EXPIRED, "signing window expired")
			if err != nil {
				return nil, nil, err
			}
		} else {
			return nil, nil, errorx.Wrap(ErrPurchaseActive, errorx.Invalid)
		}
	}

	wallet, err := datastore.GetUserWallet(ctx, service.postgresDB, user.ID)
	if err == sql.ErrNoRows || (err == nil && wallet.TONWallet == nil) {
		return nil, nil, errorx.Wrap(errors.New("wallet not connected"), errorx.Invalid)
	}
	if err != nil {
		return nil, nil, err
	}

	treasury, err := tongo.ParseAddress(season.TreasuryWallet)
	if err != nil {
		return nil, nil, errorx.Wrap(fmt.Errorf("season treasury misconfigured: %w", err), errorx.Service)
	}

	ttlSeconds, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_PURCHASE_TTL_SECONDS, int(PURCHASE_TTL.Seconds()))

	purchase := &models.PendingPurchase{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		SeasonID:       seasonID,
		AmountNano:     *season.PriceNano,
		BuyerWallet:    *wallet.TONWallet,
		TreasuryWallet: treasury.ID.String(),
		Status:         models.PURCHASE_AWAITING_SIGNATURE,
		CreatedAt:      now,
		ExpiresAt:      now.Add(time.Duration(ttlSeconds) * time.Second),
		UpdatedAt:      now,
	}
	if err := datastore.InsertPendingPurchase(ctx, service.postgresDB, purchase); err != nil {
		return nil, nil, err
	}

	transfer := &models.UnsignedTransfer{
		PurchaseID: purchase.ID,
		To:         purchase.TreasuryWallet,
		AmountNano: purchase.AmountNano,
		Comment:    fmt.Sprintf("arcana:premium:%s", purchase.ID),
		ValidUntil: purchase.ExpiresAt,
	}

	return transfer, purchase, nil
}

// Submit records the wallet signature and starts the poll chain. Valid only
// while the signing window is open.
func (service *ServicePurchase) Submit(ctx context.Context, user *models.User, purchaseID, signature string) (*models.PendingPurchase, error) {
	if signature == "" {
		return nil, errorx.Wrap(errors.New("missing signature"), errorx.Validation)
	}

	purchase, err := service.getOwned(ctx, user, purchaseID)
	if err != nil {
		return nil, err
	}

	if purchase.Status != models.PURCHASE_AWAITING_SIGNATURE {
		return nil, errorx.Wrap(errors.New("purchase is not awaiting a signature"), errorx.Invalid)
	}

	if time.Now().After(purchase.ExpiresAt) {
		_, err := datastore.FailPurchase(ctx, service.postgresDB, purchase.ID, models.PURCHASE_EXPIRED, "signing window expired")
		if err != nil {
			return nil, err
		}
		return nil, errorx.Wrap(errors.New("signing window expired"), errorx.Invalid)
	}

	moved, err := datastore.TransitionPurchase(ctx, service.postgresDB, purchase.ID,
		models.PURCHASE_AWAITING_SIGNATURE, models.PURCHASE_SUBMITTED,
		func(q *bun.UpdateQuery) *bun.UpdateQuery {
			return q.Set("signature = ?", signature)
		})
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, errorx.Wrap(errors.New("purchase is not awaiting a signature"), errorx.Invalid)
	}

	err = service.scheduler.Schedule(ctx, TASK_PURCHASE_POLL, PollPayload{PurchaseID: purchase.ID, Attempt: 1}, PURCHASE_FIRST_POLL_DELAY)
	if err != nil {
		// the row is already submitted; the cron watchdog will restart the
		// poll chain if this schedule was lost
		log.Println("schedule first poll:", err)
	}

	return datastore.GetPendingPurchase(ctx, service.postgresDB, purchase.ID)
}

// Poll is the worker-side confirmation step. It is a no-op unless the row is
// still submitted, so duplicate deliveries and polls racing a terminal
// transition are harmless.
func (service *ServicePurchase) Poll(ctx context.Context, payload PollPayload) error {
	purchase, err := datastore.GetPendingPurchase(ctx, service.postgresDB, payload.PurchaseID)
	if err == sql.ErrNoRows {
		log.Println("poll: purchase not found:", payload.PurchaseID)
		return nil
	}
	if err != nil {
		return err
	}

	if purchase.Status != models.PURCHASE_SUBMITTED {
		return nil
	}
	if purchase.Signature == nil {
		return service.Fail(ctx, purchase.ID, "submitted without signature")
	}

	status, rpcErr := service.chain.GetSignatureStatus(ctx, *purchase.Signature)
	decision := decidePollOutcome(time.Now(), purchase.CreatedAt, payload.Attempt, payload.RPCRetries, status, rpcErr)

	switch decision.Action {
	case pollComplete:
		return service.Complete(ctx, purchase.ID)
	case pollFail:
		return service.Fail(ctx, purchase.ID, decision.FailReason)
	default:
		next := PollPayload{
			PurchaseID: purchase.ID,
			Attempt:    payload.Attempt + 1,
			RPCRetries: decision.NextRPCRetries,
		}
		return service.scheduler.Schedule(ctx, TASK_PURCHASE_POLL, next, decision.Delay)
	}
}

// Complete confirms the purchase and grants premium. Safe to invoke more
// than once: the submitted->confirmed transition picks exactly one winner,
// and the premium flip re-checks the flag inside the same transaction.
func (service *ServicePurchase) Complete(ctx context.Context, purchaseID string) error {
	mutex := service.rs.NewMutex(LockKeyPurchaseStep(purchaseID))
	if err := mutex.Lock(); err != nil {
		return errorx.Wrap(ErrPurchaseLock, errorx.Invalid)
	}
	// nolint:errcheck
	defer mutex.Unlock()

	purchase, err := datastore.GetPendingPurchase(ctx, service.postgresDB, purchaseID)
	if err != nil {
		return err
	}
	if purchase.Status != models.PURCHASE_SUBMITTED {
		return nil
	}

	progress, err := service.serviceBattlePass.GetOrCreateProgress(ctx, purchase.UserID, purchase.SeasonID)
	if err != nil {
		return err
	}

	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		moved, err := datastore.TransitionPurchase(ctx, tx, purchase.ID, models.PURCHASE_SUBMITTED, models.PURCHASE_CONFIRMED, nil)
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}

		flipped, err := datastore.SetPremium(ctx, tx, progress.ID)
		if err != nil {
			return err
		}
		if !flipped {
			// already premium through another path; confirm without a
			// second grant
			return nil
		}

		return datastore.InsertLedgerEntry(ctx, tx, &models.LedgerEntry{
			UserID:      purchase.UserID,
			Kind:        models.REWARD_PREMIUM,
			Amount:      purchase.AmountNano,
			ReferenceID: fmt.Sprintf("purchase:%s", purchase.ID),
			Metadata: map[string]interface{}{
				"season_id": purchase.SeasonID,
				"method":    "ton",
				"signature": *purchase.Signature,
			},
		})
	})
	if err != nil {
		return err
	}

	service.serviceBattlePass.invalidateProgress(ctx, purchase.UserID, purchase.SeasonID)

	go func(chatID int64) {
		if err := service.bot.SendPremiumConfirmedMsg(chatID); err != nil {
			log.Println("premium confirmed notification:", err)
		}
	}(purchase.UserID)

	return nil
}

// Fail moves a non-terminal purchase to failed; a no-op on terminal rows.
func (service *ServicePurchase) Fail(ctx context.Context, purchaseID, reason string) error {
	_, err := datastore.FailPurchase(ctx, service.postgresDB, purchaseID, models.PURCHASE_FAILED, reason)
	return err
}

// Cancel is user-initiated and only allowed before the signature lands.
func (service *ServicePurchase) Cancel(ctx context.Context, user *models.User, purchaseID string) error {
	purchase, err := service.getOwned(ctx, user, purchaseID)
	if err != nil {
		return err
	}
	if purchase.Terminal() {
		return errorx.Wrap(errors.New("purchase already settled"), errorx.Invalid)
	}

	moved, err := datastore.TransitionPurchase(ctx, service.postgresDB, purchase.ID,
		models.PURCHASE_AWAITING_SIGNATURE, models.PURCHASE_EXPIRED,
		func(q *bun.UpdateQuery) *bun.UpdateQuery {
			return q.Set("fail_reason = ?", "cancelled by user")
		})
	if err != nil {
		return err
	}
	if !moved {
		return errorx.Wrap(errors.New("purchase can no longer be cancelled"), errorx.Invalid)
	}

	return nil
}

// GetPurchase is the status-poll surface for UIs; async failures only ever
// show up here, never as an error on the original call.
func (service *ServicePurchase) GetPurchase(ctx context.Context, user *models.User, purchaseID string) (*models.PendingPurchase, error) {
	return service.getOwned(ctx, user, purchaseID)
}

func (service *ServicePurchase) ListPurchases(ctx context.Context, user *models.User) ([]models.PendingPurchase, error) {
	return datastore.ListPurchasesByUser(ctx, service.readonlyPostgresDB, user.ID)
}

// ExpireStale terminates unsigned intents past their window; cron-driven.
func (service *ServicePurchase) ExpireStale(ctx context.Context, now time.Time, limit int) (int, error) {
	stale, err := datastore.ListStaleAwaitingSignature(ctx, service.postgresDB, now, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, purchase := range stale {
		moved, err := datastore.FailPurchase(ctx, service.postgresDB, purchase.ID, models.PURCHASE_EXPIRED, "signing window expired")
		if err != nil {
			return expired, err
		}
		if moved {
			expired++
		}
	}

	return expired, nil
}

// ResumeQuiet restarts the poll chain for submitted purchases nothing has
// touched recently, covering workers that crashed between poll steps. The
// attempt counter restarts but the wall-clock timeout still binds.
func (service *ServicePurchase) ResumeQuiet(ctx context.Context, now time.Time, limit int) (int, error) {
	quiet, err := datastore.ListQuietSubmitted(ctx, service.postgresDB, now.Add(-PURCHASE_WATCHDOG_QUIET), limit)
	if err != nil {
		return 0, err
	}

	resumed := 0
	for _, purchase := range quiet {
		err := service.scheduler.Schedule(ctx, TASK_PURCHASE_POLL, PollPayload{PurchaseID: purchase.ID, Attempt: 1}, 0)
		if err != nil {
			return resumed, err
		}
		resumed++
	}

	return resumed, nil
}

func (service *ServicePurchase) getOwned(ctx context.Context, user *models.User, purchaseID string) (*models.PendingPurchase, error) {
	purchase, err := datastore.GetPendingPurchase(ctx, service.postgresDB, purchaseID)
	if err == sql.ErrNoRows {
		return nil, errorx.Wrap(errors.New("purchase not found"), errorx.NotExist)
	}
	if err != nil {
		return nil, err
	}
	if purchase.UserID != user.ID {
		return nil, errorx.Wrap(ErrNotOwner, errorx.Authn)
	}

	return purchase, nil
}
