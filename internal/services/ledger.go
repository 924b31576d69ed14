package services

import (
	"context"

	"github.com/samber/do"
	"github.com/uptrace/bun"

	"arcana/internal/datastore"
	"arcana/internal/models"
)

// ServiceLedger is the one primitive every grant path goes through. It
// applies the reward's balance/inventory effect and appends the audit row in
// the caller's transaction. Callers must have already verified, inside that
// same transaction, that the unlock or claim being paid for happened exactly
// once; the ledger performs no retries and no deduplication beyond the
// unique reference id.
type ServiceLedger struct {
	container *do.Injector

	serviceGacha *ServiceGacha
}

func NewServiceLedger(container *do.Injector) (*ServiceLedger, error) {
	serviceGacha, err := do.Invoke[*ServiceGacha](container)
	if err != nil {
		return nil, err
	}

	return &ServiceLedger{container, serviceGacha}, nil
}

// ApplyReward grants one reward to a user. tx is expected to be the
// transaction in which the caller's guard ran; errors propagate unwrapped so
// the caller can roll the whole step back.
func (service *ServiceLedger) ApplyReward(ctx context.Context, tx bun.IDB, userID int64, reward models.Reward, referenceID string, metadata map[string]interface{}) error {
	if err := reward.Validate(); err != nil {
		return err
	}

	entry := &models.LedgerEntry{
		UserID:      userID,
		Kind:        reward.Kind,
		Amount:      reward.Amount,
		ReferenceID: referenceID,
		Metadata:    metadata,
	}

	switch reward.Kind {
	case models.REWARD_GOLD:
		if err := datastore.AdjustBalances(ctx, tx, userID, reward.Amount, 0, 0); err != nil {
			return err
		}
	case models.REWARD_GEMS:
		if err := datastore.AdjustBalances(ctx, tx, userID, 0, reward.Amount, 0); err != nil {
			return err
		}
	case models.REWARD_XP:
		if err := datastore.AdjustBalances(ctx, tx, userID, 0, 0, reward.Amount); err != nil {
			return err
		}
	case models.REWARD_CARD:
		if err := datastore.GrantCard(ctx, tx, userID, reward.CardID); err != nil {
			return err
		}
		entry.CardID = &reward.CardID
		entry.Amount = 1
	case models.REWARD_PACK:
		cardID, err := service.serviceGacha.OpenPack(ctx, tx, reward.PackID)
		if err != nil {
			return err
		}
		if err := datastore.GrantCard(ctx, tx, userID, cardID); err != nil {
			return err
		}
		entry.CardID = &cardID
		entry.Amount = 1
	case models.REWARD_TITLE:
		if err := datastore.SetUserTitle(ctx, tx, userID, reward.Title); err != nil {
			return err
		}
	case models.REWARD_AVATAR:
		if err := datastore.SetUserAvatar(ctx, tx, userID, reward.Avatar); err != nil {
			return err
		}
	}

	return datastore.InsertLedgerEntry(ctx, tx, entry)
}
