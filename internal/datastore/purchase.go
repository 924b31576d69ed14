package datastore

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"arcana/internal/models"
)

func CreateTablePendingPurchase(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.PendingPurchase)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.PendingPurchase)(nil)).Index("index_pending_purchase_user_season").IfNotExists().Column("user_id", "season_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.PendingPurchase)(nil)).Index("index_pending_purchase_status").IfNotExists().Column("status").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertPendingPurchase(ctx context.Context, db bun.IDB, purchase *models.PendingPurchase) error {
	_, err := db.NewInsert().Model(purchase).Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func GetPendingPurchase(ctx context.Context, db bun.IDB, id string) (*models.PendingPurchase, error) {
	var purchase models.PendingPurchase
	err := db.NewSelect().Model(&purchase).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &purchase, nil
}

// GetActivePurchase returns the non-terminal purchase for (buyer, season) if
// one exists; at most one can be active at a time.
func GetActivePurchase(ctx context.Context, db bun.IDB, userID int64, seasonID string) (*models.PendingPurchase, error) {
	var purchase models.PendingPurchase
	err := db.NewSelect().Model(&purchase).
		Where("user_id = ?", userID).
		Where("season_id = ?", seasonID).
		Where("status IN (?)", bun.In([]string{models.PURCHASE_AWAITING_SIGNATURE, models.PURCHASE_SUBMITTED})).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &purchase, nil
}

func ListPurchasesByUser(ctx context.Context, db bun.IDB, userID int64) ([]models.PendingPurchase, error) {
	var purchases []models.PendingPurchase
	err := db.NewSelect().Model(&purchases).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return purchases, nil
}

// TransitionPurchase moves a purchase from one exact status to another; the
// affected-row count is the transition's happened/lost signal, which is how
// duplicate scheduling and racing pollers stay at-most-once.
func TransitionPurchase(ctx context.Context, tx bun.IDB, id, from, to string, apply func(q *bun.UpdateQuery) *bun.UpdateQuery) (bool, error) {
	q := tx.NewUpdate().
		Model((*models.PendingPurchase)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("status = ?", from)
	if apply != nil {
		q = apply(q)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

// FailPurchase is valid from any non-terminal state and a no-op otherwise.
func FailPurchase(ctx context.Context, tx bun.IDB, id, status, reason string) (bool, error) {
	res, err := tx.NewUpdate().
		Model((*models.PendingPurchase)(nil)).
		Set("status = ?", status).
		Set("fail_reason = ?", reason).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("status IN (?)", bun.In([]string{models.PURCHASE_AWAITING_SIGNATURE, models.PURCHASE_SUBMITTED})).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

// ListStaleAwaitingSignature finds intents past their signing window so cron
// can expire them.
func ListStaleAwaitingSignature(ctx context.Context, db bun.IDB, now time.Time, limit int) ([]models.PendingPurchase, error) {
	var purchases []models.PendingPurchase
	err := db.NewSelect().Model(&purchases).
		Where("status = ?", models.PURCHASE_AWAITING_SIGNATURE).
		Where("expires_at < ?", now).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return purchases, nil
}

// ListQuietSubmitted finds submitted purchases whose poll chain has gone
// quiet (no status write for a while); the cron watchdog re-schedules a poll
// for each so a crashed worker cannot strand a purchase.
func ListQuietSubmitted(ctx context.Context, db bun.IDB, quietSince time.Time, limit int) ([]models.PendingPurchase, error) {
	var purchases []models.PendingPurchase
	err := db.NewSelect().Model(&purchases).
		Where("status = ?", models.PURCHASE_SUBMITTED).
		Where("updated_at < ?", quietSince).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return purchases, nil
}
