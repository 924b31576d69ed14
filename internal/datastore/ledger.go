package datastore

import (
	"context"

	"github.com/uptrace/bun"

	"arcana/internal/models"
)

func CreateTableLedgerEntry(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.LedgerEntry)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.LedgerEntry)(nil)).Index("index_ledger_entry_user_id").IfNotExists().Column("user_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.LedgerEntry)(nil)).Index("index_ledger_entry_reference_id").IfNotExists().Unique().Column("reference_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.LedgerEntry)(nil)).Index("index_ledger_entry_created_at").IfNotExists().Column("created_at").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// InsertLedgerEntry appends one audit row. The unique reference_id index
// turns a duplicated grant into a constraint error instead of a double
// payout.
func InsertLedgerEntry(ctx context.Context, tx bun.IDB, entry *models.LedgerEntry) error {
	_, err := tx.NewInsert().Model(entry).Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// LedgerEntryExists is the redelivery guard for handlers that grant outside
// a claim flow: check-then-apply inside one transaction keeps an at-least-once
// task from paying twice.
func LedgerEntryExists(ctx context.Context, db bun.IDB, referenceID string) (bool, error) {
	return db.NewSelect().Model((*models.LedgerEntry)(nil)).
		Where("reference_id = ?", referenceID).
		Exists(ctx)
}

func ListLedgerEntries(ctx context.Context, db bun.IDB, userID int64, limit, offset int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := db.NewSelect().Model(&entries).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return entries, nil
}
