package datastore

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"arcana/internal/models"
)

func CreateTableEventReceipt(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.EventReceipt)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// ClaimEventReceipt inserts the (event, group) marker; false means the group
// already ran for this event and the caller must skip its work.
func ClaimEventReceipt(ctx context.Context, tx bun.IDB, eventID, group string) (bool, error) {
	receipt := &models.EventReceipt{
		EventID:      eventID,
		HandlerGroup: group,
		ProcessedAt:  time.Now(),
	}

	res, err := tx.NewInsert().Model(receipt).On("CONFLICT DO NOTHING").Exec(ctx)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}
