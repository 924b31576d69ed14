package datastore

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"arcana/internal/models"
)

func CreateTableCard(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Card)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateTableUserCard(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.UserCard)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.UserCard)(nil)).Index("index_user_card_unique").IfNotExists().Unique().Column("user_id", "card_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertCards(ctx context.Context, db *bun.DB, cards []models.Card) error {
	_, err := db.NewInsert().Model(&cards).On("CONFLICT (id) DO NOTHING").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func GetCard(ctx context.Context, db bun.IDB, cardID string) (*models.Card, error) {
	var card models.Card
	err := db.NewSelect().Model(&card).Where("id = ?", cardID).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &card, nil
}

func ListCards(ctx context.Context, db bun.IDB) ([]models.Card, error) {
	var cards []models.Card
	err := db.NewSelect().Model(&cards).Order("id ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}

	return cards, nil
}

// GrantCard adds one copy to the user's collection, creating the row on
// first grant.
func GrantCard(ctx context.Context, tx bun.IDB, userID int64, cardID string) error {
	userCard := &models.UserCard{
		UserID:    userID,
		CardID:    cardID,
		Count:     1,
		UpdatedAt: time.Now(),
	}
	_, err := tx.NewInsert().Model(userCard).
		On("CONFLICT (user_id, card_id) DO UPDATE").
		Set("count = user_card.count + 1").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	return err
}

func ListUserCards(ctx context.Context, db bun.IDB, userID int64) ([]models.UserCard, error) {
	var cards []models.UserCard
	err := db.NewSelect().Model(&cards).
		Where("user_id = ?", userID).
		Order("card_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return cards, nil
}
