package datastore

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"arcana/internal/models"
)

func CreateTableUser(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.User)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.User)(nil)).Index("index_user_username").IfNotExists().Column("username").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateTableUserWallet(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.UserWallet)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func GetUser(ctx context.Context, db bun.IDB, userID int64) (*models.User, error) {
	var user models.User
	err := db.NewSelect().Model(&user).Where("id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// ListUserIDs pages through user ids in ascending order; used by cron to
// fan out per-user work in batches.
func ListUserIDs(ctx context.Context, db bun.IDB, afterID int64, limit int) ([]int64, error) {
	var ids []int64
	err := db.NewSelect().Model((*models.User)(nil)).
		Column("id").
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func GetUsersByIDs(ctx context.Context, db bun.IDB, ids []int64) ([]models.User, error) {
	var users []models.User
	err := db.NewSelect().Model(&users).Where("id IN (?)", bun.In(ids)).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return users, nil
}

func InsertUser(ctx context.Context, db *bun.DB, user *models.User) error {
	_, err := db.NewInsert().Model(user).On("CONFLICT (id) DO NOTHING").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func UpdateUserProfile(ctx context.Context, db *bun.DB, user *models.User) (*models.User, error) {
	_, err := db.NewUpdate().Model(user).
		Set("username = ?", user.Username).
		Set("first_name = ?", user.FirstName).
		Set("last_name = ?", user.LastName).
		Set("photo_url = ?", user.PhotoURL).
		Set("updated_at = ?", time.Now()).
		WherePK().Exec(ctx)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// AdjustBalances applies signed currency/xp deltas to a single user row.
// Runs inside the caller's transaction when tx is a bun.Tx.
func AdjustBalances(ctx context.Context, tx bun.IDB, userID int64, gold, gems, xp int64) error {
	_, err := tx.NewUpdate().
		Model((*models.User)(nil)).
		Set("gold = gold + ?", gold).
		Set("gems = gems + ?", gems).
		Set("xp = xp + ?", xp).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Exec(ctx)

	return err
}

// DebitGems subtracts gems only when the balance covers the amount; the
// affected row count tells the caller whether the debit happened.
func DebitGems(ctx context.Context, tx bun.IDB, userID int64, amount int64) (bool, error) {
	res, err := tx.NewUpdate().
		Model((*models.User)(nil)).
		Set("gems = gems - ?", amount).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Where("gems >= ?", amount).
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

func SetUserTitle(ctx context.Context, tx bun.IDB, userID int64, title string) error {
	_, err := tx.NewUpdate().
		Model((*models.User)(nil)).
		Set("title = ?", title).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Exec(ctx)

	return err
}

func SetUserAvatar(ctx context.Context, tx bun.IDB, userID int64, avatar string) error {
	_, err := tx.NewUpdate().
		Model((*models.User)(nil)).
		Set("avatar = ?", avatar).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Exec(ctx)

	return err
}

func GetUserWallet(ctx context.Context, db bun.IDB, userID int64) (*models.UserWallet, error) {
	var wallet models.UserWallet
	err := db.NewSelect().Model(&wallet).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &wallet, nil
}

func UpsertUserTONWallet(ctx context.Context, db *bun.DB, userID int64, address string) error {
	wallet := &models.UserWallet{
		UserID:    userID,
		TONWallet: &address,
		UpdatedAt: time.Now(),
	}
	_, err := db.NewInsert().Model(wallet).
		On("CONFLICT (user_id) DO UPDATE").
		Set("ton_wallet = EXCLUDED.ton_wallet").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	return err
}
