package datastore

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"arcana/internal/models"
)

func CreateTableUserProgress(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.UserProgress)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.UserProgress)(nil)).Index("index_user_progress_user_id").IfNotExists().Column("user_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.UserProgress)(nil)).Index("index_user_progress_unique_row").IfNotExists().Unique().Column("user_id", "definition_id", "period_key").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.UserProgress)(nil)).Index("index_user_progress_expires_at").IfNotExists().Column("expires_at").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertUserProgress(ctx context.Context, db bun.IDB, progress *models.UserProgress) error {
	_, err := db.NewInsert().Model(progress).
		On("CONFLICT (user_id, definition_id, period_key) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func GetUserProgressByID(ctx context.Context, db bun.IDB, id int64) (*models.UserProgress, error) {
	var progress models.UserProgress
	err := db.NewSelect().Model(&progress).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &progress, nil
}

func GetUserProgress(ctx context.Context, db bun.IDB, userID int64, definitionID string, periodKey string) (*models.UserProgress, error) {
	var progress models.UserProgress
	err := db.NewSelect().Model(&progress).
		Where("user_id = ?", userID).
		Where("definition_id = ?", definitionID).
		Where("period_key = ?", periodKey).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &progress, nil
}

func ListUserProgress(ctx context.Context, db bun.IDB, userID int64, periodKeys []string) ([]models.UserProgress, error) {
	var progress []models.UserProgress
	err := db.NewSelect().Model(&progress).
		Where("user_id = ?", userID).
		Where("period_key IN (?)", bun.In(periodKeys)).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return progress, nil
}

// IncrementProgress adds value to a row's progress clamped to the target,
// entirely in SQL so concurrent events never lose an increment and the
// counter stays monotonic. Only rows still accumulating (active quests,
// locked achievements) are touched; completed and unlocked rows are frozen.
func IncrementProgress(ctx context.Context, tx bun.IDB, id int64, value, target int64) (*models.UserProgress, error) {
	var progress models.UserProgress
	err := tx.NewUpdate().
		Model(&progress).
		Set("current_progress = LEAST(current_progress + ?, ?)", value, target).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("status IN (?)", bun.In([]string{models.PROGRESS_ACTIVE, models.ACHIEVEMENT_LOCKED})).
		Returning("*").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &progress, nil
}

// MarkCompleted flips an active quest row to completed exactly once; claiming
// is a separate step.
func MarkCompleted(ctx context.Context, tx bun.IDB, id int64, now time.Time) (bool, error) {
	res, err := tx.NewUpdate().
		Model((*models.UserProgress)(nil)).
		Set("status = ?", models.PROGRESS_COMPLETED).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", models.PROGRESS_ACTIVE).
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

// MarkUnlocked flips an achievement row to unlocked exactly once; the
// conditional status check makes concurrent unlocks race safely.
func MarkUnlocked(ctx context.Context, tx bun.IDB, id int64, now time.Time) (bool, error) {
	res, err := tx.NewUpdate().
		Model((*models.UserProgress)(nil)).
		Set("status = ?", models.ACHIEVEMENT_UNLOCKED).
		Set("unlocked_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", models.ACHIEVEMENT_LOCKED).
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

// MarkClaimed moves a completed quest row to claimed exactly once.
func MarkClaimed(ctx context.Context, tx bun.IDB, id int64, now time.Time) (bool, error) {
	res, err := tx.NewUpdate().
		Model((*models.UserProgress)(nil)).
		Set("status = ?", models.PROGRESS_CLAIMED).
		Set("claimed_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", models.PROGRESS_COMPLETED).
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

// DeleteExpiredUnclaimed sweeps quest rows past their expiry that were never
// claimed. Claimed rows stay for audit.
func DeleteExpiredUnclaimed(ctx context.Context, db *bun.DB, now time.Time) (int64, error) {
	res, err := db.NewDelete().
		Model((*models.UserProgress)(nil)).
		Where("expires_at IS NOT NULL").
		Where("expires_at < ?", now).
		Where("status != ?", models.PROGRESS_CLAIMED).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
