package datastore

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"arcana/internal/models"
)

func CreateTableBattlePassSeason(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.BattlePassSeason)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.BattlePassSeason)(nil)).Index("index_battle_pass_season_status").IfNotExists().Column("status").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateTableTierReward(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.TierReward)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.TierReward)(nil)).Index("index_tier_reward_slot").IfNotExists().Unique().Column("season_id", "tier", "track").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateTableBattlePassProgress(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.BattlePassProgress)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.BattlePassProgress)(nil)).Index("index_battle_pass_progress_user_season").IfNotExists().Unique().Column("user_id", "season_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertBattlePassSeason(ctx context.Context, db *bun.DB, season *models.BattlePassSeason) error {
	_, err := db.NewInsert().Model(season).On("CONFLICT (id) DO NOTHING").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertTierRewards(ctx context.Context, db *bun.DB, rewards []models.TierReward) error {
	_, err := db.NewInsert().Model(&rewards).On("CONFLICT (season_id, tier, track) DO NOTHING").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func GetSeason(ctx context.Context, db bun.IDB, seasonID string) (*models.BattlePassSeason, error) {
	var season models.BattlePassSeason
	err := db.NewSelect().Model(&season).Where("id = ?", seasonID).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &season, nil
}

func GetActiveSeason(ctx context.Context, db bun.IDB, now time.Time) (*models.BattlePassSeason, error) {
	var season models.BattlePassSeason
	err := db.NewSelect().Model(&season).
		Where("status = ?", models.SEASON_ACTIVE).
		Where("start_time IS NULL OR start_time <= ?", now).
		Where("end_time IS NULL OR end_time > ?", now).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &season, nil
}

func GetTierReward(ctx context.Context, db bun.IDB, seasonID string, tier int, track string) (*models.TierReward, error) {
	var reward models.TierReward
	err := db.NewSelect().Model(&reward).
		Where("season_id = ?", seasonID).
		Where("tier = ?", tier).
		Where("track = ?", track).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &reward, nil
}

func ListTierRewards(ctx context.Context, db bun.IDB, seasonID string) ([]models.TierReward, error) {
	var rewards []models.TierReward
	err := db.NewSelect().Model(&rewards).
		Where("season_id = ?", seasonID).
		Order("tier ASC", "track ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return rewards, nil
}

func InsertBattlePassProgress(ctx context.Context, db bun.IDB, progress *models.BattlePassProgress) error {
	_, err := db.NewInsert().Model(progress).
		On("CONFLICT (user_id, season_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func GetBattlePassProgress(ctx context.Context, db bun.IDB, userID int64, seasonID string) (*models.BattlePassProgress, error) {
	var progress models.BattlePassProgress
	err := db.NewSelect().Model(&progress).
		Where("user_id = ?", userID).
		Where("season_id = ?", seasonID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &progress, nil
}

// AddSeasonXP bumps xp atomically and recomputes the tier in SQL so two
// concurrent events never lose an increment; the tier column is always
// floor(xp/xp_per_tier) capped at total_tiers.
func AddSeasonXP(ctx context.Context, tx bun.IDB, id int64, delta, xpPerTier int64, totalTiers int) (*models.BattlePassProgress, error) {
	var progress models.BattlePassProgress
	err := tx.NewUpdate().
		Model(&progress).
		Set("current_xp = current_xp + ?", delta).
		Set("current_tier = LEAST(((current_xp + ?) / ?)::int, ?)", delta, xpPerTier, totalTiers).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Returning("*").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &progress, nil
}

// AppendClaimedTier records a tier claim; the guard rejects a tier already in
// the track's claimed set, which is what makes double claims race safely.
func AppendClaimedTier(ctx context.Context, tx bun.IDB, id int64, tier int, track string) (bool, error) {
	column := "claimed_free_tiers"
	if track == models.TRACK_PREMIUM {
		column = "claimed_premium_tiers"
	}

	res, err := tx.NewUpdate().
		Model((*models.BattlePassProgress)(nil)).
		Set(column+" = array_append("+column+", ?)", tier).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("NOT (? = ANY("+column+"))", tier).
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

// SetPremium flips is_premium exactly once.
func SetPremium(ctx context.Context, tx bun.IDB, id int64) (bool, error) {
	res, err := tx.NewUpdate().
		Model((*models.BattlePassProgress)(nil)).
		Set("is_premium = ?", true).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("is_premium = ?", false).
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
