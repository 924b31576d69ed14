package redis_store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"arcana/internal/models"
)

func dbKeySeasonLeaderboard(seasonID string) string {
	return fmt.Sprintf("leaderboard:season:%s", strings.ToLower(seasonID))
}

// AddLeaderboardXP bumps a user's score on the season XP leaderboard; the
// stats handler calls this with the same XP delta the battle pass received.
func AddLeaderboardXP(ctx context.Context, cmd redis.Cmdable, seasonID string, userID int64, xp int64) error {
	return cmd.ZIncrBy(ctx, dbKeySeasonLeaderboard(seasonID), float64(xp), strconv.FormatInt(userID, 10)).Err()
}

func GetLeaderboard(ctx context.Context, cmd redis.Cmdable, seasonID string, num int) ([]*models.LeaderboardItem, error) {
	// num always greater than 0
	items, err := cmd.ZRevRangeWithScores(ctx, dbKeySeasonLeaderboard(seasonID), 0, int64(num-1)).Result()
	if err != nil {
		return nil, err
	}

	var results []*models.LeaderboardItem
	for i, item := range items {
		id, _ := strconv.ParseInt(item.Member.(string), 10, 64)
		results = append(results, &models.LeaderboardItem{
			UserId: id,
			Score:  item.Score,
			Rank:   i + 1,
		})
	}

	return results, nil
}

func GetLeaderboardRank(ctx context.Context, cmd redis.Cmdable, seasonID string, userID int64) (int, error) {
	rank, err := cmd.ZRevRank(ctx, dbKeySeasonLeaderboard(seasonID), strconv.FormatInt(userID, 10)).Result()
	if err != nil {
		return 0, err
	}

	return int(rank) + 1, nil
}

func GetLeaderboardScore(ctx context.Context, cmd redis.Cmdable, seasonID string, userID int64) (float64, error) {
	return cmd.ZScore(ctx, dbKeySeasonLeaderboard(seasonID), strconv.FormatInt(userID, 10)).Result()
}
