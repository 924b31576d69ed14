package services

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"

	"arcana/internal/datastore"
	"arcana/internal/datastore/redis_store"
	"arcana/internal/models"
	"arcana/internal/pkg/caching"
)

type ServiceLeaderboard struct {
	container          *do.Injector
	redisDB            redis.UniversalClient
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache

	serviceConfig *ServiceConfig
}

func NewServiceLeaderboard(container *do.Injector) (*ServiceLeaderboard, error) {
	db, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	readonlyCache, err := do.Invoke[caching.ReadOnlyCache](container)
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	return &ServiceLeaderboard{container, db, readonlyPostgresDB, cache, readonlyCache, serviceConfig}, nil
}

// GetSeasonLeaderboard returns the season XP top list plus the caller's own
// row (rank -1 when unranked).
func (service *ServiceLeaderboard) GetSeasonLeaderboard(ctx context.Context, user *models.User, seasonID string) (*models.LeaderboardResponse, error) {
	limit, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_LEADERBOARD_LIMIT, LEADERBOARD_DEFAULT_LIMIT)

	callback := func() (*models.LeaderboardResponse, error) {
		leaderboard, err := redis_store.GetLeaderboard(ctx, service.redisDB, seasonID, limit)
		if err != nil {
			return nil, err
		}

		me := &models.LeaderboardItem{
			UserId:   user.ID,
			Rank:     -1,
			Username: displayName(user),
			PhotoURL: user.PhotoURL,
		}

		rank, err := redis_store.GetLeaderboardRank(ctx, service.redisDB, seasonID, user.ID)
		if err != nil && err != redis.Nil {
			return nil, err
		}
		if err == nil {
			score, err := redis_store.GetLeaderboardScore(ctx, service.redisDB, seasonID, user.ID)
			if err != nil && err != redis.Nil {
				return nil, err
			}
			me.Rank = rank
			me.Score = score
		}

		ids := make([]int64, 0, len(leaderboard))
		for _, item := range leaderboard {
			ids = append(ids, item.UserId)
		}

		if len(ids) > 0 {
			users, err := datastore.GetUsersByIDs(ctx, service.readonlyPostgresDB, ids)
			if err != nil {
				return nil, err
			}

			byID := make(map[int64]*models.User, len(users))
			for i := range users {
				byID[users[i].ID] = &users[i]
			}

			for _, item := range leaderboard {
				if u, ok := byID[item.UserId]; ok {
					item.Username = displayName(u)
					item.PhotoURL = u.PhotoURL
				}
			}
		}

		return &models.LeaderboardResponse{Leaderboard: leaderboard, Me: me}, nil
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyLeaderboard(seasonID, user.ID, limit), CACHE_TTL_1_MIN, callback)
}

func displayName(user *models.User) string {
	if user.Username != "" {
		return user.Username
	}

	return fmt.Sprintf("%s %s", user.FirstName, user.LastName)
}
