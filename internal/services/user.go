package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/tonkeeper/tongo"
	"github.com/uptrace/bun"

	"arcana/internal/datastore"
	"arcana/internal/models"
	"arcana/internal/pkg/caching"
)

type ServiceUser struct {
	container          *do.Injector
	redisDB            redis.UniversalClient
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache

	bot *Bot
}

func NewServiceUser(container *do.Injector) (*ServiceUser, error) {
	db, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
	if err != nil {
		return nil, err
	}

	postgresDB, err := do.Invoke[*bun.DB](container)
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

	bot, err := do.Invoke[*Bot](container)
	if err != nil {
		return nil, err
	}

	return &ServiceUser{container, db, postgresDB, readonlyPostgresDB, cache, readonlyCache, bot}, nil
}

func (service *ServiceUser) FindUserByID(ctx context.Context, userID int64) (*models.User, error) {
	callback := func() (*models.User, error) {
		return datastore.GetUser(ctx, service.readonlyPostgresDB, userID)
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyUser(userID), CACHE_TTL_5_MINS, callback)
}

func (service *ServiceUser) FindOrCreateUser(ctx context.Context, userAuth *models.UserFromAuth) (*models.User, error) {
	if userAuth == nil {
		return nil, errors.New("userAuth is nil")
	}

	user, _ := service.FindUserByID(ctx, userAuth.ID)
	if user != nil {
		if (user.Username != strings.ToLower(userAuth.Username)) ||
			(user.FirstName != userAuth.FirstName) ||
			(user.LastName != userAuth.LastName) ||
			(user.PhotoURL != userAuth.PhotoURL) {
			user.Username = strings.ToLower(userAuth.Username)
			user.FirstName = userAuth.FirstName
			user.LastName = userAuth.LastName
			user.PhotoURL = userAuth.PhotoURL
			//nolint:errcheck
			datastore.UpdateUserProfile(ctx, service.postgresDB, user)
			_ = service.cache.Delete(ctx, DBKeyUser(user.ID))
		}
		return user, nil
	}

	now := time.Now()
	newUser := &models.User{
		ID:           userAuth.ID,
		FirstName:    userAuth.FirstName,
		IsBot:        userAuth.IsBot,
		LastName:     userAuth.LastName,
		Username:     strings.ToLower(userAuth.Username),
		LanguageCode: userAuth.LanguageCode,
		PhotoURL:     userAuth.PhotoURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	log.Println("Create new user:", "user:", newUser.ID, "username:", newUser.Username)
	if err := datastore.InsertUser(ctx, service.postgresDB, newUser); err != nil {
		return nil, err
	}

	newUser.IsNewUser = true

	go func() {
		if err := service.bot.SendWelcomeMsg(newUser.ID); err != nil {
			log.Println("welcome message:", err)
		}
	}()

	return newUser, nil
}

// ConnectTONWallet stores the wallet the user will pay premium-pass
// purchases from.
func (service *ServiceUser) ConnectTONWallet(ctx context.Context, user *models.User, address string) error {
	addr, err := tongo.ParseAddress(address)
	if err != nil {
		return errorx.Wrap(errors.New("invalid account"), errorx.Invalid)
	}

	if err := datastore.UpsertUserTONWallet(ctx, service.postgresDB, user.ID, addr.ID.String()); err != nil {
		return err
	}

	return service.cache.Delete(ctx, DBKeyUserWallet(user.ID))
}

func (service *ServiceUser) FindUserWallet(ctx context.Context, userID int64) (*models.UserWallet, error) {
	callback := func() (*models.UserWallet, error) {
		wallet, err := datastore.GetUserWallet(ctx, service.readonlyPostgresDB, userID)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return wallet, err
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyUserWallet(userID), CACHE_TTL_5_MINS, callback)
}

func (service *ServiceUser) GetLedgerHistory(ctx context.Context, userID int64, limit, offset int) ([]models.LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	return datastore.ListLedgerEntries(ctx, service.readonlyPostgresDB, userID, limit, offset)
}

func (service *ServiceUser) GetUserCards(ctx context.Context, userID int64) ([]models.UserCard, error) {
	callback := func() ([]models.UserCard, error) {
		cards, err := datastore.ListUserCards(ctx, service.readonlyPostgresDB, userID)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return cards, err
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyUserCards(userID), CACHE_TTL_1_MIN, callback)
}

// ClearUserCache drops the cached user row after a balance mutation.
func (service *ServiceUser) ClearUserCache(ctx context.Context, userID int64) error {
	return service.cache.Delete(ctx, DBKeyUser(userID))
}
