package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"arcana/internal/interfaces"
	"arcana/internal/models"
	"arcana/internal/pkg/caching"
	"arcana/internal/pkg/chain"
	"arcana/internal/pkg/limiter"
	"arcana/internal/pkg/taskqueue"
	"arcana/internal/services"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/hiendaovinh/toolkit/pkg/db"
	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/urfave/cli/v2"
)

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")
}

func main() {
	vs, err := env.EnvsRequired(
		"BOT_TOKEN",
		"DB_DSN",
		"TONCENTER_URL",
	)
	if err != nil {
		log.Fatal(err)
	}

	container := NewContainer(vs)

	app := &cli.App{
		Name: "worker",
		Commands: []*cli.Command{
			commandConsumer(container),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// commandConsumer drains the deferred task queue: purchase confirmation
// polls and domain event dispatches.
func commandConsumer(container *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "consume",
		Usage: "consume deferred tasks",
		Action: func(c *cli.Context) error {
			queue, err := do.Invoke[*taskqueue.Queue](container)
			if err != nil {
				return err
			}

			servicePurchase, err := do.Invoke[*services.ServicePurchase](container)
			if err != nil {
				return err
			}

			serviceEvents, err := do.Invoke[*services.ServiceEvents](container)
			if err != nil {
				return err
			}

			handler := func(ctx context.Context, task *taskqueue.Task) error {
				switch task.Operation {
				case services.TASK_PURCHASE_POLL:
					var payload services.PollPayload
					if err := task.Decode(&payload); err != nil {
						log.Printf("dropping undecodable poll task %s: %v", task.ID, err)
						return nil
					}
					return servicePurchase.Poll(ctx, payload)

				case services.TASK_EVENT_DISPATCH:
					var event models.DomainEvent
					if err := task.Decode(&event); err != nil {
						log.Printf("dropping undecodable event task %s: %v", task.ID, err)
						return nil
					}
					return serviceEvents.HandleDispatch(ctx, &event)

				default:
					return fmt.Errorf("unknown operation %q", task.Operation)
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Println("worker: consuming tasks")
			if err := queue.Run(ctx, handler); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
}

func NewContainer(vs map[string]string) *do.Injector {
	injector := do.New()
	vs["TONCENTER_API_KEY"] = os.Getenv("TONCENTER_API_KEY")

	do.ProvideNamedValue(injector, "envs", vs)

	do.Provide(injector, func(i *do.Injector) (*bun.DB, error) {
		sqldb := sql.OpenDB(pgdriver.NewConnector(
			pgdriver.WithDSN(os.Getenv("DB_DSN")),
			pgdriver.WithPassword(os.Getenv("DB_PASSWORD")),
		))

		return bun.NewDB(sqldb, pgdialect.New()), nil
	})

	do.ProvideNamed(injector, "db-readonly", func(i *do.Injector) (*bun.DB, error) {
		dsn := os.Getenv("DB_DSN_READONLY")
		if dsn == "" {
			return do.Invoke[*bun.DB](i)
		}

		sqldb := sql.OpenDB(pgdriver.NewConnector(
			pgdriver.WithDSN(dsn),
			pgdriver.WithPassword(os.Getenv("DB_PASSWORD_READONLY")),
		))

		return bun.NewDB(sqldb, pgdialect.New()), nil
	})

	do.ProvideNamed(injector, "redis-db", func(i *do.Injector) (redis.UniversalClient, error) {
		return db.InitRedis(&db.RedisConfig{
			URL: os.Getenv("REDIS_DB"),
		})
	})

	do.ProvideNamed(injector, "redis-cache", func(i *do.Injector) (redis.UniversalClient, error) {
		return db.InitRedis(&db.RedisConfig{
			URL: os.Getenv("REDIS_CACHE"),
		})
	})

	do.ProvideNamed(injector, "redis-cache-readonly", func(i *do.Injector) (redis.UniversalClient, error) {
		url := os.Getenv("REDIS_CACHE_READONLY")
		if url == "" {
			return do.InvokeNamed[redis.UniversalClient](i, "redis-cache")
		}
		return db.InitRedis(&db.RedisConfig{URL: url})
	})

	do.ProvideNamed(injector, "redis-limiter", func(i *do.Injector) (redis.UniversalClient, error) {
		return db.InitRedis(&db.RedisConfig{
			URL: os.Getenv("REDIS_LIMITER"),
		})
	})

	do.ProvideNamed(injector, "redis-mutex", func(i *do.Injector) (redis.UniversalClient, error) {
		return db.InitRedis(&db.RedisConfig{
			URL: os.Getenv("REDIS_MUTEX"),
		})
	})

	do.Provide(injector, func(i *do.Injector) (caching.Cache, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-cache")
		if err != nil {
			return nil, err
		}

		return caching.NewCacheRedis(dbRedis, false)
	})

	do.Provide(injector, func(i *do.Injector) (caching.ReadOnlyCache, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-cache-readonly")
		if err != nil {
			return nil, err
		}

		return caching.NewCacheRedis(dbRedis, false)
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.Limiter, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-limiter")
		if err != nil {
			return nil, err
		}

		return limiter.NewLimiter(dbRedis)
	})

	do.Provide(injector, func(i *do.Injector) (*redsync.Redsync, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-mutex")
		if err != nil {
			return nil, err
		}

		pool := goredis.NewPool(dbRedis)
		return redsync.New(pool), nil
	})

	do.Provide(injector, func(i *do.Injector) (*taskqueue.Queue, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-db")
		if err != nil {
			return nil, err
		}

		return taskqueue.New(dbRedis, "taskqueue:rewards"), nil
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.TaskScheduler, error) {
		return do.Invoke[*taskqueue.Queue](i)
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.ChainClient, error) {
		return chain.NewTonCenter(vs["TONCENTER_URL"], vs["TONCENTER_API_KEY"]), nil
	})

	do.Provide(injector, func(i *do.Injector) (*services.Bot, error) {
		return services.NewBot(vs["BOT_TOKEN"])
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceUser, error) {
		return services.NewServiceUser(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceConfig, error) {
		return services.NewServiceConfig(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceGacha, error) {
		return services.NewServiceGacha(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceLedger, error) {
		return services.NewServiceLedger(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceProgress, error) {
		return services.NewServiceProgress(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceBattlePass, error) {
		return services.NewServiceBattlePass(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServicePurchase, error) {
		return services.NewServicePurchase(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceEvents, error) {
		return services.NewServiceEvents(injector)
	})

	return injector
}
