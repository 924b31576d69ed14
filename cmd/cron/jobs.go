package main

import (
	"context"
	"log"
	"time"

	"arcana/internal/datastore"
	"arcana/internal/models"
	"arcana/internal/services"

	"github.com/samber/do"
	"github.com/uptrace/bun"
)

const userBatchSize = 1000
const purchaseBatchSize = 200

type Jobs struct {
	postgresDB *bun.DB

	serviceProgress *services.ServiceProgress
	servicePurchase *services.ServicePurchase
}

func NewJobs(container *do.Injector) (*Jobs, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	serviceProgress, err := do.Invoke[*services.ServiceProgress](container)
	if err != nil {
		return nil, err
	}

	servicePurchase, err := do.Invoke[*services.ServicePurchase](container)
	if err != nil {
		return nil, err
	}

	return &Jobs{postgresDB, serviceProgress, servicePurchase}, nil
}

func (j *Jobs) GenerateDailyQuests() {
	j.generateQuests(models.PERIOD_DAILY)
}

func (j *Jobs) GenerateWeeklyQuests() {
	j.generateQuests(models.PERIOD_WEEKLY)
}

// generateQuests walks all users in id batches. Assignment is deterministic
// and idempotent, so a crashed run can simply be re-run.
func (j *Jobs) generateQuests(period string) {
	ctx := context.Background()
	now := time.Now()

	var afterID int64
	total := 0
	for {
		ids, err := datastore.ListUserIDs(ctx, j.postgresDB, afterID, userBatchSize)
		if err != nil {
			log.Printf("cron: list users: %v", err)
			return
		}
		if len(ids) == 0 {
			break
		}

		for _, id := range ids {
			if err := j.serviceProgress.GenerateQuests(ctx, id, period, now); err != nil {
				log.Printf("cron: generate %s quests for %d: %v", period, id, err)
			} else {
				total++
			}
		}
		afterID = ids[len(ids)-1]
	}

	log.Printf("cron: generated %s quests for %d users", period, total)
}

func (j *Jobs) SweepExpiredQuests() {
	ctx := context.Background()

	n, err := j.serviceProgress.SweepExpired(ctx, time.Now())
	if err != nil {
		log.Printf("cron: sweep expired quests: %v", err)
		return
	}
	if n > 0 {
		log.Printf("cron: swept %d expired quest rows", n)
	}
}

func (j *Jobs) ExpireStalePurchases() {
	ctx := context.Background()

	n, err := j.servicePurchase.ExpireStale(ctx, time.Now(), purchaseBatchSize)
	if err != nil {
		log.Printf("cron: expire stale purchases: %v", err)
		return
	}
	if n > 0 {
		log.Printf("cron: expired %d stale purchases", n)
	}
}

func (j *Jobs) ResumeQuietPurchases() {
	ctx := context.Background()

	n, err := j.servicePurchase.ResumeQuiet(ctx, time.Now(), purchaseBatchSize)
	if err != nil {
		log.Printf("cron: resume quiet purchases: %v", err)
		return
	}
	if n > 0 {
		log.Printf("cron: resumed polling for %d purchases", n)
	}
}
