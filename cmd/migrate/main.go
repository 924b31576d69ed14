package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/urfave/cli/v2"

	"arcana/internal/datastore"
	"arcana/internal/models"
	"arcana/internal/services"
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
	app := &cli.App{
		Name: "migrate",
		Commands: []*cli.Command{
			commandMigration(),
			commandSeedDefinitions(),
			commandSeedCards(),
			commandSeedSeason(),
			commandSeedConfig(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandMigration() *cli.Command {
	return &cli.Command{
		Name: "migrate",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			if err := datastore.CreateTableUser(ctx, db); err != nil {
				log.Fatal(err)
			}
			if err := datastore.CreateTableUserWallet(ctx, db); err != nil {
				log.Fatal(err)
			}
			if err := datastore.CreateTableConfig(ctx, db); err != nil {
				log.Fatal(err)
			}
			if err := datastore.CreateTableProgressDefinition(ctx, db); err != nil {
				log.Fatal(err)
			}
			if err := datastore.CreateTableUserProgress(ctx, db); err != nil {
				log.Fatal(err)
			}
			if err := datastore.CreateTableBattlePassSeason(ctx, db); err != nil {
				log.Fatal(err)
			}
			if err := datastore.CreateTableTierReward(ctx, db); err != nil {
				log.Fatal(err)
			}
			if err := datastore.CreateTableBattlePassProgress(ctx, db); err != nil {
				log.Fatal(err)
			}
			if err := datastore.CreateTablePendingPurchase(ctx, db); err != nil {
				log.Fatal(err)
			}
			if err := datastore.CreateTableLedgerEntry(ctx, db); err != nil {
				log.Fatal(err)
			}
			if err := datastore.CreateTableCard(ctx, db); err != nil {
				log.Fatal(err)
			}
			if err := datastore.CreateTableUserCard(ctx, db); err != nil {
				log.Fatal(err)
			}
			if err := datastore.CreateTableEventReceipt(ctx, db); err != nil {
				log.Fatal(err)
			}

			log.Println("migrate: done")
			return nil
		},
	}
}

func commandSeedDefinitions() *cli.Command {
	return &cli.Command{
		Name: "seed-definitions",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			ranked := "ranked"
			control := "control"
			definitions := []models.ProgressDefinition{
				{ID: "daily-win-3", Category: models.DEFINITION_QUEST, Name: "Win 3 matches", Kind: models.EVENT_MATCH_WON, Target: 3, Period: models.PERIOD_DAILY, Active: true, Reward: models.Reward{Kind: models.REWARD_GOLD, Amount: 150}},
				{ID: "daily-play-5", Category: models.DEFINITION_QUEST, Name: "Play 5 matches", Kind: models.EVENT_MATCH_PLAYED, Target: 5, Period: models.PERIOD_DAILY, Active: true, Reward: models.Reward{Kind: models.REWARD_GOLD, Amount: 100}},
				{ID: "daily-cards-20", Category: models.DEFINITION_QUEST, Name: "Play 20 cards", Kind: models.EVENT_CARD_PLAYED, Target: 20, Period: models.PERIOD_DAILY, Active: true, Reward: models.Reward{Kind: models.REWARD_XP, Amount: 50}},
				{ID: "daily-ranked-win", Category: models.DEFINITION_QUEST, Name: "Win a ranked match", Kind: models.EVENT_MATCH_WON, Target: 1, Period: models.PERIOD_DAILY, Mode: &ranked, Active: true, Reward: models.Reward{Kind: models.REWARD_GEMS, Amount: 10}},
				{ID: "daily-stage", Category: models.DEFINITION_QUEST, Name: "Clear a story stage", Kind: models.EVENT_STAGE_CLEAR, Target: 1, Period: models.PERIOD_DAILY, Active: true, Reward: models.Reward{Kind: models.REWARD_PACK, PackID: "any"}},
				{ID: "weekly-win-15", Category: models.DEFINITION_QUEST, Name: "Win 15 matches", Kind: models.EVENT_MATCH_WON, Target: 15, Period: models.PERIOD_WEEKLY, Active: true, Reward: models.Reward{Kind: models.REWARD_GEMS, Amount: 50}},
				{ID: "weekly-play-30", Category: models.DEFINITION_QUEST, Name: "Play 30 matches", Kind: models.EVENT_MATCH_PLAYED, Target: 30, Period: models.PERIOD_WEEKLY, Active: true, Reward: models.Reward{Kind: models.REWARD_PACK, PackID: "any"}},
				{ID: "weekly-control-wins", Category: models.DEFINITION_QUEST, Name: "Win 5 matches with control decks", Kind: models.EVENT_MATCH_WON, Target: 5, Period: models.PERIOD_WEEKLY, Archetype: &control, Active: true, Reward: models.Reward{Kind: models.REWARD_GOLD, Amount: 500}},

				{ID: "ach-first-win", Category: models.DEFINITION_ACHIEVEMENT, Name: "First Victory", Kind: models.EVENT_MATCH_WON, Target: 1, Period: models.PERIOD_PERMANENT, Active: true, Reward: models.Reward{Kind: models.REWARD_GOLD, Amount: 100}},
				{ID: "ach-wins-100", Category: models.DEFINITION_ACHIEVEMENT, Name: "Centurion", Kind: models.EVENT_MATCH_WON, Target: 100, Period: models.PERIOD_PERMANENT, Active: true, Reward: models.Reward{Kind: models.REWARD_TITLE, Title: "Centurion"}},
				{ID: "ach-cards-1000", Category: models.DEFINITION_ACHIEVEMENT, Name: "Card Slinger", Kind: models.EVENT_CARD_PLAYED, Target: 1000, Period: models.PERIOD_PERMANENT, Active: true, Reward: models.Reward{Kind: models.REWARD_AVATAR, Avatar: "card_slinger"}},
				{ID: "ach-high-roller", Category: models.DEFINITION_ACHIEVEMENT, Name: "High Roller", Kind: models.EVENT_WAGER_WON, Target: 10, Period: models.PERIOD_PERMANENT, Secret: true, Active: true, Reward: models.Reward{Kind: models.REWARD_GEMS, Amount: 100}},
			}

			if err := datastore.InsertProgressDefinitions(ctx, db, definitions); err != nil {
				log.Fatal(err)
			}

			log.Printf("seeded %d definitions", len(definitions))
			return nil
		},
	}
}

func commandSeedCards() *cli.Command {
	return &cli.Command{
		Name: "seed-cards",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			cards := []models.Card{
				{ID: "ember-imp", Name: "Ember Imp", Archetype: "aggro", Rarity: "common", Weight: 100},
				{ID: "flame-lancer", Name: "Flame Lancer", Archetype: "aggro", Rarity: "rare", Weight: 40},
				{ID: "cinder-drake", Name: "Cinder Drake", Archetype: "aggro", Rarity: "epic", Weight: 12},
				{ID: "tide-binder", Name: "Tide Binder", Archetype: "control", Rarity: "common", Weight: 100},
				{ID: "frost-warden", Name: "Frost Warden", Archetype: "control", Rarity: "rare", Weight: 40},
				{ID: "abyss-oracle", Name: "Abyss Oracle", Archetype: "control", Rarity: "epic", Weight: 12},
				{ID: "grove-keeper", Name: "Grove Keeper", Archetype: "midrange", Rarity: "common", Weight: 100},
				{ID: "stone-colossus", Name: "Stone Colossus", Archetype: "midrange", Rarity: "rare", Weight: 40},
				{ID: "world-tree", Name: "World Tree", Archetype: "midrange", Rarity: "legendary", Weight: 3},
			}

			if err := datastore.InsertCards(ctx, db, cards); err != nil {
				log.Fatal(err)
			}

			log.Printf("seeded %d cards", len(cards))
			return nil
		},
	}
}

func commandSeedSeason() *cli.Command {
	return &cli.Command{
		Name: "seed-season",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Value: "s1"},
			&cli.StringFlag{Name: "treasury", Required: true, Usage: "treasury wallet address"},
		},
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			priceGems := int64(1000)
			priceNano := int64(2_000_000_000)
			start := time.Now()
			end := start.AddDate(0, 2, 0)

			season := &models.BattlePassSeason{
				ID:             c.String("id"),
				Name:           "Season of the Arcane",
				XPPerTier:      100,
				TotalTiers:     50,
				PriceGems:      &priceGems,
				PriceNano:      &priceNano,
				TreasuryWallet: c.String("treasury"),
				Status:         models.SEASON_ACTIVE,
				StartTime:      &start,
				EndTime:        &end,
			}
			if err := datastore.InsertBattlePassSeason(ctx, db, season); err != nil {
				log.Fatal(err)
			}

			var rewards []models.TierReward
			for tier := 1; tier <= season.TotalTiers; tier++ {
				free := models.Reward{Kind: models.REWARD_GOLD, Amount: int64(50 * tier)}
				premium := models.Reward{Kind: models.REWARD_GEMS, Amount: int64(10 * tier)}
				switch {
				case tier%10 == 0:
					free = models.Reward{Kind: models.REWARD_PACK, PackID: "any"}
					premium = models.Reward{Kind: models.REWARD_PACK, PackID: "any"}
				case tier%5 == 0:
					premium = models.Reward{Kind: models.REWARD_PACK, PackID: "any"}
				}
				rewards = append(rewards,
					models.TierReward{SeasonID: season.ID, Tier: tier, Track: models.TRACK_FREE, Reward: free},
					models.TierReward{SeasonID: season.ID, Tier: tier, Track: models.TRACK_PREMIUM, Reward: premium},
				)
			}
			if err := datastore.InsertTierRewards(ctx, db, rewards); err != nil {
				log.Fatal(err)
			}

			log.Printf("seeded season %s with %d tier rewards", season.ID, len(rewards))
			return nil
		},
	}
}

func commandSeedConfig() *cli.Command {
	return &cli.Command{
		Name: "seed-config",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			configs := []models.Config{
				{Key: services.CONFIG_DAILY_QUEST_COUNT, Value: "3"},
				{Key: services.CONFIG_WEEKLY_QUEST_COUNT, Value: "3"},
				{Key: services.CONFIG_LEADERBOARD_LIMIT, Value: "20"},
				{Key: services.CONFIG_PURCHASE_TTL_SECONDS, Value: "300"},
			}

			for _, config := range configs {
				if err := datastore.InsertConfig(ctx, db, config); err != nil {
					log.Fatal(err)
				}
			}

			log.Printf("seeded %d config keys", len(configs))
			return nil
		},
	}
}

func getDb() (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(os.Getenv("DB_DSN")),
		pgdriver.WithPassword(os.Getenv("DB_PASSWORD")),
	))

	return bun.NewDB(sqldb, pgdialect.New()), nil
}
