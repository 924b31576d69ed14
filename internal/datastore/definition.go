package datastore

import (
	"context"

	"github.com/uptrace/bun"

	"arcana/internal/models"
)

func CreateTableProgressDefinition(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.ProgressDefinition)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.ProgressDefinition)(nil)).Index("index_progress_definition_kind").IfNotExists().Column("kind").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.ProgressDefinition)(nil)).Index("index_progress_definition_category_period").IfNotExists().Column("category", "period").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertProgressDefinitions(ctx context.Context, db *bun.DB, definitions []models.ProgressDefinition) error {
	_, err := db.NewInsert().Model(&definitions).On("CONFLICT (id) DO NOTHING").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func GetProgressDefinition(ctx context.Context, db bun.IDB, id string) (*models.ProgressDefinition, error) {
	var definition models.ProgressDefinition
	err := db.NewSelect().Model(&definition).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &definition, nil
}

func GetActiveDefinitionsByKind(ctx context.Context, db bun.IDB, kind models.EventKind) ([]models.ProgressDefinition, error) {
	var definitions []models.ProgressDefinition
	err := db.NewSelect().Model(&definitions).
		Where("kind = ?", kind).
		Where("active = ?", true).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return definitions, nil
}

// GetQuestPool returns the active quest definitions for one period class,
// ordered by id so the seeded selection is stable.
func GetQuestPool(ctx context.Context, db bun.IDB, period string) ([]models.ProgressDefinition, error) {
	var definitions []models.ProgressDefinition
	err := db.NewSelect().Model(&definitions).
		Where("category = ?", models.DEFINITION_QUEST).
		Where("period = ?", period).
		Where("active = ?", true).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return definitions, nil
}

func GetActiveAchievements(ctx context.Context, db bun.IDB) ([]models.ProgressDefinition, error) {
	var definitions []models.ProgressDefinition
	err := db.NewSelect().Model(&definitions).
		Where("category = ?", models.DEFINITION_ACHIEVEMENT).
		Where("active = ?", true).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return definitions, nil
}
