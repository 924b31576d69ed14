package services

import (
	"context"
	"strings"
	"sync"

	"github.com/mroth/weightedrand/v2"
	"github.com/samber/do"
	"github.com/uptrace/bun"

	"arcana/internal/datastore"
)

// ServiceGacha opens card packs: a weighted pick over the cards in a pack
// pool, weights coming from the seeded card table.
type ServiceGacha struct {
	container *do.Injector

	mu       sync.Mutex
	choosers map[string]*weightedrand.Chooser[string, int]
}

func NewServiceGacha(container *do.Injector) (*ServiceGacha, error) {
	return &ServiceGacha{
		container: container,
		choosers:  map[string]*weightedrand.Chooser[string, int]{},
	}, nil
}

// OpenPack picks one card id from the pack pool. Pack ids are archetype
// slugs; the special pack "any" draws from the whole card table.
func (service *ServiceGacha) OpenPack(ctx context.Context, db bun.IDB, packID string) (string, error) {
	chooser, err := service.chooser(ctx, db, packID)
	if err != nil {
		return "", err
	}

	return chooser.Pick(), nil
}

func (service *ServiceGacha) chooser(ctx context.Context, db bun.IDB, packID string) (*weightedrand.Chooser[string, int], error) {
	service.mu.Lock()
	defer service.mu.Unlock()

	if chooser, ok := service.choosers[packID]; ok {
		return chooser, nil
	}

	cards, err := datastore.ListCards(ctx, db)
	if err != nil {
		return nil, err
	}

	var choices []weightedrand.Choice[string, int]
	for _, card := range cards {
		if packID != "any" && !strings.EqualFold(card.Archetype, packID) {
			continue
		}
		choices = append(choices, weightedrand.NewChoice(card.ID, card.Weight))
	}

	chooser, err := weightedrand.NewChooser(choices...)
	if err != nil {
		return nil, err
	}

	service.choosers[packID] = chooser
	return chooser, nil
}
