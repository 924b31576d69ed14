package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainEventValidate(t *testing.T) {
	assert.NoError(t, (&DomainEvent{Kind: EVENT_MATCH_WON, UserID: 7, Value: 1}).Validate())

	assert.Error(t, (&DomainEvent{Kind: "match_drawn", UserID: 7}).Validate())
	assert.Error(t, (&DomainEvent{Kind: EVENT_MATCH_WON}).Validate())
	assert.Error(t, (&DomainEvent{Kind: EVENT_MATCH_WON, UserID: 7, Value: -1}).Validate())
	assert.Error(t, (&DomainEvent{Kind: EVENT_WAGER_WON, UserID: 7, WagerNano: -1}).Validate())
}

func TestKnownEventKind(t *testing.T) {
	assert.True(t, KnownEventKind(EVENT_CARD_PLAYED))
	assert.False(t, KnownEventKind("deck_shuffled"))
}

func TestDefinitionMatches(t *testing.T) {
	ranked := "ranked"
	control := "control"

	plain := &ProgressDefinition{Kind: EVENT_MATCH_WON, Active: true}
	assert.True(t, plain.Matches(&DomainEvent{Kind: EVENT_MATCH_WON, UserID: 1, Value: 1}))
	assert.False(t, plain.Matches(&DomainEvent{Kind: EVENT_MATCH_LOST, UserID: 1, Value: 1}))

	inactive := &ProgressDefinition{Kind: EVENT_MATCH_WON, Active: false}
	assert.False(t, inactive.Matches(&DomainEvent{Kind: EVENT_MATCH_WON, UserID: 1, Value: 1}))

	modeBound := &ProgressDefinition{Kind: EVENT_MATCH_WON, Active: true, Mode: &ranked}
	assert.True(t, modeBound.Matches(&DomainEvent{Kind: EVENT_MATCH_WON, UserID: 1, Value: 1, Mode: "ranked"}))
	assert.False(t, modeBound.Matches(&DomainEvent{Kind: EVENT_MATCH_WON, UserID: 1, Value: 1, Mode: "casual"}))

	archetypeBound := &ProgressDefinition{Kind: EVENT_MATCH_WON, Active: true, Archetype: &control}
	assert.False(t, archetypeBound.Matches(&DomainEvent{Kind: EVENT_MATCH_WON, UserID: 1, Value: 1, Archetype: "aggro"}))
	assert.True(t, archetypeBound.Matches(&DomainEvent{Kind: EVENT_MATCH_WON, UserID: 1, Value: 1, Archetype: "control"}))
}

func TestPurchaseStatusTerminal(t *testing.T) {
	assert.False(t, PurchaseStatusTerminal(PURCHASE_AWAITING_SIGNATURE))
	assert.False(t, PurchaseStatusTerminal(PURCHASE_SUBMITTED))
	assert.True(t, PurchaseStatusTerminal(PURCHASE_CONFIRMED))
	assert.True(t, PurchaseStatusTerminal(PURCHASE_FAILED))
	assert.True(t, PurchaseStatusTerminal(PURCHASE_EXPIRED))
}
