package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"arcana/internal/models"
)

type captureScheduler struct {
	operation string
	payload   interface{}
	calls     int
}

func (s *captureScheduler) Schedule(ctx context.Context, operation string, payload interface{}, delay time.Duration) error {
	s.operation = operation
	s.payload = payload
	s.calls++
	return nil
}

func TestDispatchAssignsEventID(t *testing.T) {
	scheduler := &captureScheduler{}
	service := &ServiceEvents{scheduler: scheduler}

	event := &models.DomainEvent{Kind: models.EVENT_MATCH_WON, UserID: 7, Value: 1, XP: 10}
	err := service.Dispatch(context.Background(), event)
	assert.NoError(t, err)

	assert.Equal(t, 1, scheduler.calls)
	assert.Equal(t, TASK_EVENT_DISPATCH, scheduler.operation)
	// the id is what keys the worker's per-group receipts, so a redelivered
	// task cannot re-run a group that already committed
	assert.NotEmpty(t, event.EventID)
}

func TestDispatchKeepsCallerEventID(t *testing.T) {
	scheduler := &captureScheduler{}
	service := &ServiceEvents{scheduler: scheduler}

	event := &models.DomainEvent{EventID: "evt-1", Kind: models.EVENT_MATCH_WON, UserID: 7, Value: 1}
	err := service.Dispatch(context.Background(), event)
	assert.NoError(t, err)
	assert.Equal(t, "evt-1", event.EventID)
}

func TestDispatchDropsUnknownKind(t *testing.T) {
	scheduler := &captureScheduler{}
	service := &ServiceEvents{scheduler: scheduler}

	event := &models.DomainEvent{Kind: "tournament_won", UserID: 7, Value: 1}
	err := service.Dispatch(context.Background(), event)
	assert.NoError(t, err)
	assert.Equal(t, 0, scheduler.calls)
}

func TestDispatchRejectsInvalidEvent(t *testing.T) {
	scheduler := &captureScheduler{}
	service := &ServiceEvents{scheduler: scheduler}

	event := &models.DomainEvent{Kind: models.EVENT_MATCH_WON, Value: 1}
	err := service.Dispatch(context.Background(), event)
	assert.Error(t, err)
	assert.Equal(t, 0, scheduler.calls)
}
