package handler

import (
	"arcana/internal/models"
	"arcana/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupEvent struct {
	container *do.Injector
}

// Dispatch accepts a gameplay outcome and enqueues it for the worker. The
// response only acknowledges enqueueing; reward effects land asynchronously
// and must be re-queried.
func (gr *groupEvent) Dispatch(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var event models.DomainEvent
	if err := c.Bind(&event); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Validation))
	}
	// events can only be reported for the authenticated user
	event.UserID = user.ID

	serviceEvents, err := do.Invoke[*services.ServiceEvents](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	if err := serviceEvents.Dispatch(ctx, &event); err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, "queued", nil)
}
