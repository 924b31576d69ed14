package handler

import (
	"arcana/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupPurchase struct {
	container *do.Injector
}

// Initiate starts a token-paid premium purchase and returns the transfer the
// wallet must sign.
func (gr *groupPurchase) Initiate(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	servicePurchase, err := do.Invoke[*services.ServicePurchase](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	transfer, purchase, err := servicePurchase.Initiate(ctx, user, c.Param("season"))
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, map[string]interface{}{
		"transfer": transfer,
		"purchase": purchase,
	}, nil)
}

func (gr *groupPurchase) Submit(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload struct {
		Signature string `json:"signature"`
	}
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Validation))
	}

	servicePurchase, err := do.Invoke[*services.ServicePurchase](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	purchase, err := servicePurchase.Submit(ctx, user, c.Param("purchase"), payload.Signature)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, purchase, nil)
}

func (gr *groupPurchase) Cancel(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	servicePurchase, err := do.Invoke[*services.ServicePurchase](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	if err := servicePurchase.Cancel(ctx, user, c.Param("purchase")); err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, "ok", nil)
}

// Show is the status-poll endpoint; async confirmation outcomes are only
// visible here.
func (gr *groupPurchase) Show(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	servicePurchase, err := do.Invoke[*services.ServicePurchase](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	purchase, err := servicePurchase.GetPurchase(ctx, user, c.Param("purchase"))
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, purchase, nil)
}

func (gr *groupPurchase) List(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	servicePurchase, err := do.Invoke[*services.ServicePurchase](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	purchases, err := servicePurchase.ListPurchases(ctx, user)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, purchases, nil)
}
