package handler

import (
	"net/http"

	"arcana/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/do"
)

type Config struct {
	Container *do.Injector
	Mode      string
	Origins   []string
}

func New(cfg *Config) (http.Handler, error) {
	r := echo.New()
	r.Pre(middleware.RemoveTrailingSlash())
	if cfg.Mode == "debug" {
		r.Debug = true
		pprof.Register(r)
	}

	r.JSONSerializer = httpx.SegmentJSONSerializer{}
	r.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339}\t${method}\t${uri}\t${status}\t${latency_human}\n",
	}))
	r.Use(middleware.Recover())

	r.GET("", func(c echo.Context) error {
		return c.String(http.StatusOK, "🃏")
	})

	routesAPIv1 := r.Group("/api/v1")
	{
		bot, err := do.Invoke[*services.Bot](cfg.Container)
		if err != nil {
			return nil, err
		}
		authentication, err := do.Invoke[*services.Authentication](cfg.Container)
		if err != nil {
			return nil, err
		}
		cors := middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.Origins,
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			AllowCredentials: true,
			MaxAge:           60 * 60,
		})

		routesAPIv1.Use(cors)

		// /user/me authenticates with raw mini-app init data and mints the
		// JWT everything else uses
		routesAPIv1Me := routesAPIv1.Group("/user/me")
		routesAPIv1Me.Use(Authn(bot))
		{
			u := groupUser{cfg.Container}
			routesAPIv1Me.GET("", u.Me)
		}

		routesAPIv1.Use(Authn(authentication)) // Authn will NOT terminate unauthenticated request.

		routesAPIv1User := routesAPIv1.Group("/user")
		{
			u := groupUser{cfg.Container}
			routesAPIv1User.POST("/connect/ton", u.ConnectTONWallet)
			routesAPIv1User.GET("/cards", u.GetCards)
			routesAPIv1User.GET("/ledger", u.GetLedgerHistory)
		}

		q := groupQuest{cfg.Container}
		routesAPIv1.GET("/quests", q.GetQuests)
		routesAPIv1.POST("/quest/:progress-id/claim", q.ClaimQuest)
		routesAPIv1.GET("/achievements", q.GetAchievements)

		bp := groupBattlePass{cfg.Container}
		routesAPIv1.GET("/season", bp.GetActiveSeason)
		routesAPIv1.GET("/season/:season/rewards", bp.GetTierRewards)
		routesAPIv1.GET("/season/:season/progress", bp.GetProgress)
		routesAPIv1.POST("/season/:season/claim/:tier/:track", bp.ClaimTierReward)
		routesAPIv1.POST("/season/:season/claim-all", bp.ClaimAll)
		routesAPIv1.POST("/season/:season/premium/gems", bp.PurchasePremiumWithGems)
		routesAPIv1.GET("/season/:season/leaderboard", bp.GetLeaderboard)

		p := groupPurchase{cfg.Container}
		routesAPIv1.POST("/season/:season/premium/ton", p.Initiate)
		routesAPIv1.POST("/purchase/:purchase/submit", p.Submit)
		routesAPIv1.POST("/purchase/:purchase/cancel", p.Cancel)
		routesAPIv1.GET("/purchase/:purchase", p.Show)
		routesAPIv1.GET("/purchases", p.List)

		e := groupEvent{cfg.Container}
		routesAPIv1.POST("/events", e.Dispatch)
	}

	return r, nil
}
