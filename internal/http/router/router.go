package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/sandbox/core/config"
	"basegraph.app/sandbox/internal/http/handler"
	"basegraph.app/sandbox/internal/http/middleware"
	"basegraph.app/sandbox/internal/service"
)

type RouterConfig struct {
	RateLimits config.RateLimitConfig
	Limiter    middleware.Limiter
	Health     map[string]handler.Pinger
}

// Limits groups the per-area rate limit middlewares.
type Limits struct {
	Workspace gin.HandlerFunc
	Table     gin.HandlerFunc
	Query     gin.HandlerFunc
	Hint      gin.HandlerFunc
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	metaHandler := handler.NewMetaHandler(cfg.Health)
	router.GET("/health", metaHandler.Health)

	limits := newLimits(cfg)

	api := router.Group("/api")
	if cfg.RateLimits.Enabled {
		api.Use(middleware.RateLimit(cfg.Limiter, rule("api", cfg.RateLimits.API)))
	}
	{
		api.GET("/data-types", metaHandler.DataTypes)

		workspaceHandler := handler.NewWorkspaceHandler(services.Workspaces())
		WorkspaceRouter(api, workspaceHandler, limits)

		tableHandler := handler.NewTableHandler(services.Tables())
		TableRouter(api.Group("/workspace/:id"), tableHandler, limits)

		queryHandler := handler.NewQueryHandler(services.Queries())
		QueryRouter(api.Group("/workspace/:id"), queryHandler, limits)

		hintHandler := handler.NewHintHandler(services.Hints())
		HintRouter(api.Group("/hint"), hintHandler, limits)
	}
}

func newLimits(cfg RouterConfig) Limits {
	if !cfg.RateLimits.Enabled {
		pass := func(c *gin.Context) { c.Next() }
		return Limits{Workspace: pass, Table: pass, Query: pass, Hint: pass}
	}
	return Limits{
		Workspace: middleware.RateLimit(cfg.Limiter, rule("workspace", cfg.RateLimits.Workspace)),
		Table:     middleware.RateLimit(cfg.Limiter, rule("table", cfg.RateLimits.Table)),
		Query:     middleware.RateLimit(cfg.Limiter, rule("query", cfg.RateLimits.Query)),
		Hint:      middleware.RateLimit(cfg.Limiter, rule("hint", cfg.RateLimits.Hint)),
	}
}

func rule(name string, l config.Limit) middleware.Rule {
	return middleware.Rule{Name: name, Max: l.Max, Window: l.Window}
}
