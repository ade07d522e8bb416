// Package router maps HTTP routes onto handlers and assembles the
// middleware chains: public reads, authenticated counting routes and the
// admin surface.
package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/pdrinv/inventory-api/internal/config"
	"github.com/pdrinv/inventory-api/internal/handler"
	"github.com/pdrinv/inventory-api/internal/middleware"
)

// Handlers bundles every handler the route table needs.
type Handlers struct {
	Auth     *handler.AuthHandler
	Users    *handler.UserHandler
	Articles *handler.ArticleHandler
	Sessions *handler.SessionHandler
	Counts   *handler.CountHandler
	History  *handler.HistoryHandler
	Results  *handler.ResultHandler
	Sync     *handler.SyncHandler
}

// requestValidator adapts go-playground/validator to Echo's Validator
// interface so handlers can call c.Validate on bound DTOs.
type requestValidator struct {
	v *validator.Validate
}

func (rv *requestValidator) Validate(i interface{}) error {
	if err := rv.v.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// Register wires every route onto e.  Reads that are safe for any depot
// client stay public; everything else sits behind JWT auth, with counting
// mutations additionally gated on counting roles and administration on the
// admin role.  The Redis-backed limiter and response cache are applied
// where they pay off: the limiter on the whole authenticated surface, the
// cache on the hot catalog reads.
func Register(e *echo.Echo, cfg config.Config, h Handlers, rdb *redis.Client) {
	e.Validator = &requestValidator{v: validator.New()}

	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	e.GET("/healthz", handler.Health)

	// Unauthenticated auth operations.
	authGroup := e.Group("/v1/auth")
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/refresh", h.Auth.Refresh)

	// Public catalog reads, cached.
	pub := e.Group("/v1", cache)
	pub.GET("/articles", h.Articles.List)
	pub.GET("/articles/search", h.Articles.Search)
	pub.GET("/articles/:id", h.Articles.Get)
	pub.GET("/articles/numero/:numero", h.Articles.GetByNumero)

	// Authenticated surface: any valid account.
	api := e.Group("/v1", middleware.JWTAuth(cfg.JWTSecret), rateLimit)
	api.GET("/me", h.Auth.Me)
	api.POST("/auth/logout", h.Auth.Logout)
	api.POST("/me/password", h.Users.ChangePassword)

	api.GET("/sessions", h.Sessions.List)
	api.GET("/sessions/:id", h.Sessions.Get)
	api.GET("/sessions/:id/with-counts", h.Sessions.GetWithCounts)
	api.GET("/sessions/:id/statistics", h.Sessions.Statistics)
	api.GET("/sessions/:id/last-counted", h.Counts.LastPerUser)
	api.GET("/sessions/:id/results", h.Results.ListWithDetails)
	api.GET("/sessions/:id/variance-summary", h.Results.VarianceSummary)
	api.GET("/sessions/:id/results-summary", h.Results.ResultsSummary)
	api.GET("/sessions/:id/article-add-log", h.Results.ArticleAddLog)

	api.GET("/counts", h.Counts.List)
	api.GET("/counts/last", h.Counts.LastForMe)
	api.GET("/counts/:id", h.Counts.Get)

	api.GET("/history", h.History.List)
	api.GET("/history/detailed", h.History.ListDetailed)

	api.GET("/results", h.Results.List)
	api.GET("/results/:id", h.Results.Get)

	// Counting mutations: admins and round-bound counters.
	counting := api.Group("", middleware.RequireCounting())
	counting.POST("/counts", h.Counts.Submit)
	counting.PATCH("/counts/:id/delta", h.Counts.ApplyDelta)
	counting.PATCH("/counts/:id/correct", h.Counts.Correct)
	counting.POST("/sessions/:id/article-add-log", h.Results.ReportArticle)
	// Counters hit unknown articles on the floor; let them register the
	// entry instead of waiting for an admin or the next import.
	counting.POST("/articles", h.Articles.Create)

	// Administration.
	admin := api.Group("", middleware.RequirePrivileged())
	admin.POST("/sessions", h.Sessions.Create)
	admin.PATCH("/sessions/:id", h.Sessions.Update)
	admin.PATCH("/sessions/:id/status", h.Sessions.SetStatus)
	admin.DELETE("/sessions/:id", h.Sessions.Delete)

	admin.DELETE("/counts/:id", h.Counts.Delete)

	admin.POST("/results", h.Results.Reconcile)
	admin.PATCH("/results/:id", h.Results.Update)
	admin.DELETE("/results/:id", h.Results.Delete)

	admin.PATCH("/articles/:id", h.Articles.Update)
	admin.DELETE("/articles/:id", h.Articles.Delete)
	admin.DELETE("/articles/numero/:numero", h.Articles.DeleteByNumero)
	admin.POST("/sync/articles", h.Sync.SyncArticles)

	admin.POST("/users", h.Users.Create)
	admin.GET("/users", h.Users.List)
	admin.GET("/users/:id", h.Users.Get)
	admin.PATCH("/users/:id", h.Users.Update)
	admin.DELETE("/users/:id", h.Users.Delete)
}
