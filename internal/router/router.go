// Package router wires the HTTP handlers onto their routes and
// applies the middleware each group needs.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/prodicts/prodicts-backend/internal/config"
	"github.com/prodicts/prodicts-backend/internal/handler"
	"github.com/prodicts/prodicts-backend/internal/middleware"
	"github.com/prodicts/prodicts-backend/internal/token"
)

// Deps carries everything the route tree needs.
type Deps struct {
	Cfg       config.Config
	Tokens    *token.Issuer
	Redis     *redis.Client // nil disables rate limiting and caching
	Auth      *handler.AuthHandler
	Users     *handler.UserHandler
	Groups    *handler.FlashCardGroupHandler
	Cards     *handler.FlashCardHandler
	Podcasts  *handler.PodcastHandler
	Admin     *handler.PodcastAdminHandler
	AppConfig *handler.AppConfigHandler
}

// Register mounts the full route tree on e.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	api := e.Group("/api")

	// Auth endpoints: the unauthenticated ones are rate limited, the
	// rest require a valid token of either identity kind.
	authGroup := api.Group("/auth")
	limited := authGroup.Group("", middleware.NewTokenBucket(d.Cfg.RateLimit, d.Redis))
	limited.POST("/register", d.Auth.Register)
	limited.POST("/login", d.Auth.Login)
	limited.POST("/oauth", d.Auth.OAuth)
	limited.POST("/anonymous", d.Auth.Anonymous)
	limited.POST("/refresh", d.Auth.Refresh)

	authed := authGroup.Group("", middleware.Auth(d.Tokens))
	authed.POST("/logout", d.Auth.Logout)
	authed.GET("/me", d.Auth.Me)
	authed.POST("/sync", d.Auth.Sync)
	authed.POST("/upgrade", d.Auth.Upgrade)

	// Profile routes are registered-only; anonymous sessions have no
	// user record to manage.
	users := api.Group("/users", middleware.Auth(d.Tokens), middleware.RequireRegistered())
	users.GET("/me", d.Users.Get)
	users.PATCH("/me", d.Users.Update)
	users.DELETE("/me", d.Users.Delete)

	// Flashcards accept both identity kinds; ownership is scoped to
	// whichever the token carries.
	groups := api.Group("/flashcard-groups", middleware.Auth(d.Tokens))
	groups.POST("", d.Groups.Create)
	groups.GET("", d.Groups.List)
	groups.GET("/:id", d.Groups.Get)
	groups.PATCH("/:id", d.Groups.Update)
	groups.DELETE("/:id", d.Groups.Delete)
	groups.GET("/:id/flashcards", d.Cards.ListByGroup)

	cards := api.Group("/flashcards", middleware.Auth(d.Tokens))
	cards.POST("", d.Cards.Create)
	cards.GET("/due", d.Cards.ListDue)
	cards.PATCH("/:id", d.Cards.Update)
	cards.POST("/:id/review", d.Cards.Review)
	cards.DELETE("/:id", d.Cards.Delete)

	// Public catalogue behind the response cache.
	public := api.Group("/podcasts", middleware.NewRedisCache(d.Cfg.Cache, d.Redis))
	public.GET("/series", d.Podcasts.ListSeries)
	public.GET("/series/:id", d.Podcasts.GetSeries)
	public.GET("/seasons/:id/episodes", d.Podcasts.ListEpisodes)
	public.GET("/episodes/:id", d.Podcasts.GetEpisode)

	admin := api.Group("/admin/podcasts", middleware.Auth(d.Tokens), middleware.RequireRole("Admin"))
	admin.POST("/series", d.Admin.CreateSeries)
	admin.PATCH("/series/:id", d.Admin.UpdateSeries)
	admin.DELETE("/series/:id", d.Admin.DeleteSeries)
	admin.POST("/seasons", d.Admin.CreateSeason)
	admin.PATCH("/seasons/:id", d.Admin.UpdateSeason)
	admin.DELETE("/seasons/:id", d.Admin.DeleteSeason)
	admin.POST("/episodes", d.Admin.CreateEpisode)
	admin.PATCH("/episodes/:id", d.Admin.UpdateEpisode)
	admin.DELETE("/episodes/:id", d.Admin.DeleteEpisode)
	admin.POST("/episodes/:id/audio", d.Admin.UploadAudio)
	admin.POST("/episodes/:id/thumbnail", d.Admin.UploadThumbnail)
	admin.GET("/episodes/:id/status", d.Admin.Status)

	api.GET("/app-config", d.AppConfig.Get)
	api.PUT("/app-config", d.AppConfig.Update,
		middleware.Auth(d.Tokens), middleware.RequireRole("Admin"))

	// Processed renditions are served straight from the public root.
	e.Static("/media", d.Cfg.PublicDir)
}
