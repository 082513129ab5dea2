package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pawfinder/pawfinder-api/internal/config"
	"github.com/pawfinder/pawfinder-api/internal/handler"
	"github.com/pawfinder/pawfinder-api/internal/middleware"
	"github.com/pawfinder/pawfinder-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	PostHandler     *handler.PostHandler
	CommentHandler  *handler.CommentHandler
	FavoriteHandler *handler.FavoriteHandler
	ChatHandler     *handler.ChatHandler
	JWTMiddleware   fiber.Handler
	DB              *gorm.DB
	Redis           *redis.Client
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.DB, deps.Redis))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	protected := app.Group("/api/v1", jwtMiddleware)

	// Posts: the feed and single post reads are public, mutations are not.
	if deps.PostHandler != nil {
		deps.PostHandler.RegisterPublic(api)
		uploadLimiter := middleware.RateLimit("photo-upload", cfg.MessageRateLimit, cfg.MessageRateWindow)
		deps.PostHandler.RegisterProtected(protected, uploadLimiter)
	}

	if deps.CommentHandler != nil {
		deps.CommentHandler.RegisterPublic(api)
		deps.CommentHandler.RegisterProtected(protected)
	}

	if deps.FavoriteHandler != nil {
		deps.FavoriteHandler.Register(protected)
	}

	if deps.ChatHandler != nil {
		messageLimiter := middleware.RateLimit("chat-message", cfg.MessageRateLimit, cfg.MessageRateWindow)
		deps.ChatHandler.Register(protected, messageLimiter)
	}
}
