package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"

	"github.com/penline/penline/internal/config"
	"github.com/penline/penline/internal/domain/admin"
	"github.com/penline/penline/internal/domain/auth"
	"github.com/penline/penline/internal/domain/session"
	"github.com/penline/penline/internal/domain/user"
	"github.com/penline/penline/internal/metrics"
	"github.com/penline/penline/internal/utils"
)

// Dependencies holds the services the routes are built from
type Dependencies struct {
	Users    user.Service
	Sessions session.Repository
	Codec    *auth.TokenCodec

	// LimiterStorage backs the login throttle; nil keeps counters in memory
	LimiterStorage fiber.Storage
}

// BuildDependencies creates repositories, services and the token codec for db.
// It fails when no usable signing key can be resolved.
func BuildDependencies(cfg *config.Config, env *config.Environment, db *gorm.DB) (*Dependencies, error) {
	keyStore, err := auth.BuildKeyStore(&cfg.Auth, env)
	if err != nil {
		return nil, fmt.Errorf("failed to load keys: %w", err)
	}

	lifetime, err := cfg.Auth.Lifetime()
	if err != nil {
		return nil, err
	}

	slog.Debug("Token codec ready", "active_kid", keyStore.ActiveKid, "token_lifetime", lifetime)

	return &Dependencies{
		Users:    user.NewService(user.NewRepository(db)),
		Sessions: session.NewRepository(db),
		Codec:    auth.NewTokenCodec(keyStore, lifetime),
	}, nil
}

// SetupRoutes mounts the API under /v1 behind the authentication gate and exposes /metrics.
// Only logout bypasses the gate.
func SetupRoutes(app *fiber.App, cfg *config.Config, deps *Dependencies) {
	gate := auth.NewGate(deps.Users, deps.Sessions, deps.Codec)
	authService := auth.NewService(deps.Users, deps.Sessions, deps.Codec)
	authHandler := auth.NewHandler(authService, deps.Users)
	adminHandler := admin.NewHandler(deps.Users, authService)

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// Logout verifies the token itself and must succeed after the session is already gone,
	// so it is registered ahead of the gate.
	app.Post("/v1/auth/logout", authHandler.Logout)

	api := app.Group("/v1", auth.Middleware(gate))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	})

	throttle := loginLimiter(cfg.Server.RateLimit, deps.LimiterStorage)

	authGroup := api.Group("/auth")
	authGroup.Post("/register", throttle, authHandler.Register)
	authGroup.Post("/login", throttle, authHandler.Login)

	api.Get("/users/me", auth.RequireAuthenticated(), authHandler.Me)

	adminGroup := api.Group("/admin/users", auth.RequireCapability(user.CapManageUsers))
	adminGroup.Get("/", adminHandler.ListUsers)
	adminGroup.Get("/:id", adminHandler.GetUser)
	adminGroup.Patch("/:id/status", adminHandler.UpdateStatus)
	adminGroup.Patch("/:id/role", adminHandler.UpdateRole)
	adminGroup.Delete("/:id/session", adminHandler.RevokeSession)
}

func loginLimiter(cfg config.RateLimitConfig, storage fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        cfg.Max,
		Expiration: time.Duration(cfg.Expiration) * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.ErrorResponse(c, utils.ErrTooManyRequests)
		},
		Storage: storage,
	})
}
