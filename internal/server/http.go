package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"

	"github.com/penline/penline/internal/cache"
	"github.com/penline/penline/internal/config"
	"github.com/penline/penline/internal/database"
	"github.com/penline/penline/internal/domain/session"
	"github.com/penline/penline/internal/metrics"
	"github.com/penline/penline/internal/migrations"
	"github.com/penline/penline/internal/utils"
)

const shutdownTimeout = 10 * time.Second

// Start connects the stores, runs migrations, and serves HTTP together with the session sweeper
// until ctx is cancelled or one of them fails.
func Start(ctx context.Context, cfg *config.Config, env *config.Environment) error {
	InitLogger(cfg.Logging.Level)

	if err := database.ConnectDB(cfg); err != nil {
		slog.Error("Failed to connect to database", "error", err)
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Warn("Failed to close database", "error", err)
		}
	}()
	slog.Info("Database connected successfully")

	if err := migrations.RunMigrations(cfg); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return err
	}
	slog.Info("Migrations completed successfully")

	if err := cache.ConnectRedis(&cfg.Redis); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		return err
	}
	defer func() {
		if err := cache.CloseRedis(); err != nil {
			slog.Warn("Failed to close Redis", "error", err)
		}
	}()

	metrics.Register(nil)
	slog.Info("Environment loaded", "environment", env.Environment.String())

	deps, err := BuildDependencies(cfg, env, database.DB)
	if err != nil {
		slog.Error("Failed to build services", "error", err)
		return err
	}
	if cache.RedisClient != nil {
		deps.LimiterStorage = cache.NewStorage(cache.RedisClient, cache.LimiterPrefix)
	}

	interval, err := cfg.Auth.SweepInterval()
	if err != nil {
		return err
	}
	sweeper := session.NewSweeper(deps.Sessions, interval)

	app := NewApp(cfg, deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := cfg.Server.Address()
		slog.Info("Server starting",
			"address", addr,
			"app", cfg.App.Name,
			"version", cfg.App.Version,
		)
		if err := app.Listen(addr); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Server shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Server stopped with error", "error", err)
		return err
	}

	slog.Info("Server stopped")
	return nil
}

// NewApp builds the fiber application with the global middleware stack and all routes
func NewApp(cfg *config.Config, deps *Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: utils.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(requestCounter())
	app.Use(helmet.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(cfg.Server.AllowedOrigins),
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: len(cfg.Server.AllowedOrigins) > 0,
		ExposeHeaders:    "Content-Length",
		MaxAge:           3600,
	}))

	SetupRoutes(app, cfg, deps)
	return app
}

// allowedOrigins joins the configured origins, falling back to "*" which fiber refuses to combine
// with credentials
func allowedOrigins(origins []string) string {
	if len(origins) == 0 {
		return "*"
	}
	return strings.Join(origins, ",")
}

// requestCounter records every response in metrics.HTTPRequests. Errors are rendered here so the
// recorded status is the one the client sees.
func requestCounter() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		route := c.Route().Path
		metrics.HTTPRequests.WithLabelValues(
			c.Method(),
			route,
			strconv.Itoa(c.Response().StatusCode()),
		).Inc()
		return nil
	}
}

// InitLogger installs a text slog handler on stdout as the default logger
func InitLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	slog.SetDefault(slog.New(handler))
}
