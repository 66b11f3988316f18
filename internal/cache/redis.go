package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/penline/penline/internal/config"
)

// RedisClient is the global Redis client, nil when Redis is not configured
var RedisClient *redis.Client

// NewClient creates a client for cfg and pings it with a 5 second timeout
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// ConnectRedis initializes RedisClient. It is a no-op when no Redis host is configured.
func ConnectRedis(cfg *config.RedisConfig) error {
	if !cfg.Enabled() {
		slog.Info("Redis not configured, login throttling uses in-memory storage")
		return nil
	}

	client, err := NewClient(context.Background(), cfg)
	if err != nil {
		return err
	}

	RedisClient = client
	slog.Info("Redis connected successfully", "address", cfg.Address())
	return nil
}

// CloseRedis closes RedisClient if it is initialized
func CloseRedis() error {
	if RedisClient != nil {
		return RedisClient.Close()
	}
	return nil
}
