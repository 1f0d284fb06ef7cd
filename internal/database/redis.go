package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// OpenRedis connects to the Redis server in cfg.RedisURL. It returns nil
// without error when no URL is configured.
func OpenRedis(cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
