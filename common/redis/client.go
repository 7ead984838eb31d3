package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/kmallmaperez/geocore/common/config"

	"github.com/go-redis/redis/v8"
)

// Client aliases the go-redis client so callers need not import it directly.
type Client = redis.Client

const defaultConnectTimeout = 3 * time.Second

// NewRedisClient creates a client from cfg. It does not dial.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// Connect creates a client and pings it, bounded by cfg.DialTimeout.
// The client is closed when the ping fails.
func Connect(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := NewRedisClient(cfg)
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}
