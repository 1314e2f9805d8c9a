// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"mortgage-funnel/internal/common/config"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPool = 10

// RedisClient backs the shared rate-limit counter, the wizard session store
// and the pending-submission ledger.
type RedisClient struct {
	Client *redis.Client
}

// NewRedis builds a client from a URL when one is configured, otherwise from
// address, password and db. Nothing is dialled until the first command.
func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	return &RedisClient{Client: redis.NewClient(opts)}, nil
}

func redisOptions(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	default:
		return nil, fmt.Errorf("redis address is empty")
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolSize = cfg.PoolSize
	if opts.PoolSize <= 0 {
		opts.PoolSize = defaultRedisPool
	}
	opts.MinIdleConns = opts.PoolSize / 2
	return opts, nil
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

// GetClient returns the underlying *redis.Client.
func (c *RedisClient) GetClient() *redis.Client {
	return c.Client
}
