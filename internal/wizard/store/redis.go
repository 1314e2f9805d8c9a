package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "wizard:session:"

// Redis keeps one flow attempt in a hash, so several terminals or hosts can
// share it. The hash expires ttl after the last write.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedis stores the answers of namespace under wizard:session:<namespace>.
func NewRedis(client *redis.Client, namespace string, ttl time.Duration) *Redis {
	return &Redis{client: client, key: redisKeyPrefix + namespace, ttl: ttl}
}

func (r *Redis) Key() string {
	return r.key
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.HGet(ctx, r.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis hget %s: %w", key, err)
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.key, key, value)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis hset %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.HDel(ctx, r.key, keys...).Err(); err != nil {
		return fmt.Errorf("redis hdel: %w", err)
	}
	return nil
}
