// Package ratelimit caps landing submissions per caller IP per calendar day.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"mortgage-funnel/internal/common/logger"
	"mortgage-funnel/internal/common/metrics"
)

// DefaultLimit is the daily attempt allowance per IP.
const DefaultLimit = 5

// counterTTL outlives the calendar day the key names.
const counterTTL = 48 * time.Hour

var ErrLimitExceeded = errors.New("RATE_LIMIT_EXCEEDED")

// Counter increments the attempt count stored under key.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
}

// Key is `<ip>_<YYYY-MM-DD>` in UTC.
func Key(ip string, now time.Time) string {
	return ip + "_" + now.UTC().Format("2006-01-02")
}

type Limiter struct {
	counter Counter
	limit   int
	now     func() time.Time
	logger  logger.Logger
}

func New(counter Counter, limit int, log logger.Logger) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Limiter{
		counter: counter,
		limit:   limit,
		now:     time.Now,
		logger:  logger.Component(log, "rate-limiter"),
	}
}

// WithClock replaces the time source.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow counts one attempt for ip. Counter failures let the attempt through.
func (l *Limiter) Allow(ctx context.Context, ip string) error {
	key := Key(ip, l.now())
	n, err := l.counter.Incr(ctx, key)
	if err != nil {
		l.logger.Warn("rate limit counter unavailable", map[string]interface{}{
			"error": err.Error(),
			"key":   key,
		})
		return nil
	}
	if n > int64(l.limit) {
		metrics.SubmissionsRateLimited.Inc()
		l.logger.Warn("daily submission limit reached", map[string]interface{}{
			"ip":       ip,
			"attempts": n,
		})
		return fmt.Errorf("%w: %d attempts today", ErrLimitExceeded, n)
	}
	return nil
}

// RedisCounter keeps counters in Redis so every API instance shares them.
type RedisCounter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisCounter(client redis.UniversalClient) *RedisCounter {
	return &RedisCounter{client: client, prefix: "ratelimit:landing:"}
}

func (c *RedisCounter) Incr(ctx context.Context, key string) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, c.prefix+key)
	pipe.Expire(ctx, c.prefix+key, counterTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("rate limit incr: %w", err)
	}
	return incr.Val(), nil
}

// MemoryCounter is a single-process counter. Keys from earlier days are
// dropped when the day changes.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	day    string
	now    func() time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]int64), now: time.Now}
}

func (c *MemoryCounter) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if day := c.now().UTC().Format("2006-01-02"); day != c.day {
		c.counts = make(map[string]int64)
		c.day = day
	}
	c.counts[key]++
	return c.counts[key], nil
}
