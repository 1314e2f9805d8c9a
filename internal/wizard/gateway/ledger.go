package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"mortgage-funnel/internal/common/logger"
	"mortgage-funnel/internal/wizard"
)

// PendingSubmission is a payload the API never confirmed.
type PendingSubmission struct {
	ID        string                 `json:"id"`
	SessionID string                 `json:"sessionId,omitempty"`
	Payload   map[string]interface{} `json:"payload"`
	Error     string                 `json:"error"`
	FailedAt  time.Time              `json:"failedAt"`
}

// PendingLedger records submissions that still need to reach the API.
type PendingLedger interface {
	Append(ctx context.Context, p PendingSubmission) error
	List(ctx context.Context) ([]PendingSubmission, error)
	Remove(ctx context.Context, id string) error
}

// MemoryLedger keeps entries for the life of the process.
type MemoryLedger struct {
	mu      sync.Mutex
	entries []PendingSubmission
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

func (l *MemoryLedger) Append(_ context.Context, p PendingSubmission) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, p)
	return nil
}

func (l *MemoryLedger) List(_ context.Context) ([]PendingSubmission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]PendingSubmission, len(l.entries))
	copy(out, l.entries)
	return out, nil
}

func (l *MemoryLedger) Remove(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

// LedgerKey is the Redis list pending submissions are pushed onto.
const LedgerKey = "pending_submissions"

// RedisLedger keeps entries in a Redis list shared by every client.
type RedisLedger struct {
	client *redis.Client
	key    string
	log    logger.Logger
}

func NewRedisLedger(client *redis.Client, log logger.Logger) *RedisLedger {
	return &RedisLedger{client: client, key: LedgerKey, log: logger.Component(log, "ledger")}
}

func (l *RedisLedger) Append(ctx context.Context, p PendingSubmission) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode pending submission: %w", err)
	}
	if err := l.client.RPush(ctx, l.key, data).Err(); err != nil {
		return fmt.Errorf("redis rpush: %w", err)
	}
	return nil
}

func (l *RedisLedger) List(ctx context.Context) ([]PendingSubmission, error) {
	raw, err := l.client.LRange(ctx, l.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}
	out := make([]PendingSubmission, 0, len(raw))
	for i, r := range raw {
		var p PendingSubmission
		if err := json.Unmarshal([]byte(r), &p); err != nil {
			// Left in place so it can be inspected with LRANGE.
			l.log.Warn("skipping undecodable pending submission", map[string]interface{}{
				"key":   l.key,
				"index": i,
				"error": err.Error(),
			})
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (l *RedisLedger) Remove(ctx context.Context, id string) error {
	raw, err := l.client.LRange(ctx, l.key, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("redis lrange: %w", err)
	}
	for _, r := range raw {
		var p PendingSubmission
		if err := json.Unmarshal([]byte(r), &p); err != nil || p.ID != id {
			continue
		}
		if err := l.client.LRem(ctx, l.key, 1, r).Err(); err != nil {
			return fmt.Errorf("redis lrem: %w", err)
		}
		return nil
	}
	return nil
}

// StoreLedger keeps entries as one JSON array under LedgerKey in a session
// store. Tracker.Clear leaves that key alone, so entries outlive the flow.
type StoreLedger struct {
	mu    sync.Mutex
	store wizard.SessionStore
}

func NewStoreLedger(store wizard.SessionStore) *StoreLedger {
	return &StoreLedger{store: store}
}

func (l *StoreLedger) read(ctx context.Context) ([]PendingSubmission, error) {
	raw, ok, err := l.store.Get(ctx, LedgerKey)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var out []PendingSubmission
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	return out, nil
}

func (l *StoreLedger) write(ctx context.Context, entries []PendingSubmission) error {
	if len(entries) == 0 {
		return l.store.Delete(ctx, LedgerKey)
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	return l.store.Set(ctx, LedgerKey, string(data))
}

func (l *StoreLedger) Append(ctx context.Context, p PendingSubmission) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries, err := l.read(ctx)
	if err != nil {
		return err
	}
	return l.write(ctx, append(entries, p))
}

func (l *StoreLedger) List(ctx context.Context) ([]PendingSubmission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read(ctx)
}

func (l *StoreLedger) Remove(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries, err := l.read(ctx)
	if err != nil {
		return err
	}
	for i, e := range entries {
		if e.ID == id {
			return l.write(ctx, append(entries[:i], entries[i+1:]...))
		}
	}
	return nil
}
