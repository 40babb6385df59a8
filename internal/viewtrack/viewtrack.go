// Package viewtrack remembers which viewing sessions already counted a view
// so each session bumps a listing's counter at most once per TTL window.
package viewtrack

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Tracker interface {
	// FirstView reports whether session has not viewed listingID yet, and
	// records the view.
	FirstView(ctx context.Context, session string, listingID uint64) (bool, error)
}

type RedisTracker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTracker(ctx context.Context, addr string, ttl time.Duration) (*RedisTracker, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &RedisTracker{client: client, ttl: ttl}, nil
}

func (t *RedisTracker) FirstView(ctx context.Context, session string, listingID uint64) (bool, error) {
	key := fmt.Sprintf("listing:view:%d:%s", listingID, session)
	return t.client.SetNX(ctx, key, 1, t.ttl).Result()
}

func (t *RedisTracker) Close() error {
	return t.client.Close()
}

// MemoryTracker is the single-process fallback.
type MemoryTracker struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	seen  map[string]time.Time
	sweep int
}

func NewMemoryTracker(ttl time.Duration) *MemoryTracker {
	return &MemoryTracker{ttl: ttl, now: time.Now, seen: make(map[string]time.Time)}
}

func (t *MemoryTracker) FirstView(_ context.Context, session string, listingID uint64) (bool, error) {
	key := fmt.Sprintf("%d:%s", listingID, session)
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.sweep++
	if t.sweep >= 1024 {
		t.sweep = 0
		for k, exp := range t.seen {
			if now.After(exp) {
				delete(t.seen, k)
			}
		}
	}
	if exp, ok := t.seen[key]; ok && now.Before(exp) {
		return false, nil
	}
	t.seen[key] = now.Add(t.ttl)
	return true, nil
}
