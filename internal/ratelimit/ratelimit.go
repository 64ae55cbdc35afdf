package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore counts hits per key within the current fixed window and
// reports the count including the hit being recorded.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// FixedWindow rejects requests beyond a permit limit per window. There
// is no queueing: excess requests fail immediately.
type FixedWindow struct {
	store  CounterStore
	limit  int64
	window time.Duration
}

func NewFixedWindow(store CounterStore, limit int, window time.Duration) *FixedWindow {
	return &FixedWindow{store: store, limit: int64(limit), window: window}
}

// Allow records a hit for the key and reports whether it is within the
// permit limit. Store failures fail open so a broken counter backend
// cannot take order creation down with it.
func (l *FixedWindow) Allow(ctx context.Context, key string) bool {
	count, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		return true
	}
	return count <= l.limit
}

// Middleware applies the limiter per client address.
func (l *FixedWindow) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}

		if !l.Allow(r.Context(), host) {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// redisStore counts windows in Redis so the limit holds across
// replicas.
type redisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) CounterStore {
	return &redisStore{client: client}
}

func (s *redisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	windowKey := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().UnixNano()/int64(window))

	count, err := s.client.Incr(ctx, windowKey).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		// First hit of the window owns the expiry.
		if err := s.client.Expire(ctx, windowKey, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

// memoryStore is the single-process fallback used when Redis is not
// configured.
type memoryStore struct {
	mu      sync.Mutex
	counts  map[string]int64
	started map[string]time.Time
	now     func() time.Time
}

func NewMemoryStore() CounterStore {
	return &memoryStore{
		counts:  make(map[string]int64),
		started: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *memoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if started, ok := s.started[key]; !ok || now.Sub(started) >= window {
		s.started[key] = now
		s.counts[key] = 0
	}
	s.counts[key]++
	return s.counts[key], nil
}
