package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedWindowAllowsUpToLimit(t *testing.T) {
	l := NewFixedWindow(NewMemoryStore(), 2, time.Minute)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "client"))
	assert.True(t, l.Allow(ctx, "client"))
	assert.False(t, l.Allow(ctx, "client"))
	assert.False(t, l.Allow(ctx, "client"))
}

func TestFixedWindowIsPerKey(t *testing.T) {
	l := NewFixedWindow(NewMemoryStore(), 1, time.Minute)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "a"))
	assert.False(t, l.Allow(ctx, "a"))
	assert.True(t, l.Allow(ctx, "b"))
}

func TestFixedWindowResets(t *testing.T) {
	store := &memoryStore{
		counts:  make(map[string]int64),
		started: make(map[string]time.Time),
		now:     time.Now,
	}
	now := time.Unix(1000, 0)
	store.now = func() time.Time { return now }

	l := NewFixedWindow(store, 1, 5*time.Second)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "client"))
	assert.False(t, l.Allow(ctx, "client"))

	now = now.Add(5 * time.Second)
	assert.True(t, l.Allow(ctx, "client"))
}

type failingStore struct{}

func (failingStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	return 0, errors.New("store unavailable")
}

func TestFixedWindowFailsOpen(t *testing.T) {
	l := NewFixedWindow(failingStore{}, 1, time.Minute)
	assert.True(t, l.Allow(context.Background(), "client"))
	assert.True(t, l.Allow(context.Background(), "client"))
}

func TestMiddlewareRejectsExcess(t *testing.T) {
	l := NewFixedWindow(NewMemoryStore(), 1, time.Minute)
	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different client still gets through.
	other := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusCreated, rec.Code)
}
