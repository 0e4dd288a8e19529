package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestAllowWithinWindow(t *testing.T) {
	rl, _ := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("1.1.1.1"), "request %d", i)
	}
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"), "clients are tracked separately")
	assert.Equal(t, int64(1), rl.Rejected())
}

func TestWindowResets(t *testing.T) {
	rl, now := newTestLimiter(t, 1)

	assert.True(t, rl.Allow("ip"))
	assert.False(t, rl.Allow("ip"))

	*now = now.Add(time.Minute)
	assert.True(t, rl.Allow("ip"))
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, now := newTestLimiter(t, 5)
	rl.Allow("old")
	*now = now.Add(11 * time.Minute)
	rl.Allow("fresh")

	rl.sweep()
	assert.Equal(t, 1, rl.ActiveClients())
}

func TestTakeReportsWait(t *testing.T) {
	rl, now := newTestLimiter(t, 1)

	ok, wait := rl.Take("ip")
	assert.True(t, ok)
	assert.Zero(t, wait)

	*now = now.Add(45 * time.Second)
	ok, wait = rl.Take("ip")
	assert.False(t, ok)
	assert.Equal(t, 15*time.Second, wait)
}

func TestMiddleware(t *testing.T) {
	rl, now := newTestLimiter(t, 1)
	limited := 0
	h := rl.Middleware(
		func(*http.Request) string { return "ip" },
		func(w http.ResponseWriter, r *http.Request) {
			limited++
			w.WriteHeader(http.StatusTooManyRequests)
		},
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	*now = now.Add(20500 * time.Millisecond)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "40", rec.Header().Get("Retry-After"))
	assert.Equal(t, 1, limited)
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	rl.Stop()
	rl.Stop()
}
