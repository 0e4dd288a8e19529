// Package ratelimit implements a fixed-window per-client request limiter.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	window = time.Minute
	// Windows older than this many periods are forgotten by the sweeper.
	staleWindows = 10
)

// Limiter admits at most Limit requests per client per minute.
type Limiter struct {
	limit int
	now   func() time.Time

	mu      sync.Mutex
	windows map[string]*counter

	rejected atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
}

type counter struct {
	opened time.Time
	hits   int
}

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{RequestsPerMinute: 60, CleanupInterval: 5 * time.Minute}
}

// NewLimiter starts a sweeper goroutine; call Stop when done.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	rl := &Limiter{
		limit:   cfg.RequestsPerMinute,
		now:     time.Now,
		windows: make(map[string]*counter),
		stop:    make(chan struct{}),
	}
	go rl.sweepEvery(cfg.CleanupInterval)
	return rl
}

// Take records a request from client. When the request is refused it also
// returns how long until the client's window reopens.
func (rl *Limiter) Take(client string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, ok := rl.windows[client]
	if !ok || now.Sub(c.opened) >= window {
		rl.windows[client] = &counter{opened: now, hits: 1}
		return true, 0
	}
	c.hits++
	if c.hits <= rl.limit {
		return true, 0
	}
	rl.rejected.Add(1)
	return false, c.opened.Add(window).Sub(now)
}

func (rl *Limiter) Allow(client string) bool {
	ok, _ := rl.Take(client)
	return ok
}

func (rl *Limiter) sweepEvery(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

func (rl *Limiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-staleWindows * window)
	for k, c := range rl.windows {
		if c.opened.Before(cutoff) {
			delete(rl.windows, k)
		}
	}
}

// ActiveClients is the number of clients with a tracked window.
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// Rejected is the number of refused requests since start.
func (rl *Limiter) Rejected() int64 {
	return rl.rejected.Load()
}

func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Middleware refuses over-limit requests with Retry-After set to the whole
// seconds left in the window, then hands off to onLimit to write the body.
func (rl *Limiter) Middleware(clientOf func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := rl.Take(clientOf(r))
			if ok {
				next.ServeHTTP(w, r)
				return
			}
			secs := int(math.Ceil(wait.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			if onLimit == nil {
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			onLimit(w, r)
		})
	}
}
