// Package cache provides a TTL-bounded LRU and a scheduler that sweeps
// expired entries.
package cache

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	applog "fintrack/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is what the Manager needs from a registered cache.
type Cleaner interface {
	CleanExpired() int
	Stats() Stats
}

// Manager sweeps registered caches on a cron schedule.
type Manager struct {
	mu     sync.Mutex
	caches []Cleaner
	cron   *cron.Cron
	logger *applog.Logger
}

func NewManager(logger *applog.Logger) *Manager {
	return &Manager{
		caches: make([]Cleaner, 0),
		logger: logger.WithComponent(applog.ComponentCache),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, cache)
}

// Sweep cleans every registered cache once and returns the number of
// entries removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// Totals sums the stats of every registered cache.
func (m *Manager) Totals() Stats {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	var t Stats
	for _, c := range caches {
		s := c.Stats()
		t.Hits += s.Hits
		t.Misses += s.Misses
		t.Evicted += s.Evicted
		t.Expired += s.Expired
		t.Entries += s.Entries
		t.Capacity += s.Capacity
	}
	return t
}

// StartCleanup schedules Sweep with a standard cron spec such as
// "@every 5m" or "*/10 * * * *".
func (m *Manager) StartCleanup(spec string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cron != nil {
		return fmt.Errorf("cache cleanup already started")
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		n := m.Sweep()
		t := m.Totals()
		m.logger.Debug("Cache sweep finished",
			"removed", n, "entries", t.Entries, "hits", t.Hits, "misses", t.Misses, "evicted", t.Evicted)
	}); err != nil {
		return fmt.Errorf("schedule cache cleanup %q: %w", spec, err)
	}
	c.Start()
	m.cron = c
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	m.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
