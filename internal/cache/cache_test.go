package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "fintrack/internal/log"
)

func newClockedCache(maxSize int, ttl time.Duration) (*LRUCache[string], *time.Time) {
	c := NewLRUCache[string](maxSize, ttl)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestLRUGetSet(t *testing.T) {
	c, _ := newClockedCache(10, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", "1")
	c.Set("a", "2")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "2", v)
	assert.Equal(t, 1, c.Size())
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newClockedCache(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // a becomes most recent
	c.Set("c", "3")

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestLRUExpiry(t *testing.T) {
	c, now := newClockedCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	*now = now.Add(2 * time.Minute)
	c.Set("fresh", "3")

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.CleanExpired(), "b is still stored until swept")
	assert.Equal(t, 1, c.Size())
}

func TestLRUDelete(t *testing.T) {
	c, _ := newClockedCache(10, time.Minute)
	c.Set("owner:1", "x")
	c.Set("owner:12", "x")

	c.Delete("owner:1")
	_, ok := c.Get("owner:1")
	assert.False(t, ok)
	_, ok = c.Get("owner:12")
	assert.True(t, ok)
}

func TestLRUConcurrentAccess(t *testing.T) {
	c := NewLRUCache[int](50, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (i*j)%75)
				c.Set(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Size(), 50)
}

func TestManagerSweep(t *testing.T) {
	a, now := newClockedCache(10, time.Second)
	b, _ := newClockedCache(10, time.Hour)
	a.Set("x", "1")
	b.Set("y", "1")
	*now = now.Add(time.Minute)

	m := NewManager(applog.Discard())
	m.Register(a)
	m.Register(b)
	assert.Equal(t, 1, m.Sweep())

	tot := m.Totals()
	assert.Equal(t, 1, tot.Entries)
	assert.Equal(t, uint64(1), tot.Expired)
	assert.Equal(t, 20, tot.Capacity)
}

func TestLRUStats(t *testing.T) {
	c, now := newClockedCache(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3") // evicts a

	c.Get("a")
	c.Get("b")
	*now = now.Add(2 * time.Minute)
	c.Get("c")

	s := c.Stats()
	assert.Equal(t, uint64(1), s.Hits)
	assert.Equal(t, uint64(2), s.Misses)
	assert.Equal(t, uint64(1), s.Evicted)
	assert.Equal(t, uint64(1), s.Expired)
	assert.Equal(t, 1, s.Entries)
	assert.Equal(t, 2, s.Capacity)
}

func TestManagerSchedule(t *testing.T) {
	m := NewManager(applog.Discard())
	require.Error(t, m.StartCleanup("not a schedule"))

	require.NoError(t, m.StartCleanup("@every 1h"))
	assert.Error(t, m.StartCleanup("@every 1h"), "second start is rejected")
	m.Stop()
	m.Stop()
}
