package cache

import (
	"container/list"
	"sync"
	"time"
)

// Stats counts lookups and removals since the cache was created.
type Stats struct {
	Hits     uint64
	Misses   uint64
	Evicted  uint64 // dropped to stay within capacity
	Expired  uint64 // dropped on lookup or sweep after the ttl
	Entries  int
	Capacity int
}

// LRUCache evicts by recency once capacity is reached and by age after ttl.
type LRUCache[T any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	index    map[string]*list.Element
	order    *list.List // front is most recent
	now      func() time.Time
	stats    Stats
}

var _ Cache[int] = (*LRUCache[int])(nil)

type entry[T any] struct {
	key     string
	value   T
	expires time.Time
}

func (e *entry[T]) stale(now time.Time) bool {
	return now.After(e.expires)
}

func NewLRUCache[T any](capacity int, ttl time.Duration) *LRUCache[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRUCache[T]{
		capacity: capacity,
		ttl:      ttl,
		index:    make(map[string]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	el, ok := c.index[key]
	if !ok {
		c.stats.Misses++
		return zero, false
	}
	e := el.Value.(*entry[T])
	if e.stale(c.now()) {
		c.drop(el)
		c.stats.Expired++
		c.stats.Misses++
		return zero, false
	}
	c.order.MoveToFront(el)
	c.stats.Hits++
	return e.value, true
}

func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[T]{key: key, value: value, expires: c.now().Add(c.ttl)}
	if el, ok := c.index[key]; ok {
		el.Value = e
		c.order.MoveToFront(el)
		return
	}
	c.index[key] = c.order.PushFront(e)
	for c.order.Len() > c.capacity {
		c.drop(c.order.Back())
		c.stats.Evicted++
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.drop(el)
	}
}

func (c *LRUCache[T]) drop(el *list.Element) {
	delete(c.index, el.Value.(*entry[T]).key)
	c.order.Remove(el)
}

// CleanExpired removes every stale entry and reports how many went.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if el.Value.(*entry[T]).stale(now) {
			c.drop(el)
			removed++
		}
		el = prev
	}
	c.stats.Expired += uint64(removed)
	return removed
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

func (c *LRUCache[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.index)
	s.Capacity = c.capacity
	return s
}
