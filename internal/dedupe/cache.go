package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	key string
	ts  time.Time
}

// Cache remembers recently handled review event ids so redelivered Kafka
// messages are not indexed twice. Entries expire after ttl and the oldest are
// evicted beyond capacity.
type Cache struct {
	mu       sync.Mutex
	items    map[string]*list.Element
	order    *list.List
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// NewCache creates a cache with the provided capacity and ttl.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// IsSeen reports whether key was marked inside the ttl window. It does not mark it.
func (c *Cache) IsSeen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	return c.now().Sub(el.Value.(entry).ts) <= c.ttl
}

// MarkSeen records key as handled, refreshing its age if already present.
func (c *Cache) MarkSeen(key string) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
	}
	c.items[key] = c.order.PushBack(entry{key: key, ts: now})
	c.compact(now)
}

// Len returns the number of remembered keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)
	for front := c.order.Front(); front != nil; front = c.order.Front() {
		e := front.Value.(entry)
		if len(c.items) <= c.capacity && !e.ts.Before(cutoff) {
			return
		}
		c.order.Remove(front)
		delete(c.items, e.key)
	}
}
