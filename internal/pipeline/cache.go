package pipeline

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// snapshotCache is a thread-safe LRU cache with per-entry TTL. Invalidation
// is explicit: entries age out after the TTL, and clear drops everything
// (wired to the manual refresh endpoint).
type snapshotCache struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock

	mu      sync.Mutex
	entries map[string]*cacheEntry
	head    *cacheEntry // most recently used
	tail    *cacheEntry // least recently used
}

type cacheEntry struct {
	key      string
	snap     *Snapshot
	storedAt time.Time
	prev     *cacheEntry
	next     *cacheEntry
}

func newSnapshotCache(maxEntries int, ttl time.Duration, clock clockwork.Clock) *snapshotCache {
	return &snapshotCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[string]*cacheEntry),
	}
}

func (c *snapshotCache) get(key string) (*Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.clock.Since(e.storedAt) > c.ttl {
		delete(c.entries, e.key)
		c.remove(e)
		return nil, false
	}
	c.moveToFront(e)
	return e.snap, true
}

func (c *snapshotCache) put(key string, snap *Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.snap = snap
		e.storedAt = c.clock.Now()
		c.moveToFront(e)
		return
	}

	e := &cacheEntry{key: key, snap: snap, storedAt: c.clock.Now()}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *snapshotCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.head = nil
	c.tail = nil
}

func (c *snapshotCache) moveToFront(e *cacheEntry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *snapshotCache) addToFront(e *cacheEntry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *snapshotCache) remove(e *cacheEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *snapshotCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
