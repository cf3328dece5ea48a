// ABOUTME: Thread-safe TTL cache of delivered message keys, generic over the key type.
// ABOUTME: The registry marks (conversation, sequence) pairs here and forgets them on close.

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// cleanupInterval is how often expired keys are swept.
const cleanupInterval = time.Minute

type cacheEntry[K comparable] struct {
	timestamp time.Time
	element   *list.Element
}

// Cache is a TTL-based, size-limited set of seen keys. Insertion order is kept in a
// linked list so the oldest key is evicted in O(1) when the cache is full.
type Cache[K comparable] struct {
	mu      sync.RWMutex
	seen    map[K]*cacheEntry[K]
	order   *list.List
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// New creates a cache and starts its background sweeper. Call Close to stop it.
func New[K comparable](ttl time.Duration, maxSize int) *Cache[K] {
	c := &Cache[K]{
		seen:    make(map[K]*cacheEntry[K]),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Check returns true if key was marked and has not expired.
func (c *Cache[K]) Check(key K) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.seen[key]
	if !ok {
		return false
	}
	return time.Since(entry.timestamp) < c.ttl
}

// Mark records key, evicting the oldest key if the cache is full.
func (c *Cache[K]) Mark(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markLocked(key)
}

// ForgetFunc removes every key for which match returns true and reports how many were
// removed.
func (c *Cache[K]) ForgetFunc(match func(K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.seen {
		if match(key) {
			c.order.Remove(entry.element)
			delete(c.seen, key)
			removed++
		}
	}
	return removed
}

// markLocked must be called with mu held.
func (c *Cache[K]) markLocked(key K) {
	now := time.Now()

	if entry, exists := c.seen[key]; exists {
		entry.timestamp = now
		c.order.MoveToBack(entry.element)
		return
	}

	if c.maxSize > 0 && len(c.seen) >= c.maxSize {
		c.evictOldest()
	}

	elem := c.order.PushBack(key)
	c.seen[key] = &cacheEntry[K]{timestamp: now, element: elem}
}

// evictOldest must be called with mu held.
func (c *Cache[K]) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}
	key, _ := front.Value.(K)
	c.order.Remove(front)
	delete(c.seen, key)
}

func (c *Cache[K]) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.runCleanup()
		case <-c.done:
			return
		}
	}
}

func (c *Cache[K]) runCleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.seen {
		if now.Sub(entry.timestamp) > c.ttl {
			c.order.Remove(entry.element)
			delete(c.seen, key)
		}
	}
}

// Close stops the sweeper. It is safe to call more than once.
func (c *Cache[K]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
