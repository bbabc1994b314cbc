// Package dedup provides a bounded recent-signature cache used to keep
// one notification from being dispatched twice.
package dedup

import "sync"

// DefaultCapacity is the number of signatures retained before the cache
// resets.
const DefaultCapacity = 1000

// Cache is a bounded set of recently seen transaction signatures.
//
// Eviction is a wholesale reset once the set outgrows its capacity, not
// LRU: this keeps memory O(1) with no ordering bookkeeping, at the cost
// of possibly reprocessing a signature evicted by the reset. Reprocessing
// causes a duplicate alert, never a missed genuine event.
type Cache struct {
	mu       sync.Mutex
	capacity int
	seen     map[string]struct{}
}

// NewCache creates a cache bounded at capacity signatures. A capacity of
// zero or less uses DefaultCapacity.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		seen:     make(map[string]struct{}, capacity),
	}
}

// Seen records the signature and reports whether it was already resident.
// The first call for a signature returns false; subsequent calls return
// true until a size-triggered reset. The reset happens immediately after
// servicing the signature that overflowed the capacity.
func (c *Cache) Seen(signature string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[signature]; ok {
		return true
	}
	c.seen[signature] = struct{}{}

	if len(c.seen) > c.capacity {
		c.seen = make(map[string]struct{}, c.capacity)
	}
	return false
}

// Len returns the number of resident signatures.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
