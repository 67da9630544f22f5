package pose

import "sync"

// Cache holds the most recent landmark snapshot. The detector result
// callback is the only writer, the render loop the only reader. Snapshots
// are replaced wholesale, so a reader always observes either a complete
// prior snapshot or the absent marker (nil), never a torn write. Staleness
// relative to the live video is accepted, not hidden.
type Cache struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// NewCache creates an empty cache. Absence is a valid state meaning "draw
// idle avatar".
func NewCache() *Cache {
	return &Cache{}
}

// Set replaces the cached snapshot wholesale.
func (c *Cache) Set(snap *Snapshot) {
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
}

// Clear marks the cache absent (no body detected).
func (c *Cache) Clear() {
	c.mu.Lock()
	c.snap = nil
	c.mu.Unlock()
}

// Get returns the latest snapshot, or nil when absent.
func (c *Cache) Get() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}
