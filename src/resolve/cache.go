package resolve

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// Cache memoizes resolved values by key. Concurrent misses for one key run
// the loader once; the others share its result. Failed loads are not stored.
type Cache[V any] struct {
	name    string
	metrics *Metrics

	mu      sync.RWMutex
	entries map[string]V
	group   singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache returns an empty cache reporting to metrics under name.
func NewCache[V any](name string, metrics *Metrics) *Cache[V] {
	return &Cache[V]{name: name, metrics: metrics, entries: map[string]V{}}
}

// Get returns the value for key, calling load on a miss.
func (c *Cache[V]) Get(key string, load func() (V, error)) (V, error) {
	if v, ok := c.Lookup(key); ok {
		c.hit()
		return v, nil
	}

	var loaded bool
	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.Lookup(key); ok {
			return v, nil
		}
		loaded = true
		v, err := load()
		if err != nil {
			return v, err
		}
		c.Put(key, v)
		return v, nil
	})
	if loaded {
		c.misses.Add(1)
		c.metrics.lookup(c.name, false)
	} else {
		c.hit()
	}
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Lookup returns a stored value without loading.
func (c *Cache[V]) Lookup(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores v under key, replacing any previous value.
func (c *Cache[V]) Put(key string, v V) {
	c.mu.Lock()
	c.entries[key] = v
	n := len(c.entries)
	c.mu.Unlock()
	c.metrics.size(c.name, n)
}

// Stats returns the current counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: n}
}

func (c *Cache[V]) hit() {
	c.hits.Add(1)
	c.metrics.lookup(c.name, true)
}
