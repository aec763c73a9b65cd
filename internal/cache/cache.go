// Package cache provides a small TTL-bound response cache for upstream
// lookups. Entries expire lazily on read; nothing sweeps in the background.
package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// TTL memoizes values by string key for a fixed lifetime. Safe for
// concurrent use; a single mutex is plenty at request-level call rates.
type TTL[V any] struct {
	ttl   time.Duration
	clock clockwork.Clock

	mu      sync.Mutex
	entries map[string]entry[V]
}

type entry[V any] struct {
	value      V
	insertedAt time.Time
}

// New creates a TTL cache. Pass nil for the clock to use real time.
func New[V any](ttl time.Duration, clock clockwork.Clock) *TTL[V] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TTL[V]{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]entry[V]),
	}
}

// Get returns the cached value when it is still fresh. A stale entry is
// treated as a miss and left for the next Put to overwrite.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.clock.Since(e.insertedAt) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put stores the value, overwriting any previous entry for the key.
func (c *TTL[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, insertedAt: c.clock.Now()}
}

// CoordKey builds a cache key from a coordinate quantized to 4 decimal
// places (roughly 11 m), plus optional qualifiers. Quantizing keeps UI
// jitter across repeated requests on the same entry.
func CoordKey(lat, lng float64, qualifiers ...string) string {
	key := fmt.Sprintf("%.4f,%.4f", lat, lng)
	if len(qualifiers) > 0 {
		key += "|" + strings.Join(qualifiers, "|")
	}
	return key
}
