package datacache

import (
	"sync"
	"time"
)

type timestamped[T any] struct {
	value    T
	storedAt time.Time
}

// TTLCache is a mutex-guarded map with a fixed time-to-live and a
// background sweep owned by the instance. Each cache instance has its own
// lock; instances never share state.
type TTLCache[T any] struct {
	ttl           time.Duration
	sweepInterval time.Duration

	mu      sync.Mutex
	entries map[string]timestamped[T]

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewTTLCache creates a cache whose entries expire ttl after being
// written. sweepInterval controls the background purge; it need not match
// the TTL.
func NewTTLCache[T any](ttl, sweepInterval time.Duration) *TTLCache[T] {
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}
	return &TTLCache[T]{
		ttl:           ttl,
		sweepInterval: sweepInterval,
		entries:       make(map[string]timestamped[T]),
		stopCh:        make(chan struct{}),
	}
}

// GetIfFresh returns the cached value only while it is within its TTL.
// A stale or absent entry reads the same as one that was never fetched.
func (c *TTLCache[T]) GetIfFresh(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || time.Since(e.storedAt) > c.ttl {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Put stores a value stamped with the current time, overwriting any
// previous entry.
func (c *TTLCache[T]) Put(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = timestamped[T]{value: value, storedAt: time.Now()}
}

// Invalidate drops one entry, typically after the user submits data that
// would otherwise be masked by the cached copy.
func (c *TTLCache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateAll drops every entry.
func (c *TTLCache[T]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]timestamped[T])
}

// Sweep removes expired entries.
func (c *TTLCache[T]) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if time.Since(e.storedAt) > c.ttl {
			delete(c.entries, key)
		}
	}
}

// Start launches the background sweep.
func (c *TTLCache[T]) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Sweep()
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop halts the background sweep.
func (c *TTLCache[T]) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	c.wg.Wait()
}
