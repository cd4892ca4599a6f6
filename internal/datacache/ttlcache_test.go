package datacache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheReadYourWrite(t *testing.T) {
	c := NewTTLCache[string](time.Minute, time.Minute)

	c.Put("k", "v")
	got, ok := c.GetIfFresh("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestTTLCacheStaleReadsAsNeverFetched(t *testing.T) {
	c := NewTTLCache[string](20*time.Millisecond, time.Minute)

	c.Put("k", "v")
	time.Sleep(40 * time.Millisecond)

	_, ok := c.GetIfFresh("k")
	assert.False(t, ok)
}

func TestTTLCacheOverwriteRestamps(t *testing.T) {
	c := NewTTLCache[int](100*time.Millisecond, time.Minute)

	c.Put("k", 1)
	time.Sleep(60 * time.Millisecond)
	c.Put("k", 2)
	time.Sleep(60 * time.Millisecond)

	// 120ms after the first write but only 60ms after the second; the
	// overwrite must have reset the clock.
	got, ok := c.GetIfFresh("k")
	require.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestTTLCacheInvalidate(t *testing.T) {
	c := NewTTLCache[string](time.Minute, time.Minute)

	c.Put("a", "1")
	c.Put("b", "2")

	c.Invalidate("a")
	_, ok := c.GetIfFresh("a")
	assert.False(t, ok)
	_, ok = c.GetIfFresh("b")
	assert.True(t, ok)

	c.InvalidateAll()
	_, ok = c.GetIfFresh("b")
	assert.False(t, ok)
}

func TestTTLCacheSweepRemovesExpired(t *testing.T) {
	c := NewTTLCache[string](20*time.Millisecond, time.Minute)

	c.Put("old", "v")
	time.Sleep(40 * time.Millisecond)
	c.Put("new", "v")

	c.Sweep()

	c.mu.Lock()
	_, hasOld := c.entries["old"]
	_, hasNew := c.entries["new"]
	c.mu.Unlock()
	assert.False(t, hasOld)
	assert.True(t, hasNew)
}

func TestTTLCacheBackgroundSweep(t *testing.T) {
	c := NewTTLCache[string](10*time.Millisecond, 20*time.Millisecond)
	c.Start()
	defer c.Stop()

	c.Put("k", "v")
	time.Sleep(60 * time.Millisecond)

	c.mu.Lock()
	_, there := c.entries["k"]
	c.mu.Unlock()
	assert.False(t, there, "background sweep should have purged the entry")
}
