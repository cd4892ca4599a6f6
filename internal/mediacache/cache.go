package mediacache

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// lookupSource tags where a two-level lookup found its value, so the
// promotion step is an explicit branch rather than a side effect.
type lookupSource int

const (
	sourceMiss lookupSource = iota
	sourceMemory
	sourceDisk
)

type entry struct {
	key      string
	data     []byte
	storedAt time.Time
	dirty    bool
}

// Cache is the tiered media cache: a memory-resident map in front of a
// persistent DiskStore. Values carry a fixed TTL from write time. Disk
// failures never surface to callers; the cache degrades to memory-only
// for the affected key.
type Cache struct {
	ttl           time.Duration
	pressureKeep  int
	sweepInterval time.Duration
	disk          *DiskStore
	logger        *log.Logger

	mu      sync.Mutex
	entries map[string]*entry

	writeCh  chan string
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a tiered cache over the given disk store. Call Start to
// launch the background writer and the hourly memory sweep, and Stop for
// a final best-effort flush.
func New(disk *DiskStore, ttl time.Duration, pressureKeep int, logger *log.Logger) *Cache {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	if pressureKeep <= 0 {
		pressureKeep = 10
	}
	return &Cache{
		ttl:           ttl,
		pressureKeep:  pressureKeep,
		sweepInterval: time.Hour,
		disk:          disk,
		logger:        logger.With("component", "mediacache"),
		entries:       make(map[string]*entry),
		writeCh:       make(chan string, 256),
		stopCh:        make(chan struct{}),
	}
}

// Start launches the disk writer and the periodic memory sweep.
func (c *Cache) Start() {
	c.wg.Add(2)
	go c.writeLoop()
	go c.sweepLoop()
}

// Stop shuts down background work and attempts a final flush.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	c.wg.Wait()
	c.Flush()
}

// Get returns the cached bytes for a key, or false on miss. A value found
// only on disk is promoted into memory first. Expired values count as a
// miss and are purged from the tier they were found in.
func (c *Cache) Get(key string) ([]byte, bool) {
	data, source := c.lookup(key)
	return data, source != sourceMiss
}

// lookup is the explicit two-level read path.
func (c *Cache) lookup(key string) ([]byte, lookupSource) {
	now := time.Now()

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if now.Sub(e.storedAt) > c.ttl {
			delete(c.entries, key)
			c.mu.Unlock()
			return nil, sourceMiss
		}
		data := append([]byte(nil), e.data...)
		c.mu.Unlock()
		return data, sourceMemory
	}
	c.mu.Unlock()

	rec, err := c.disk.Read(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("disk read failed, treating as miss", "key", key, "err", err)
		}
		return nil, sourceMiss
	}
	if rec.Expired(c.ttl, now) {
		if err := c.disk.Remove(key); err != nil {
			c.logger.Warn("failed to purge expired record", "key", key, "err", err)
		}
		return nil, sourceMiss
	}

	// Promote: the disk copy keeps its original write time, so expiry
	// still runs from the first Put. A write that landed while the disk
	// read ran is newer than the record and must not be clobbered.
	c.mu.Lock()
	if existing, ok := c.entries[key]; ok && !rec.StoredAt.After(existing.storedAt) {
		data := append([]byte(nil), existing.data...)
		c.mu.Unlock()
		return data, sourceMemory
	}
	c.entries[key] = &entry{key: key, data: rec.Data, storedAt: rec.StoredAt}
	c.mu.Unlock()

	return append([]byte(nil), rec.Data...), sourceDisk
}

// Put stores bytes under a key, overwriting any prior entry. The memory
// tier is updated immediately; the disk write is scheduled on the serial
// writer.
func (c *Cache) Put(key string, data []byte) {
	c.mu.Lock()
	c.entries[key] = &entry{
		key:      key,
		data:     append([]byte(nil), data...),
		storedAt: time.Now(),
		dirty:    true,
	}
	c.mu.Unlock()

	select {
	case c.writeCh <- key:
	default:
		// Writer backlog is full; persist inline rather than drop.
		c.flushKey(key)
	}
}

// Remove deletes a key from both tiers.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	if err := c.disk.Remove(key); err != nil {
		c.logger.Warn("disk remove failed", "key", key, "err", err)
	}
}

// Clear empties both tiers. The persistent container is recreated so
// subsequent writes cannot fail on a missing directory.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()

	if err := c.disk.Clear(); err != nil {
		c.logger.Warn("disk clear failed", "err", err)
	}
}

// HasValid reports whether a fresh entry exists in either tier without
// promoting or purging anything.
func (c *Cache) HasValid(key string) bool {
	now := time.Now()

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		fresh := now.Sub(e.storedAt) <= c.ttl
		c.mu.Unlock()
		return fresh
	}
	c.mu.Unlock()

	rec, err := c.disk.Read(key)
	if err != nil {
		return false
	}
	return !rec.Expired(c.ttl, now)
}

// Reconcile scans the persistent tier, deletes expired records and loads
// the valid ones into memory. Memory entries with no disk counterpart are
// re-marked dirty so the next flush restores them; this covers the
// persistent tier being cleared externally while the process was
// suspended.
func (c *Cache) Reconcile() {
	now := time.Now()
	records, err := c.disk.LoadAll()
	if err != nil {
		c.logger.Warn("reconcile: disk enumeration failed", "err", err)
		return
	}

	onDisk := make(map[string]struct{}, len(records))
	loaded := 0
	for _, rec := range records {
		if rec.Expired(c.ttl, now) {
			if err := c.disk.Remove(rec.Key); err != nil {
				c.logger.Warn("reconcile: failed to purge expired record", "key", rec.Key, "err", err)
			}
			continue
		}
		onDisk[rec.Key] = struct{}{}
		c.mu.Lock()
		if existing, ok := c.entries[rec.Key]; !ok || rec.StoredAt.After(existing.storedAt) {
			c.entries[rec.Key] = &entry{key: rec.Key, data: rec.Data, storedAt: rec.StoredAt}
		}
		c.mu.Unlock()
		loaded++
	}

	c.mu.Lock()
	for key, e := range c.entries {
		if _, ok := onDisk[key]; !ok {
			e.dirty = true
		}
	}
	c.mu.Unlock()

	c.logger.Debug("reconcile complete", "loaded", loaded, "records", len(records))
}

// Flush writes every dirty memory entry to disk. Used on suspension and
// termination; failures are logged and the entry stays dirty.
func (c *Cache) Flush() {
	c.mu.Lock()
	dirty := make([]string, 0)
	for key, e := range c.entries {
		if e.dirty {
			dirty = append(dirty, key)
		}
	}
	c.mu.Unlock()

	for _, key := range dirty {
		c.flushKey(key)
	}
}

// HandleMemoryPressure trims the memory tier to the most-recently-written
// entries. Evicted entries are flushed first so they stay retrievable
// from disk and re-promote on the next read.
func (c *Cache) HandleMemoryPressure() {
	c.Flush()

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) <= c.pressureKeep {
		return
	}

	all := make([]*entry, 0, len(c.entries))
	for _, e := range c.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].storedAt.After(all[j].storedAt)
	})
	for _, e := range all[c.pressureKeep:] {
		delete(c.entries, e.key)
	}
	c.logger.Info("memory pressure: trimmed cache",
		"kept", c.pressureKeep, "evicted", len(all)-c.pressureKeep)
}

// Sweep purges expired entries from the memory tier. Disk records are
// swept lazily, on read or at the next reconcile.
func (c *Cache) Sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if now.Sub(e.storedAt) > c.ttl {
			delete(c.entries, key)
		}
	}
}

func (c *Cache) writeLoop() {
	defer c.wg.Done()
	for {
		select {
		case key := <-c.writeCh:
			c.flushKey(key)
		case <-c.stopCh:
			for {
				select {
				case key := <-c.writeCh:
					c.flushKey(key)
				default:
					return
				}
			}
		}
	}
}

func (c *Cache) sweepLoop() {
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
}

// flushKey persists one entry if it is still dirty. A disk failure is
// logged and the entry keeps its dirty mark for a later attempt.
func (c *Cache) flushKey(key string) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || !e.dirty {
		c.mu.Unlock()
		return
	}
	rec := Record{Key: e.key, StoredAt: e.storedAt, Data: e.data}
	c.mu.Unlock()

	if err := c.disk.Write(rec); err != nil {
		c.logger.Warn("disk write failed, entry stays memory-only", "key", key, "err", err)
		return
	}

	c.mu.Lock()
	if cur, ok := c.entries[key]; ok && cur.storedAt.Equal(rec.StoredAt) {
		cur.dirty = false
	}
	c.mu.Unlock()
}
