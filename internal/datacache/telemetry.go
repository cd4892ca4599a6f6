package datacache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/saltcrest/swellcast/internal/api"
)

// TelemetrySource is the slice of the Domain API the telemetry cache
// consumes.
type TelemetrySource interface {
	FetchTelemetry(ctx context.Context, stations []string) ([]api.BuoyReading, error)
}

// StationKey builds the composite cache key for a set of buoy stations.
// The list is sorted so the same set always maps to the same key.
func StationKey(stations []string) string {
	sorted := append([]string(nil), stations...)
	sort.Strings(sorted)
	return strings.Join(sorted, "_")
}

// TelemetryCache caches buoy readings per station set with a short TTL.
type TelemetryCache struct {
	cache  *TTLCache[[]api.BuoyReading]
	source TelemetrySource
	group  singleflight.Group
	logger *log.Logger
}

// NewTelemetryCache creates a telemetry cache. The sweep runs every five
// minutes regardless of the TTL.
func NewTelemetryCache(source TelemetrySource, ttl time.Duration, logger *log.Logger) *TelemetryCache {
	return &TelemetryCache{
		cache:  NewTTLCache[[]api.BuoyReading](ttl, 5*time.Minute),
		source: source,
		logger: logger.With("component", "telemetrycache"),
	}
}

// Readings returns the latest readings for a station set, serving from
// cache while fresh.
func (tc *TelemetryCache) Readings(ctx context.Context, stations []string) ([]api.BuoyReading, error) {
	key := StationKey(stations)
	if cached, ok := tc.cache.GetIfFresh(key); ok {
		return cached, nil
	}

	result, err, _ := tc.group.Do(key, func() (interface{}, error) {
		if cached, ok := tc.cache.GetIfFresh(key); ok {
			return cached, nil
		}
		readings, err := tc.source.FetchTelemetry(ctx, stations)
		if err != nil {
			return nil, fmt.Errorf("fetch telemetry for %s: %w", key, err)
		}
		tc.cache.Put(key, readings)
		return readings, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]api.BuoyReading), nil
}

// Invalidate busts the cached readings for one station set.
func (tc *TelemetryCache) Invalidate(stations []string) {
	tc.cache.Invalidate(StationKey(stations))
}

// InvalidateAll busts every station set.
func (tc *TelemetryCache) InvalidateAll() {
	tc.cache.InvalidateAll()
}

// Start launches the background sweep.
func (tc *TelemetryCache) Start() { tc.cache.Start() }

// Stop halts the background sweep.
func (tc *TelemetryCache) Stop() { tc.cache.Stop() }
