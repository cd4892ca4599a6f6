package datacache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/saltcrest/swellcast/internal/api"
)

// ReportSource is the slice of the Domain API the report cache consumes.
type ReportSource interface {
	FetchSpots(ctx context.Context, country, region string) ([]api.Spot, error)
	FetchSpotReports(ctx context.Context, spotID string) ([]api.Report, error)
}

// RegionKey builds the composite cache key for a country/region pair.
func RegionKey(country, region string) string {
	return fmt.Sprintf("%s_%s", country, region)
}

// ReportCache caches per-region report lists. Populating a region fans
// out one concurrent sub-fetch per spot and merges partial successes;
// concurrent misses for the same region collapse into a single fetch.
type ReportCache struct {
	cache  *TTLCache[[]api.Report]
	source ReportSource
	group  singleflight.Group
	logger *log.Logger
}

// NewReportCache creates a report cache with the given TTL. Sweeping runs
// at the TTL interval.
func NewReportCache(source ReportSource, ttl time.Duration, logger *log.Logger) *ReportCache {
	return &ReportCache{
		cache:  NewTTLCache[[]api.Report](ttl, ttl),
		source: source,
		logger: logger.With("component", "reportcache"),
	}
}

// Reports returns the merged report list for a region, serving from cache
// while fresh. On a miss it fetches the region's spot list, issues one
// concurrent sub-fetch per spot and caches the merged result. A failing
// spot is logged and omitted rather than failing the whole fetch.
func (rc *ReportCache) Reports(ctx context.Context, country, region string) ([]api.Report, error) {
	key := RegionKey(country, region)
	if cached, ok := rc.cache.GetIfFresh(key); ok {
		return cached, nil
	}

	result, err, _ := rc.group.Do(key, func() (interface{}, error) {
		// Another caller may have filled the cache while we queued.
		if cached, ok := rc.cache.GetIfFresh(key); ok {
			return cached, nil
		}
		merged, err := rc.fetchRegion(ctx, country, region)
		if err != nil {
			return nil, err
		}
		rc.cache.Put(key, merged)
		return merged, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]api.Report), nil
}

// fetchRegion performs the fan-out fetch across the region's spots.
func (rc *ReportCache) fetchRegion(ctx context.Context, country, region string) ([]api.Report, error) {
	spots, err := rc.source.FetchSpots(ctx, country, region)
	if err != nil {
		return nil, fmt.Errorf("list spots for %s/%s: %w", country, region, err)
	}

	var (
		mu     sync.Mutex
		merged []api.Report
		wg     sync.WaitGroup
	)
	for _, spot := range spots {
		wg.Add(1)
		go func(spot api.Spot) {
			defer wg.Done()
			reports, err := rc.source.FetchSpotReports(ctx, spot.ID)
			if err != nil {
				rc.logger.Warn("spot fetch failed, omitting from region list",
					"spot", spot.ID, "err", err)
				return
			}
			mu.Lock()
			merged = append(merged, reports...)
			mu.Unlock()
		}(spot)
	}
	wg.Wait()

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].SubmittedAt.After(merged[j].SubmittedAt)
	})
	return merged, nil
}

// Invalidate busts the cached list for one region.
func (rc *ReportCache) Invalidate(country, region string) {
	rc.cache.Invalidate(RegionKey(country, region))
}

// InvalidateKey busts a region by its composite key.
func (rc *ReportCache) InvalidateKey(key string) {
	rc.cache.Invalidate(key)
}

// InvalidateAll busts every region.
func (rc *ReportCache) InvalidateAll() {
	rc.cache.InvalidateAll()
}

// Start launches the background sweep.
func (rc *ReportCache) Start() { rc.cache.Start() }

// Stop halts the background sweep.
func (rc *ReportCache) Stop() { rc.cache.Stop() }
