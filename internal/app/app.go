package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"github.com/saltcrest/swellcast/internal/api"
	"github.com/saltcrest/swellcast/internal/blob"
	"github.com/saltcrest/swellcast/internal/config"
	"github.com/saltcrest/swellcast/internal/datacache"
	"github.com/saltcrest/swellcast/internal/mediacache"
	"github.com/saltcrest/swellcast/internal/mediaprep"
	"github.com/saltcrest/swellcast/internal/upload"
	"github.com/saltcrest/swellcast/pkg/schedule"
)

// App assembles the cache-and-upload core: one instance of each cache and
// the upload orchestrator, constructed once at startup and passed to
// whatever needs them. No package-level singletons.
type App struct {
	cfg    *config.Config
	logger *log.Logger

	API        *api.Client
	MediaCache *mediacache.Cache
	Reports    *datacache.ReportCache
	Telemetry  *datacache.TelemetryCache
	Uploads    *upload.Orchestrator

	journal *upload.Journal
	cron    *cron.Cron
}

// New constructs the full object graph from configuration.
func New(cfg *config.Config, logger *log.Logger) (*App, error) {
	client, err := api.NewClient(&api.Config{
		BaseURL:     cfg.API.BaseURL,
		Credentials: api.StaticCredentials(cfg.API.Token),
		Timeout:     time.Duration(cfg.API.Timeout) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("build API client: %w", err)
	}

	disk, err := mediacache.NewDiskStore(cfg.Cache.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("build disk store: %w", err)
	}
	media := mediacache.New(disk, cfg.Cache.MediaTTL(), cfg.Cache.PressureKeep, logger)

	reports := datacache.NewReportCache(client, cfg.Cache.ReportTTL(), logger)
	telemetry := datacache.NewTelemetryCache(client, cfg.Cache.TelemetryTTL(), logger)

	journal, err := upload.NewJournal(cfg.Upload.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("open orphan journal: %w", err)
	}

	putter := blob.NewUploader(
		time.Duration(cfg.Upload.ImageTimeout)*time.Second,
		time.Duration(cfg.Upload.VideoTimeout)*time.Second,
		logger)
	uploads := upload.NewOrchestrator(client, putter, journal, reports, logger)

	return &App{
		cfg:        cfg,
		logger:     logger,
		API:        client,
		MediaCache: media,
		Reports:    reports,
		Telemetry:  telemetry,
		Uploads:    uploads,
		journal:    journal,
		cron:       cron.New(),
	}, nil
}

// Start reconciles the persistent media tier, launches background sweeps
// and schedules the orphan-journal retry.
func (a *App) Start(ctx context.Context) error {
	a.MediaCache.Reconcile()
	a.MediaCache.Start()
	a.Reports.Start()
	a.Telemetry.Start()

	// Catch up on orphans left over from a previous run.
	a.Uploads.RetryJournal(ctx)

	if _, err := a.cron.AddFunc(a.cfg.Upload.JournalCron, func() {
		a.Uploads.RetryJournal(context.Background())
	}); err != nil {
		return fmt.Errorf("schedule journal retry: %w", err)
	}
	a.cron.Start()

	if info, err := schedule.NextTrigger(a.cfg.Upload.JournalCron, time.Now()); err == nil {
		a.logger.Debug("journal retry scheduled", "next", info.Next, "in", info.TimeUntilNext)
	}

	a.logger.Info("swellcast core started",
		"cache_dir", a.cfg.Cache.Dir, "media_ttl_days", a.cfg.Cache.MediaTTLDays)
	return nil
}

// SpotImage is the read-through path for a spot's hero image: media cache
// first, then the Domain API, caching the result.
func (a *App) SpotImage(ctx context.Context, spotID string) ([]byte, error) {
	key := "spot_" + spotID
	if data, ok := a.MediaCache.Get(key); ok {
		return data, nil
	}

	data, err := a.API.FetchSpotImage(ctx, spotID)
	if err != nil {
		return nil, err
	}
	a.MediaCache.Put(key, data)
	return data, nil
}

// PrepareImage compresses a report photo to the configured upload
// budget before it is handed to the orchestrator.
func (a *App) PrepareImage(data []byte) ([]byte, error) {
	return mediaprep.CompressImage(data, a.cfg.Upload.ImageBudgetBytes)
}

// VideoThumbnail extracts a poster frame from a report video and
// compresses it under the same budget as a photo.
func (a *App) VideoThumbnail(videoPath string) ([]byte, error) {
	return mediaprep.VideoThumbnail(videoPath, a.cfg.Upload.ImageBudgetBytes)
}

// Suspend flushes unsaved media entries; called when the process is
// backgrounded.
func (a *App) Suspend() {
	a.MediaCache.Flush()
}

// Resume reconciles the persistent tier, covering the case where it was
// cleared externally while suspended.
func (a *App) Resume() {
	a.MediaCache.Reconcile()
}

// MemoryPressure trims the media cache's memory tier.
func (a *App) MemoryPressure() {
	a.MediaCache.HandleMemoryPressure()
}

// Shutdown stops background work and attempts a final flush.
func (a *App) Shutdown() {
	ctx := a.cron.Stop()
	<-ctx.Done()
	a.Reports.Stop()
	a.Telemetry.Stop()
	a.MediaCache.Stop()
	if err := a.journal.Close(); err != nil {
		a.logger.Warn("journal close failed", "err", err)
	}
}
