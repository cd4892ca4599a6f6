package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saltcrest/swellcast/internal/config"
)

func newTestApp(t *testing.T, serverURL string) *App {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		API: config.APIConfig{BaseURL: serverURL, Token: "t", Timeout: 5},
		Cache: config.CacheConfig{
			Dir:                 filepath.Join(dir, "media"),
			MediaTTLDays:        30,
			ReportTTLMinutes:    15,
			TelemetryTTLMinutes: 5,
			PressureKeep:        10,
		},
		Upload: config.UploadConfig{
			ImageTimeout:     5,
			VideoTimeout:     5,
			ImageBudgetBytes: 1 << 20,
			JournalPath:      filepath.Join(dir, "journal.db"),
			JournalCron:      "*/15 * * * *",
		},
	}

	core, err := New(cfg, log.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(core.Shutdown)
	return core
}

func TestSpotImageReadThrough(t *testing.T) {
	var fetches atomic.Int64
	imageBytes := []byte("jpeg bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		assert.Equal(t, "/spots/sp-1/image", r.URL.Path)
		_, _ = w.Write(imageBytes)
	}))
	defer server.Close()

	core := newTestApp(t, server.URL)

	got, err := core.SpotImage(context.Background(), "sp-1")
	require.NoError(t, err)
	assert.Equal(t, imageBytes, got)

	// Second request is served from the media cache.
	got, err = core.SpotImage(context.Background(), "sp-1")
	require.NoError(t, err)
	assert.Equal(t, imageBytes, got)
	assert.EqualValues(t, 1, fetches.Load())
}

func TestSpotImageFetchErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	core := newTestApp(t, server.URL)

	_, err := core.SpotImage(context.Background(), "missing")
	assert.Error(t, err)
}

func TestPrepareImageUsesConfiguredBudget(t *testing.T) {
	core := newTestApp(t, "http://localhost:1")

	// Bytes already under the configured budget pass through untouched.
	small := []byte("tiny jpeg")
	got, err := core.PrepareImage(small)
	require.NoError(t, err)
	assert.Equal(t, small, got)

	// Shrinking the budget below the input size forces the compression
	// path, which rejects bytes that do not decode as an image.
	core.cfg.Upload.ImageBudgetBytes = 4
	_, err = core.PrepareImage(small)
	assert.Error(t, err)
}

func TestSuspendPersistsCachedMediaAcrossRestart(t *testing.T) {
	var fetches atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_, _ = w.Write([]byte("img"))
	}))
	defer server.Close()

	dir := t.TempDir()
	cfg := &config.Config{
		API: config.APIConfig{BaseURL: server.URL, Token: "t", Timeout: 5},
		Cache: config.CacheConfig{
			Dir:                 filepath.Join(dir, "media"),
			MediaTTLDays:        30,
			ReportTTLMinutes:    15,
			TelemetryTTLMinutes: 5,
			PressureKeep:        10,
		},
		Upload: config.UploadConfig{
			ImageTimeout: 5, VideoTimeout: 5, ImageBudgetBytes: 1 << 20,
			JournalPath: filepath.Join(dir, "journal.db"),
			JournalCron: "*/15 * * * *",
		},
	}

	first, err := New(cfg, log.New(io.Discard))
	require.NoError(t, err)

	_, err = first.SpotImage(context.Background(), "sp-9")
	require.NoError(t, err)
	first.Suspend()
	first.Shutdown()

	// A fresh process over the same directories serves the image without
	// refetching.
	second, err := New(cfg, log.New(io.Discard))
	require.NoError(t, err)
	defer second.Shutdown()
	second.Resume()

	got, err := second.SpotImage(context.Background(), "sp-9")
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), got)
	assert.EqualValues(t, 1, fetches.Load())
}
