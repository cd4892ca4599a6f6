package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/saltcrest/swellcast/internal/api"
)

// Uploader performs direct PUTs of raw bytes against presigned URLs.
// Timeouts are generous because report media is large and mobile radio
// conditions are slow; the per-kind values come from configuration.
type Uploader struct {
	imageClient *http.Client
	videoClient *http.Client
	logger      *log.Logger
}

// NewUploader creates an Uploader with per-kind PUT timeouts.
func NewUploader(imageTimeout, videoTimeout time.Duration, logger *log.Logger) *Uploader {
	if imageTimeout <= 0 {
		imageTimeout = 30 * time.Second
	}
	if videoTimeout <= 0 {
		videoTimeout = 90 * time.Second
	}
	return &Uploader{
		imageClient: &http.Client{Timeout: imageTimeout},
		videoClient: &http.Client{Timeout: videoTimeout},
		logger:      logger.With("component", "blob"),
	}
}

// Put uploads data to a presigned URL. A transport error or non-2xx
// response is a failure. No retry happens here; the caller owns that
// decision.
func (u *Uploader) Put(ctx context.Context, kind api.MediaKind, uploadURL string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.ContentLength = int64(len(data))
	req.Header.Set("Content-Type", contentType(kind))

	client := u.imageClient
	if kind == api.KindVideo {
		client = u.videoClient
	}

	started := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if os.IsTimeout(err) {
			return fmt.Errorf("%s upload timed out: %w", kind, err)
		}
		return fmt.Errorf("%s upload failed: %w", kind, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s upload rejected with status %d", kind, resp.StatusCode)
	}

	u.logger.Debug("upload complete",
		"kind", kind, "bytes", len(data), "took", time.Since(started))
	return nil
}

func contentType(kind api.MediaKind) string {
	if kind == api.KindVideo {
		return "video/mp4"
	}
	return "image/jpeg"
}
