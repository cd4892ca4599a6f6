package upload

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/saltcrest/swellcast/internal/api"
)

// UploadAPI is the slice of the Domain API the orchestrator consumes:
// minting presigned targets and deleting uploaded objects.
type UploadAPI interface {
	GenerateImageUploadURL(ctx context.Context, scopeKey string) (*api.UploadTarget, error)
	GenerateVideoUploadURL(ctx context.Context, scopeKey string) (*api.UploadTarget, error)
	DeleteUploadedMedia(ctx context.Context, objectKey string, kind api.MediaKind) error
}

// Putter performs the direct byte upload against a presigned URL.
type Putter interface {
	Put(ctx context.Context, kind api.MediaKind, uploadURL string, data []byte) error
}

// RegionInvalidator busts a cached region after a confirmed submission.
type RegionInvalidator interface {
	InvalidateKey(key string)
}

// Orchestrator coordinates multi-part media uploads for a report
// submission: one presigned URL per artifact, concurrent best-effort
// cleanup of whatever was uploaded but never confirmed, and journaling of
// deletes that could not be issued.
type Orchestrator struct {
	api         UploadAPI
	putter      Putter
	journal     *Journal
	invalidator RegionInvalidator
	logger      *log.Logger
}

// NewOrchestrator wires the orchestrator. journal and invalidator may be
// nil; the corresponding follow-ups are then skipped.
func NewOrchestrator(uploadAPI UploadAPI, putter Putter, journal *Journal, invalidator RegionInvalidator, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		api:         uploadAPI,
		putter:      putter,
		journal:     journal,
		invalidator: invalidator,
		logger:      logger.With("component", "upload"),
	}
}

// RequestUploadURL mints a presigned target for one artifact kind. A
// failure here means the submission flow must not proceed to the byte
// upload.
func (o *Orchestrator) RequestUploadURL(ctx context.Context, kind api.MediaKind, scopeKey string) (*api.UploadTarget, error) {
	if kind == api.KindVideo {
		return o.api.GenerateVideoUploadURL(ctx, scopeKey)
	}
	return o.api.GenerateImageUploadURL(ctx, scopeKey)
}

// UploadImage uploads the prepared image bytes for a session. The object
// key lands in the session only after the PUT succeeds. Errors propagate;
// the caller decides whether to retry or abandon.
func (o *Orchestrator) UploadImage(ctx context.Context, sess *Session, scopeKey string, data []byte) error {
	return o.uploadSlot(ctx, sess, SlotImage, scopeKey, data)
}

// UploadVideo uploads the video bytes for a session.
func (o *Orchestrator) UploadVideo(ctx context.Context, sess *Session, scopeKey string, data []byte) error {
	return o.uploadSlot(ctx, sess, SlotVideo, scopeKey, data)
}

func (o *Orchestrator) uploadSlot(ctx context.Context, sess *Session, slot Slot, scopeKey string, data []byte) error {
	if err := sess.Begin(slot); err != nil {
		return err
	}

	target, err := o.RequestUploadURL(ctx, slot.Kind(), scopeKey)
	if err != nil {
		sess.Fail(slot)
		return fmt.Errorf("request %s upload URL: %w", slot, err)
	}

	if err := o.putter.Put(ctx, slot.Kind(), target.UploadURL, data); err != nil {
		sess.Fail(slot)
		return fmt.Errorf("upload %s: %w", slot, err)
	}

	sess.Complete(slot, target.ObjectKey)
	o.logger.Debug("artifact uploaded", "session", sess.ID, "slot", slot.String(), "key", target.ObjectKey)
	return nil
}

// UploadThumbnail uploads a video thumbnail and returns its object key,
// or "" on any failure along the way. A missing thumbnail is non-fatal to
// the submission, so failures are logged rather than returned.
func (o *Orchestrator) UploadThumbnail(ctx context.Context, sess *Session, scopeKey string, imageBytes []byte) string {
	if err := o.uploadSlot(ctx, sess, SlotThumbnail, scopeKey, imageBytes); err != nil {
		o.logger.Warn("thumbnail upload failed, continuing without one",
			"session", sess.ID, "err", err)
		return ""
	}
	key, _ := sess.Key(SlotThumbnail)
	return key
}

// Confirm marks the session's submission as accepted and busts the cached
// report list for the affected region, so the new report is not masked by
// a stale cache entry.
func (o *Orchestrator) Confirm(sess *Session, regionKey string) {
	sess.Confirm()
	if o.invalidator != nil {
		o.invalidator.InvalidateKey(regionKey)
	}
	o.logger.Info("submission confirmed", "session", sess.ID, "region", regionKey)
}

// Abandon ends a session without confirmation and cleans up every
// artifact that was uploaded. In-flight PUTs are not interrupted; the
// caller abandons after they settle, and the resulting objects are
// deleted here (cancellation by compensation).
func (o *Orchestrator) Abandon(ctx context.Context, sess *Session) {
	orphans := sess.Orphans()
	if len(orphans) == 0 {
		return
	}
	o.logger.Info("session abandoned, cleaning up", "session", sess.ID, "artifacts", len(orphans))
	o.Cleanup(ctx, orphans...)
}

// Cleanup issues one delete per ref, concurrently, and waits for all of
// them. Each failure is logged and journaled independently; none blocks
// or fails the others, and no error ever propagates from here.
func (o *Orchestrator) Cleanup(ctx context.Context, refs ...MediaRef) {
	var wg sync.WaitGroup
	for _, ref := range refs {
		if ref.ObjectKey == "" {
			continue
		}
		wg.Add(1)
		go func(ref MediaRef) {
			defer wg.Done()
			if err := o.api.DeleteUploadedMedia(ctx, ref.ObjectKey, ref.Kind); err != nil {
				o.logger.Warn("cleanup delete failed", "key", ref.ObjectKey, "kind", ref.Kind, "err", err)
				o.journalOrphan(ctx, ref)
			}
		}(ref)
	}
	wg.Wait()
}

// RetryJournal re-attempts the delete for every journaled orphan,
// resolving the ones that go through. Runs at startup and on a schedule.
func (o *Orchestrator) RetryJournal(ctx context.Context) {
	if o.journal == nil {
		return
	}
	orphans, err := o.journal.Pending(ctx)
	if err != nil {
		o.logger.Warn("journal read failed", "err", err)
		return
	}
	for _, orphan := range orphans {
		if err := o.api.DeleteUploadedMedia(ctx, orphan.ObjectKey, orphan.Kind); err != nil {
			o.logger.Warn("journaled delete still failing", "key", orphan.ObjectKey, "err", err)
			continue
		}
		if err := o.journal.Resolve(ctx, orphan.ObjectKey); err != nil {
			o.logger.Warn("failed to resolve journal row", "key", orphan.ObjectKey, "err", err)
		}
	}
}

func (o *Orchestrator) journalOrphan(ctx context.Context, ref MediaRef) {
	if o.journal == nil {
		return
	}
	if err := o.journal.Record(ctx, ref); err != nil {
		o.logger.Warn("failed to journal orphan", "key", ref.ObjectKey, "err", err)
	}
}
