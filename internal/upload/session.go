package upload

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/saltcrest/swellcast/internal/api"
)

// Slot names one media artifact position within a submission.
type Slot int

const (
	SlotImage Slot = iota
	SlotVideo
	SlotThumbnail
)

func (s Slot) String() string {
	switch s {
	case SlotImage:
		return "image"
	case SlotVideo:
		return "video"
	case SlotThumbnail:
		return "thumbnail"
	}
	return "unknown"
}

// Kind maps a slot to the blob-store media kind. Thumbnails upload as
// images.
func (s Slot) Kind() api.MediaKind {
	if s == SlotVideo {
		return api.KindVideo
	}
	return api.KindImage
}

// SlotState tracks one artifact through its upload lifecycle.
type SlotState int

const (
	SlotEmpty SlotState = iota
	SlotUploading
	SlotUploaded
	SlotFailed
)

// MediaRef identifies one uploaded object for cleanup purposes.
type MediaRef struct {
	ObjectKey string
	Kind      api.MediaKind
}

type slotInfo struct {
	state     SlotState
	objectKey string
}

// Session is the ephemeral bookkeeping for one in-progress report
// submission. Object keys are recorded per slot only after that
// artifact's upload succeeds. A session is never persisted; anything not
// confirmed when it ends is subject to cleanup.
type Session struct {
	ID string

	mu        sync.Mutex
	slots     map[Slot]*slotInfo
	confirmed bool
}

// NewSession creates an empty upload session.
func NewSession() *Session {
	return &Session{
		ID: uuid.NewString(),
		slots: map[Slot]*slotInfo{
			SlotImage:     {},
			SlotVideo:     {},
			SlotThumbnail: {},
		},
	}
}

// Begin moves a slot into the uploading state. A slot that already holds
// an uploaded artifact cannot be re-entered; a failed slot can, so the
// caller may retry.
func (s *Session) Begin(slot Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := s.slots[slot]
	switch info.state {
	case SlotEmpty, SlotFailed:
		info.state = SlotUploading
		return nil
	case SlotUploading:
		return fmt.Errorf("%s upload already in progress", slot)
	default:
		return fmt.Errorf("%s already uploaded", slot)
	}
}

// Complete records the object key for a successfully uploaded slot.
func (s *Session) Complete(slot Slot, objectKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := s.slots[slot]
	info.state = SlotUploaded
	info.objectKey = objectKey
}

// Fail marks a slot's upload as failed. The caller may Begin again.
func (s *Session) Fail(slot Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[slot].state = SlotFailed
}

// Key returns the uploaded object key for a slot, if any.
func (s *Session) Key(slot Slot) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := s.slots[slot]
	return info.objectKey, info.state == SlotUploaded
}

// State returns the current state of a slot.
func (s *Session) State(slot Slot) SlotState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[slot].state
}

// Confirm marks the owning submission as accepted; confirmed sessions
// are never cleaned up.
func (s *Session) Confirm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmed = true
}

// Confirmed reports whether the submission was accepted.
func (s *Session) Confirmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmed
}

// Orphans returns the refs of every uploaded artifact when the session
// ends unconfirmed. A confirmed session has no orphans.
func (s *Session) Orphans() []MediaRef {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.confirmed {
		return nil
	}
	refs := make([]MediaRef, 0, len(s.slots))
	for _, slot := range []Slot{SlotImage, SlotVideo, SlotThumbnail} {
		info := s.slots[slot]
		if info.state == SlotUploaded && info.objectKey != "" {
			refs = append(refs, MediaRef{ObjectKey: info.objectKey, Kind: slot.Kind()})
		}
	}
	return refs
}
