package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saltcrest/swellcast/internal/api"
)

func TestSlotKind(t *testing.T) {
	assert.Equal(t, api.KindImage, SlotImage.Kind())
	assert.Equal(t, api.KindVideo, SlotVideo.Kind())
	assert.Equal(t, api.KindImage, SlotThumbnail.Kind(), "thumbnails upload as images")
}

func TestSessionLifecycle(t *testing.T) {
	sess := NewSession()
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, SlotEmpty, sess.State(SlotImage))

	require.NoError(t, sess.Begin(SlotImage))
	assert.Equal(t, SlotUploading, sess.State(SlotImage))

	sess.Complete(SlotImage, "obj-1")
	assert.Equal(t, SlotUploaded, sess.State(SlotImage))

	key, ok := sess.Key(SlotImage)
	require.True(t, ok)
	assert.Equal(t, "obj-1", key)
}

func TestSessionFailedSlotCanRetry(t *testing.T) {
	sess := NewSession()

	require.NoError(t, sess.Begin(SlotVideo))
	sess.Fail(SlotVideo)
	assert.Equal(t, SlotFailed, sess.State(SlotVideo))

	// The caller may retry a failed slot.
	require.NoError(t, sess.Begin(SlotVideo))
	sess.Complete(SlotVideo, "obj-v")
	assert.Equal(t, SlotUploaded, sess.State(SlotVideo))
}

func TestSessionCannotReenterActiveSlot(t *testing.T) {
	sess := NewSession()

	require.NoError(t, sess.Begin(SlotImage))
	assert.Error(t, sess.Begin(SlotImage))

	sess.Complete(SlotImage, "obj-1")
	assert.Error(t, sess.Begin(SlotImage))
}

func TestSessionOrphans(t *testing.T) {
	sess := NewSession()

	require.NoError(t, sess.Begin(SlotImage))
	sess.Complete(SlotImage, "a")
	require.NoError(t, sess.Begin(SlotVideo))
	sess.Complete(SlotVideo, "b")
	// Thumbnail never uploaded.

	orphans := sess.Orphans()
	require.Len(t, orphans, 2)
	assert.ElementsMatch(t, []MediaRef{
		{ObjectKey: "a", Kind: api.KindImage},
		{ObjectKey: "b", Kind: api.KindVideo},
	}, orphans)
}

func TestSessionConfirmedHasNoOrphans(t *testing.T) {
	sess := NewSession()

	require.NoError(t, sess.Begin(SlotImage))
	sess.Complete(SlotImage, "a")

	sess.Confirm()
	assert.True(t, sess.Confirmed())
	assert.Empty(t, sess.Orphans())
}

func TestSessionFailedSlotIsNotOrphaned(t *testing.T) {
	sess := NewSession()

	require.NoError(t, sess.Begin(SlotImage))
	sess.Complete(SlotImage, "a")
	require.NoError(t, sess.Begin(SlotVideo))
	sess.Fail(SlotVideo)

	orphans := sess.Orphans()
	require.Len(t, orphans, 1)
	assert.Equal(t, "a", orphans[0].ObjectKey)
}
