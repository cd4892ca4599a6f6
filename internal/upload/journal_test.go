package upload

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saltcrest/swellcast/internal/api"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := NewJournal(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournalRequiresPath(t *testing.T) {
	_, err := NewJournal("  ")
	assert.Error(t, err)
}

func TestJournalRecordAndResolve(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, MediaRef{ObjectKey: "a", Kind: api.KindImage}))
	require.NoError(t, j.Record(ctx, MediaRef{ObjectKey: "b", Kind: api.KindVideo}))

	pending, err := j.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	keys := []string{pending[0].ObjectKey, pending[1].ObjectKey}
	assert.ElementsMatch(t, []string{"a", "b"}, keys)
	assert.False(t, pending[0].RecordedAt.IsZero())

	require.NoError(t, j.Resolve(ctx, "a"))

	pending, err = j.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "b", pending[0].ObjectKey)
}

func TestJournalRecordIsIdempotentPerKey(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, MediaRef{ObjectKey: "a", Kind: api.KindImage}))
	require.NoError(t, j.Record(ctx, MediaRef{ObjectKey: "a", Kind: api.KindImage}))

	pending, err := j.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestJournalSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.db")
	ctx := context.Background()

	j, err := NewJournal(path)
	require.NoError(t, err)
	require.NoError(t, j.Record(ctx, MediaRef{ObjectKey: "a", Kind: api.KindVideo}))
	require.NoError(t, j.Close())

	reopened, err := NewJournal(path)
	require.NoError(t, err)
	defer reopened.Close()

	pending, err := reopened.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "a", pending[0].ObjectKey)
}
