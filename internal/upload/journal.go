package upload

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/saltcrest/swellcast/internal/api"
)

// Orphan is a journaled object whose best-effort delete did not go
// through at session teardown.
type Orphan struct {
	ObjectKey  string
	Kind       api.MediaKind
	RecordedAt time.Time
}

// Journal persists orphaned object keys so deletes that fail during
// session cleanup can be retried later. Cleanup stays best-effort for the
// user-visible flow; the journal is the operational follow-up.
type Journal struct {
	db *sql.DB
}

// NewJournal opens (or creates) the journal database at path.
func NewJournal(path string) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	j := &Journal{db: db}
	if err := j.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) init(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := j.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := j.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS orphaned_media (
		object_key TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	);`); err != nil {
		return fmt.Errorf("create orphaned_media: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record stores one orphan, replacing any previous row for the key.
func (j *Journal) Record(ctx context.Context, ref MediaRef) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO orphaned_media (object_key, kind, recorded_at) VALUES (?, ?, ?)
		 ON CONFLICT(object_key) DO UPDATE SET kind = excluded.kind`,
		ref.ObjectKey, string(ref.Kind), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record orphan: %w", err)
	}
	return nil
}

// Pending lists every journaled orphan, oldest first.
func (j *Journal) Pending(ctx context.Context) ([]Orphan, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT object_key, kind, recorded_at FROM orphaned_media ORDER BY recorded_at`)
	if err != nil {
		return nil, fmt.Errorf("list orphans: %w", err)
	}
	defer rows.Close()

	var orphans []Orphan
	for rows.Next() {
		var o Orphan
		var kind, recordedAt string
		if err := rows.Scan(&o.ObjectKey, &kind, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan orphan: %w", err)
		}
		o.Kind = api.MediaKind(kind)
		if ts, err := time.Parse(time.RFC3339, recordedAt); err == nil {
			o.RecordedAt = ts
		}
		orphans = append(orphans, o)
	}
	return orphans, rows.Err()
}

// Resolve removes a journal row after its delete finally succeeded.
func (j *Journal) Resolve(ctx context.Context, objectKey string) error {
	_, err := j.db.ExecContext(ctx,
		`DELETE FROM orphaned_media WHERE object_key = ?`, objectKey)
	if err != nil {
		return fmt.Errorf("resolve orphan: %w", err)
	}
	return nil
}
