package mediacache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// ErrNotFound is returned by DiskStore.Read when no usable record exists
// for a key. Corrupt records are deleted and reported the same way.
var ErrNotFound = errors.New("record not found")

// DiskStore is the persistent tier of the media cache. Every file
// operation serializes through one mutex so two writes to the same
// sanitized filename can never race.
type DiskStore struct {
	dir    string
	mu     sync.Mutex
	logger *log.Logger
}

// NewDiskStore creates the persistent-tier container directory if needed.
func NewDiskStore(dir string, logger *log.Logger) (*DiskStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &DiskStore{
		dir:    dir,
		logger: logger.With("component", "mediacache.disk"),
	}, nil
}

// Write persists one record, replacing any previous file for the key.
func (s *DiskStore) Write(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.path(rec.Key), data, 0o644); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Read loads the record for a key. A record that fails to decode is
// deleted on the spot and reported as ErrNotFound.
func (s *DiskStore) Read(key string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(s.path(key))
}

func (s *DiskStore) readLocked(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("deleting corrupt cache record", "path", path, "err", err)
		_ = os.Remove(path)
		return nil, ErrNotFound
	}
	return &rec, nil
}

// Remove deletes the record for a key. A missing file is not an error.
func (s *DiskStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove record: %w", err)
	}
	return nil
}

// Clear drops every record and recreates an empty container directory,
// so writes issued after a Clear cannot fail on a missing directory.
func (s *DiskStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("clear cache directory: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("recreate cache directory: %w", err)
	}
	return nil
}

// LoadAll enumerates every decodable record in the container. Corrupt
// files are deleted as they are encountered.
func (s *DiskStore) LoadAll() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read cache directory: %w", err)
	}

	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordSuffix) {
			continue
		}
		rec, err := s.readLocked(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				s.logger.Warn("skipping unreadable cache record", "file", entry.Name(), "err", err)
			}
			continue
		}
		records = append(records, *rec)
	}
	return records, nil
}

func (s *DiskStore) path(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+recordSuffix)
}
