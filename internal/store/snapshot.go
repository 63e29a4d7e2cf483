// Package store persists the catalog: the primary JSON snapshot, the CSV
// export, and an optional Postgres mirror.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/clipindex/harvester/internal/catalog"
)

// SnapshotStore reads and writes the primary record snapshot: one
// pretty-printed UTF-8 JSON array, human-diffable.
type SnapshotStore struct {
	path string
}

// NewSnapshotStore returns a store backed by the file at path.
func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

// Load reads the snapshot. A missing file is a normal first run and yields an
// empty snapshot; an unreadable or corrupt file yields an empty snapshot AND
// an error, so the caller can log it and carry on.
func (s *SnapshotStore) Load() (catalog.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return catalog.Snapshot{}, nil
	}
	if err != nil {
		return catalog.Snapshot{}, fmt.Errorf("read snapshot %s: %w", s.path, err)
	}

	var records []catalog.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return catalog.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", s.path, err)
	}
	return catalog.NewSnapshot(records), nil
}

// Save writes the records atomically: the new snapshot lands under a
// temporary name in the target directory and is renamed over the old file,
// so a crash mid-write never leaves a truncated snapshot behind.
func (s *SnapshotStore) Save(records []catalog.Record) error {
	data, err := EncodeRecords(records)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create snapshot dir %s: %w", dir, err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot %s: %w", s.path, err)
	}
	return nil
}

// EncodeRecords renders records as the snapshot wire format. The archive
// writes the same bytes, so archived copies diff cleanly against the live
// snapshot.
func EncodeRecords(records []catalog.Record) ([]byte, error) {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	return data, nil
}
