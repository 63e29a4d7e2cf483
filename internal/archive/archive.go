// Package archive keeps point-in-time copies of the snapshot in a blob
// store, one object per run, so history survives the snapshot's own
// overwrite cycle.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/clipindex/harvester/internal/catalog"
	"github.com/clipindex/harvester/internal/store"
)

// BlobStore writes one named object and returns its URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Clock supplies the timestamps embedded in archive object names.
type Clock interface {
	Now() time.Time
}

// Archiver names and stores snapshot copies.
type Archiver struct {
	blobs BlobStore
	clock Clock
}

// New constructs an Archiver over the given blob store.
func New(blobs BlobStore, clock Clock) *Archiver {
	return &Archiver{
		blobs: blobs,
		clock: clock,
	}
}

// Archive stores the records under a timestamped, run-scoped object name and
// returns the object URI. The bytes match the primary snapshot exactly.
func (a *Archiver) Archive(ctx context.Context, runID string, records []catalog.Record) (string, error) {
	data, err := store.EncodeRecords(records)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("catalog/%s-%s.json", a.clock.Now().UTC().Format("20060102T150405Z"), runID)
	uri, err := a.blobs.PutObject(ctx, name, "application/json", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("archive snapshot: %w", err)
	}
	return uri, nil
}
