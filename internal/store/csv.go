package store

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/clipindex/harvester/internal/catalog"
)

// utf8BOM keeps spreadsheet tooling from misreading the export's encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter mirrors the snapshot to a delimited table with a header row.
type CSVWriter struct {
	path string
}

// NewCSVWriter returns a writer targeting the file at path.
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

// Write replaces the export with a header row and one row per record, in the
// order given.
func (w *CSVWriter) Write(records []catalog.Record) error {
	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create export dir %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open export %s: %w", w.path, err)
	}
	defer f.Close()

	bufw := bufio.NewWriter(f)
	if _, err := bufw.Write(utf8BOM); err != nil {
		return fmt.Errorf("write export %s: %w", w.path, err)
	}

	cw := csv.NewWriter(bufw)
	if err := cw.Write(catalog.Columns); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(rec.Row()); err != nil {
			return fmt.Errorf("write export row %s: %w", rec.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush export %s: %w", w.path, err)
	}
	if err := bufw.Flush(); err != nil {
		return fmt.Errorf("flush export %s: %w", w.path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync export %s: %w", w.path, err)
	}
	return nil
}
