// Package records persists pipeline output: the append-only CSV result
// store (the source of truth for "already processed"), a sqlite run
// tracker, and an optional Postgres mirror.
package records

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/anatolykoptev/go_innoserve/internal/engine"
)

// csvHeader is written exactly once, when the file is created.
var csvHeader = []string{"item_id", "title", "description", "summary", "technologies", "source_url"}

// CSVStore is the append-only result store. Rows are serialized fully
// before a single append write, so a crash can never leave a partial row
// that a later run would mistake for a processed item.
type CSVStore struct {
	mu   sync.Mutex
	path string
	file *os.File
	seen map[string]struct{}
}

// OpenCSVStore opens (or creates) the result store and loads the item IDs
// of all existing rows for Contains checks.
func OpenCSVStore(path string) (*CSVStore, error) {
	seen := make(map[string]struct{})

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := loadSeen(data, seen); err != nil {
			return nil, fmt.Errorf("result store: %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// created below, header written first
	default:
		return nil, fmt.Errorf("result store: read %s: %w", path, err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("result store: open %s: %w", path, err)
	}

	s := &CSVStore{path: path, file: file, seen: seen}
	if len(data) == 0 {
		if err := s.writeRow(csvHeader); err != nil {
			file.Close()
			return nil, fmt.Errorf("result store: write header: %w", err)
		}
	}
	return s, nil
}

// loadSeen collects item IDs from existing rows. A trailing malformed line
// (e.g. from a crash mid-write on a pre-sync kernel flush) is ignored
// rather than treated as processed.
func loadSeen(data []byte, seen map[string]struct{}) error {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return nil //nolint:nilerr // tolerate a torn trailing row
		}
		if first {
			first = false
			if len(row) > 0 && row[0] == csvHeader[0] {
				continue
			}
		}
		if len(row) == len(csvHeader) && row[0] != "" {
			seen[row[0]] = struct{}{}
		}
	}
}

// Contains reports whether an item has already been recorded.
func (s *CSVStore) Contains(itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[itemID]
	return ok
}

// Append records one enriched item. Appending an already-recorded item is
// an error: the uniqueness invariant is load-bearing for idempotence.
func (s *CSVStore) Append(rec engine.EnrichedRecord) error {
	if rec.ItemID == "" {
		return fmt.Errorf("result store: empty item_id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[rec.ItemID]; ok {
		return fmt.Errorf("result store: duplicate item_id %s", rec.ItemID)
	}

	row := []string{
		rec.ItemID,
		rec.Title,
		rec.Description,
		rec.Summary,
		engine.JoinTechnologies(rec.Technologies),
		rec.SourceURL,
	}
	if err := s.writeRow(row); err != nil {
		return fmt.Errorf("result store: append %s: %w", rec.ItemID, err)
	}

	s.seen[rec.ItemID] = struct{}{}
	return nil
}

// writeRow serializes a row and appends it with one write + fsync.
func (s *CSVStore) writeRow(row []string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if _, err := s.file.Write(buf.Bytes()); err != nil {
		return err
	}
	return s.file.Sync()
}

// Len returns the number of recorded items.
func (s *CSVStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Close flushes and closes the underlying file.
func (s *CSVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// Path returns the store location, for logging.
func (s *CSVStore) Path() string { return s.path }
