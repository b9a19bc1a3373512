// Package media manages the local content store: one audio asset and one
// transcript per item, keyed by item ID. The store is a cache — files are
// never re-fetched or recomputed once present.
package media

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/anatolykoptev/go_innoserve/internal/engine"
)

// Store is the on-disk content store.
type Store struct {
	dir string
}

// NewStore creates the store directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("content store: mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store root.
func (s *Store) Dir() string { return s.dir }

// AudioPath is the canonical audio location for an item.
func (s *Store) AudioPath(itemID string) string {
	return filepath.Join(s.dir, engine.SanitizeFilename(itemID)+".mp3")
}

// TranscriptPath is the canonical transcript location for an item.
func (s *Store) TranscriptPath(itemID string) string {
	return filepath.Join(s.dir, engine.SanitizeFilename(itemID)+".txt")
}

// HasAudio reports whether an audio asset already exists for the item.
func (s *Store) HasAudio(itemID string) bool {
	return fileExists(s.AudioPath(itemID))
}

// HasTranscript reports whether a transcript already exists for the item.
func (s *Store) HasTranscript(itemID string) bool {
	return fileExists(s.TranscriptPath(itemID))
}

// Audio returns the audio asset for an item, or nil when absent.
func (s *Store) Audio(itemID string) *engine.MediaAsset {
	if !s.HasAudio(itemID) {
		return nil
	}
	return &engine.MediaAsset{ItemID: itemID, Path: s.AudioPath(itemID), Kind: engine.KindAudio}
}

// ReadTranscript returns the stored transcript text for an item.
func (s *Store) ReadTranscript(itemID string) (string, error) {
	data, err := os.ReadFile(s.TranscriptPath(itemID))
	if err != nil {
		return "", fmt.Errorf("content store: read transcript: %w", err)
	}
	return string(data), nil
}

// WriteTranscript persists a transcript. Written to a temp file and renamed
// so a crash mid-write never leaves a half transcript that a later run
// would mistake for a cached one.
func (s *Store) WriteTranscript(itemID, text string) error {
	path := s.TranscriptPath(itemID)
	tmp, err := os.CreateTemp(s.dir, ".transcript-*")
	if err != nil {
		return fmt.Errorf("content store: temp file: %w", err)
	}
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("content store: write transcript: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("content store: close transcript: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("content store: rename transcript: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
