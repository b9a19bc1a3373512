package engine_test

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anatolykoptev/go_innoserve/internal/engine"
	"github.com/anatolykoptev/go_innoserve/internal/engine/records"
)

// stubSource serves a fixed item list and passes items through Fetch
// unchanged.
type stubSource struct{ items []engine.Item }

func (s *stubSource) Discover(context.Context) ([]engine.Item, error) { return s.items, nil }
func (s *stubSource) Fetch(_ context.Context, item engine.Item) (engine.Item, error) {
	return item, nil
}

type stubDownloader struct{ dir string }

func (d *stubDownloader) Download(_ context.Context, _, itemID string) (*engine.MediaAsset, error) {
	path := filepath.Join(d.dir, itemID+".mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o640); err != nil {
		return nil, err
	}
	return &engine.MediaAsset{ItemID: itemID, Path: path, Kind: engine.KindAudio}, nil
}

type stubTranscriber struct{ text string }

func (t *stubTranscriber) Transcribe(context.Context, *engine.MediaAsset) (string, error) {
	return t.text, nil
}

// keywordEnricher labels items from a fixed vocabulary, standing in for the
// LLM: any vocabulary word present in the item text becomes a technology.
type keywordEnricher struct{ vocabulary []string }

func (e *keywordEnricher) Enrich(_ context.Context, item engine.Item, transcript string) (string, []string, error) {
	text := strings.ToLower(item.Title + " " + item.Description + " " + transcript)
	var techs []string
	for _, word := range e.vocabulary {
		if strings.Contains(text, strings.ToLower(word)) {
			techs = append(techs, word)
		}
	}
	return "Summary: " + item.Title, techs, nil
}

func TestPipelinePersistsEnrichedRowsToCSV(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "competition_results.csv")

	store, err := records.OpenCSVStore(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	items := []engine.Item{
		{
			ID:          "29-dQw4w9WgXcQ",
			Title:       "Robotic arm",
			Description: "Robotic arm using computer vision",
			MediaURL:    "https://youtu.be/dQw4w9WgXcQ",
			SourceURL:   "https://innoserve.tca.org.tw/award.aspx",
		},
		{
			ID:        "29-textonly1",
			Title:     "Campus chatbot",
			SourceURL: "https://innoserve.tca.org.tw/award.aspx",
		},
	}

	src := &stubSource{items: items}
	p := &engine.Pipeline{
		Discoverer:  src,
		Fetcher:     src,
		Downloader:  &stubDownloader{dir: dir},
		Transcriber: &stubTranscriber{text: "we control the arm with computer vision"},
		Enricher:    &keywordEnricher{vocabulary: []string{"computer vision", "chatbot"}},
		Store:       store,
	}

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Persisted != 2 || len(report.Failures) != 0 {
		t.Fatalf("report = %+v, want 2 persisted", report)
	}
	store.Close()

	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	arm := rows[1]
	if arm[0] != "29-dQw4w9WgXcQ" {
		t.Errorf("item_id = %q", arm[0])
	}
	if !strings.Contains(arm[4], "computer vision") {
		t.Errorf("technologies = %q, want computer vision detected", arm[4])
	}

	// A second run over the same CSV is a no-op.
	reopened, err := records.OpenCSVStore(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	p.Store = reopened

	report, err = p.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.Persisted != 0 || report.Skipped != 2 {
		t.Errorf("second run report = %+v, want everything skipped", report)
	}
}
