package media

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/anatolykoptev/go_innoserve/internal/engine"
)

func TestDownloadEmptyURL(t *testing.T) {
	d := NewYtDlp(newStore(t), time.Minute)

	asset, err := d.Download(context.Background(), "", "29-abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if asset != nil {
		t.Errorf("asset = %+v, want nil for empty URL", asset)
	}
}

func TestDownloadReturnsCachedAudio(t *testing.T) {
	store := newStore(t)
	if err := os.WriteFile(store.AudioPath("29-abc"), []byte("mp3"), 0o640); err != nil {
		t.Fatal(err)
	}

	d := NewYtDlp(store, time.Minute)
	// Binary that cannot run: a cache hit must never exec it.
	d.binary = "/nonexistent/yt-dlp"

	asset, err := d.Download(context.Background(), "https://youtu.be/abc", "29-abc")
	if err != nil {
		t.Fatalf("cached download errored: %v", err)
	}
	if asset == nil || asset.Path != store.AudioPath("29-abc") {
		t.Errorf("asset = %+v, want the stored audio", asset)
	}
}

func TestDownloadCommandFailure(t *testing.T) {
	d := NewYtDlp(newStore(t), time.Minute)
	d.binary = "/nonexistent/yt-dlp"

	_, err := d.Download(context.Background(), "https://youtu.be/abc", "29-abc")
	if err == nil {
		t.Fatal("expected error when the binary is missing")
	}
	var derr *engine.DownloadError
	if !errors.As(err, &derr) {
		t.Fatalf("error type = %T, want *engine.DownloadError", err)
	}
	if derr.MediaURL != "https://youtu.be/abc" {
		t.Errorf("media URL = %q", derr.MediaURL)
	}
}

func TestDownloadNoOutputFile(t *testing.T) {
	d := NewYtDlp(newStore(t), time.Minute)
	// "true" exits 0 without writing anything.
	d.binary = "true"

	_, err := d.Download(context.Background(), "https://youtu.be/abc", "29-abc")
	if err == nil {
		t.Fatal("expected error when no audio file is produced")
	}
	var derr *engine.DownloadError
	if !errors.As(err, &derr) {
		t.Fatalf("error type = %T, want *engine.DownloadError", err)
	}
}
