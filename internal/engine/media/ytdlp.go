package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/anatolykoptev/go_innoserve/internal/engine"
)

// YtDlp downloads media audio with the yt-dlp binary (yt-dlp + ffmpeg must
// be on PATH). Downloads are idempotent against the content store.
type YtDlp struct {
	binary  string
	store   *Store
	timeout time.Duration
}

// NewYtDlp builds a downloader writing into store.
func NewYtDlp(store *Store, timeout time.Duration) *YtDlp {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &YtDlp{binary: "yt-dlp", store: store, timeout: timeout}
}

// Download fetches the audio track for mediaURL into the content store.
// Returns (nil, nil) when mediaURL is empty, and the existing asset without
// any network traffic when one is already stored for itemID.
func (d *YtDlp) Download(ctx context.Context, mediaURL, itemID string) (*engine.MediaAsset, error) {
	if mediaURL == "" {
		return nil, nil
	}

	if asset := d.store.Audio(itemID); asset != nil {
		engine.IncrDownloadsSkipped()
		slog.Debug("audio cached, skipping download", slog.String("item", itemID))
		return asset, nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	// Output template without extension: yt-dlp appends .mp3 after the
	// ffmpeg audio extraction step.
	outTemplate := strings.TrimSuffix(d.store.AudioPath(itemID), ".mp3") + ".%(ext)s"
	cmd := exec.CommandContext(ctx, d.binary,
		"-f", "bestaudio/best",
		"-x", "--audio-format", "mp3", "--audio-quality", "192K",
		"--no-warnings", "--no-progress", "--no-playlist",
		"-o", outTemplate,
		mediaURL,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	slog.Debug("downloading audio", slog.String("item", itemID), slog.String("url", mediaURL))
	if err := cmd.Run(); err != nil {
		return nil, &engine.DownloadError{
			MediaURL: mediaURL,
			Err:      fmt.Errorf("yt-dlp: %w: %s", err, engine.Truncate(stderr.String(), 500)),
		}
	}

	asset := d.store.Audio(itemID)
	if asset == nil {
		return nil, &engine.DownloadError{MediaURL: mediaURL, Err: errors.New("yt-dlp produced no audio file")}
	}
	engine.IncrDownloads()
	return asset, nil
}
