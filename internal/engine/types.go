package engine

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/url"
	"strings"
)

// Item is one competition entry discovered on an award listing page.
// Immutable once read; it exists only for the duration of a pipeline pass.
type Item struct {
	ID          string
	Edition     int    // competition edition (25, 26, ...)
	Group       string // competition track
	Rank        string // award rank
	School      string
	Title       string
	Description string
	MediaURL    string // YouTube link, "" when the entry has none
	DetailURL   string // project detail page, "" when the entry has none
	SourceURL   string // listing or detail page the item came from
}

// ItemID derives a stable identifier for an award entry. Entries with a
// YouTube link use the video ID (stable even if the title is edited on the
// site); entries without one fall back to a hash of the listing fields.
func ItemID(edition int, group, rank, title, mediaURL string) string {
	if vid := YouTubeVideoID(mediaURL); vid != "" {
		return fmt.Sprintf("%d-%s", edition, vid)
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s|%s", edition, group, rank, title)))
	return fmt.Sprintf("%d-%x", edition, sum[:6])
}

// YouTubeVideoID extracts the video ID from watch/shorts/youtu.be URLs.
// Returns "" for anything it does not recognize.
func YouTubeVideoID(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	switch {
	case strings.HasSuffix(u.Host, "youtu.be"):
		return strings.Trim(u.Path, "/")
	case strings.HasSuffix(u.Host, "youtube.com"):
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
			if rest, ok := strings.CutPrefix(u.Path, prefix); ok {
				if i := strings.IndexByte(rest, '/'); i >= 0 {
					rest = rest[:i]
				}
				return rest
			}
		}
	}
	return ""
}

// AssetKind distinguishes content-store entries for one item.
type AssetKind string

const (
	KindAudio      AssetKind = "audio"
	KindTranscript AssetKind = "text"
)

// MediaAsset is a downloaded or derived file in the local content store.
type MediaAsset struct {
	ItemID string
	Path   string
	Kind   AssetKind
}

// EnrichedRecord is the terminal representation written to the result store.
type EnrichedRecord struct {
	ItemID       string
	Title        string
	Description  string
	Summary      string
	Technologies []string
	SourceURL    string
}

// Stage names an orchestrator state for one item.
type Stage string

const (
	StageDiscovered   Stage = "discovered"
	StageFetching     Stage = "fetching"
	StageDownloading  Stage = "downloading"
	StageTranscribing Stage = "transcribing"
	StageEnriching    Stage = "enriching"
	StagePersisted    Stage = "persisted"
	StageSkipped      Stage = "skipped"
)

// Discoverer produces the ordered item sequence for one run.
type Discoverer interface {
	Discover(ctx context.Context) ([]Item, error)
}

// Fetcher hydrates a discovered item with its detail-page fields.
type Fetcher interface {
	Fetch(ctx context.Context, item Item) (Item, error)
}

// Downloader fetches the media asset for an item into the content store.
// Returns (nil, nil) when the item has no media URL.
type Downloader interface {
	Download(ctx context.Context, mediaURL, itemID string) (*MediaAsset, error)
}

// Transcriber turns a downloaded audio asset into plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, asset *MediaAsset) (string, error)
}

// Enricher produces a summary and technology keywords for one item.
type Enricher interface {
	Enrich(ctx context.Context, item Item, transcript string) (summary string, technologies []string, err error)
}

// ResultStore is the append-only record of processed items. Its Contains
// check is the single source of truth for "already processed".
type ResultStore interface {
	Contains(itemID string) bool
	Append(rec EnrichedRecord) error
}

// RunTracker records per-item stage transitions. Implementations must be
// safe to call with a nil receiver guard at the pipeline level; tracking is
// observational and never gates processing.
type RunTracker interface {
	Mark(ctx context.Context, itemID string, stage Stage, failure error)
}
