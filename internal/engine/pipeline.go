package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// RecordMirror is an optional secondary sink for enriched records
// (e.g. Postgres). Mirror failures never fail an item: the CSV store is
// the source of truth.
type RecordMirror interface {
	Insert(ctx context.Context, rec EnrichedRecord) error
}

// Pipeline composes discovery, fetch, download, transcription, enrichment
// and persistence. Items are processed sequentially; one item's failure
// never blocks the next.
type Pipeline struct {
	Discoverer  Discoverer
	Fetcher     Fetcher
	Downloader  Downloader
	Transcriber Transcriber
	Enricher    Enricher
	Store       ResultStore
	Tracker     RunTracker   // may be nil
	Mirror      RecordMirror // may be nil
}

// ItemFailure records one item that ended in Failed@<stage>.
type ItemFailure struct {
	ItemID string
	Stage  Stage
	Err    error
}

// RunReport summarizes one pipeline pass.
type RunReport struct {
	Discovered int
	Persisted  int
	Skipped    int
	Failures   []ItemFailure
}

// Run executes one full pipeline pass. It returns an error only when
// discovery itself fails (base source unreachable); per-item failures are
// collected in the report and the run completes.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	items, err := p.Discoverer.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}

	report := &RunReport{Discovered: len(items)}
	slog.Info("discovery complete", slog.Int("items", len(items)))

	for _, item := range items {
		if ctx.Err() != nil {
			slog.Warn("run interrupted", slog.Any("error", ctx.Err()))
			break
		}

		if p.Store.Contains(item.ID) {
			report.Skipped++
			incrItemsSkipped()
			p.mark(ctx, item.ID, StageSkipped, nil)
			continue
		}

		if stage, err := p.processItem(ctx, item); err != nil {
			report.Failures = append(report.Failures, ItemFailure{ItemID: item.ID, Stage: stage, Err: err})
			incrItemsFailed()
			p.mark(ctx, item.ID, stage, err)
			slog.Error("item failed",
				slog.String("item", item.ID),
				slog.String("stage", string(stage)),
				slog.Any("error", err),
			)
			continue
		}

		report.Persisted++
		incrItemsPersisted()
		p.mark(ctx, item.ID, StagePersisted, nil)
	}

	return report, nil
}

// processItem walks one item through the per-item state machine. On error
// it returns the stage the item failed in.
func (p *Pipeline) processItem(ctx context.Context, item Item) (Stage, error) {
	item, err := p.Fetcher.Fetch(ctx, item)
	if err != nil {
		return StageFetching, err
	}

	var asset *MediaAsset
	if item.MediaURL != "" {
		asset, err = p.Downloader.Download(ctx, item.MediaURL, item.ID)
		if err != nil {
			return StageDownloading, err
		}
	}

	var transcript string
	if asset != nil {
		transcript, err = p.Transcriber.Transcribe(ctx, asset)
		if err != nil {
			// Partial enrichment beats dropping the item: continue with an
			// empty transcript.
			var terr *TranscriptionError
			if !errors.As(err, &terr) {
				return StageTranscribing, err
			}
			slog.Warn("transcription failed, enriching without transcript",
				slog.String("item", item.ID), slog.Any("error", err))
			transcript = ""
		}
	}

	summary, technologies, err := p.Enricher.Enrich(ctx, item, transcript)
	if err != nil {
		return StageEnriching, err
	}

	rec := EnrichedRecord{
		ItemID:       item.ID,
		Title:        item.Title,
		Description:  describeItem(item),
		Summary:      summary,
		Technologies: technologies,
		SourceURL:    item.SourceURL,
	}
	if err := p.Store.Append(rec); err != nil {
		return StagePersisted, err
	}

	if p.Mirror != nil {
		if err := p.Mirror.Insert(ctx, rec); err != nil {
			slog.Warn("record mirror insert failed", slog.String("item", item.ID), slog.Any("error", err))
		}
	}

	slog.Info("item persisted",
		slog.String("item", item.ID),
		slog.String("title", item.Title),
		slog.Int("technologies", len(technologies)),
	)
	return StagePersisted, nil
}

// mark forwards a stage transition to the tracker, if one is configured.
func (p *Pipeline) mark(ctx context.Context, itemID string, stage Stage, failure error) {
	if p.Tracker != nil {
		p.Tracker.Mark(ctx, itemID, stage, failure)
	}
}

// describeItem renders the CSV description: the detail text when the site
// has one, otherwise the listing columns.
func describeItem(item Item) string {
	if strings.TrimSpace(item.Description) != "" {
		return item.Description
	}
	parts := make([]string, 0, 3)
	for _, s := range []string{item.School, item.Group, item.Rank} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " / ")
}
