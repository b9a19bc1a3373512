// go_innoserve — InnoServe award crawler.
//
// Crawls the competition award pages, downloads linked YouTube audio,
// transcribes it via the Groq Whisper API, labels each entry with an LLM
// (summary + technology keywords) and appends the results to a CSV file.
// Re-runs are incremental: recorded items are skipped, downloaded audio and
// transcripts are reused.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	kitllm "github.com/anatolykoptev/go-kit/llm"
	"github.com/joho/godotenv"

	"github.com/anatolykoptev/go_innoserve/internal/engine"
	"github.com/anatolykoptev/go_innoserve/internal/engine/media"
	"github.com/anatolykoptev/go_innoserve/internal/engine/records"
	"github.com/anatolykoptev/go_innoserve/internal/engine/sources"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found")
	}

	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting go_innoserve",
		slog.String("version", version),
		slog.Int("edition_from", cfg.EditionFrom),
		slog.Int("edition_to", cfg.EditionTo),
		slog.String("output", cfg.OutputCSV),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, cleanup, err := buildPipeline(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer cleanup()

	report, err := pipeline.Run(ctx)
	if err != nil {
		// Only discovery-level failures reach here; per-item failures are in the report.
		slog.Error("run failed", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("run complete",
		slog.Int("discovered", report.Discovered),
		slog.Int("persisted", report.Persisted),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", len(report.Failures)),
	)
	for _, f := range report.Failures {
		slog.Warn("failed item", slog.String("item", f.ItemID), slog.String("stage", string(f.Stage)), slog.Any("error", f.Err))
	}

	fmt.Print(engine.FormatMetrics())
}

func loadConfig() engine.Config {
	return engine.Config{
		BaseURL:     env.Str("INNOSERVE_URL", "https://innoserve.tca.org.tw/award.aspx"),
		EditionFrom: env.Int("EDITION_FROM", 25),
		EditionTo:   env.Int("EDITION_TO", 29),
		OutputCSV:   env.Str("OUTPUT_CSV", "competition_results.csv"),
		DownloadDir: env.Str("DOWNLOAD_DIR", "downloads"),
		TrackerDB:   env.Str("TRACKER_DB", filepath.Join(env.Str("DOWNLOAD_DIR", "downloads"), "run_state.db")),
		DatabaseURL: env.Str("DATABASE_URL", ""),
		RedisURL:    env.Str("REDIS_URL", ""),

		GroqAPIKey:         env.Str("GROQ_API_KEY", ""),
		TranscribeModel:    env.Str("TRANSCRIBE_MODEL", "whisper-large-v3"),
		TranscribeInterval: env.Duration("TRANSCRIBE_INTERVAL", 10*time.Second),

		LLMAPIKey:      env.Str("LLM_API_KEY", env.Str("GEMINI_API_KEY", "")),
		LLMAPIBase:     env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:       env.Str("LLM_MODEL", "gemini-2.0-flash"),
		LLMTemperature: env.Float("LLM_TEMPERATURE", 0.5),
		LLMMaxTokens:   env.Int("LLM_MAX_TOKENS", 4096),

		MaxContentChars:   env.Int("MAX_CONTENT_CHARS", 6000),
		FetchTimeout:      env.Duration("FETCH_TIMEOUT", 15*time.Second),
		DownloadTimeout:   env.Duration("DOWNLOAD_TIMEOUT", 5*time.Minute),
		TranscribeTimeout: env.Duration("TRANSCRIBE_TIMEOUT", 2*time.Minute),

		CacheTTL:             env.Duration("CACHE_TTL", 24*time.Hour),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
	}
}

// buildPipeline wires every component from the config. The returned cleanup
// closes stores and connections.
func buildPipeline(ctx context.Context, cfg engine.Config) (*engine.Pipeline, func(), error) {
	cache := engine.NewCache(cfg.RedisURL, cfg.CacheTTL, cfg.CacheMaxEntries, cfg.CacheCleanupInterval)

	store, err := records.OpenCSVStore(cfg.OutputCSV)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("result store opened", slog.String("path", store.Path()), slog.Int("recorded", store.Len()))

	contentStore, err := media.NewStore(cfg.DownloadDir)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	var tracker engine.RunTracker
	var trackerHandle *records.Tracker
	if cfg.TrackerDB != "" {
		trackerHandle, err = records.OpenTracker(cfg.TrackerDB)
		if err != nil {
			slog.Warn("run tracker disabled", slog.Any("error", err))
		} else {
			tracker = trackerHandle
		}
	}

	var mirror engine.RecordMirror
	var pg *records.Postgres
	if cfg.DatabaseURL != "" {
		pg, err = records.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Warn("postgres mirror disabled", slog.Any("error", err))
		} else {
			mirror = pg
			slog.Info("postgres mirror connected")
		}
	}

	cfg.LLMClient = &kitLLMClient{client: kitllm.NewClient(cfg.LLMAPIBase, cfg.LLMAPIKey, cfg.LLMModel,
		kitllm.WithMaxTokens(cfg.LLMMaxTokens),
		kitllm.WithTemperature(cfg.LLMTemperature),
		kitllm.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
	)}

	innoserve := sources.NewInnoServe(cfg, cache)
	pipeline := &engine.Pipeline{
		Discoverer:  innoserve,
		Fetcher:     innoserve,
		Downloader:  media.NewYtDlp(contentStore, cfg.DownloadTimeout),
		Transcriber: sources.NewGroqTranscriber(cfg, contentStore),
		Enricher:    engine.NewLLMEnricher(cfg.LLMClient, cfg.LLMModel, cfg.MaxContentChars, cache),
		Store:       store,
		Tracker:     tracker,
		Mirror:      mirror,
	}

	cleanup := func() {
		if err := store.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			slog.Warn("result store close failed", slog.Any("error", err))
		}
		if trackerHandle != nil {
			if failed, err := trackerHandle.Failed(context.Background()); err == nil && len(failed) > 0 {
				slog.Info("items failing across runs", slog.Int("count", len(failed)))
			}
			trackerHandle.Close()
		}
		if pg != nil {
			pg.Close()
		}
	}
	return pipeline, cleanup, nil
}

// kitLLMClient adapts go-kit's llm client to the engine's narrow interface.
type kitLLMClient struct {
	client *kitllm.Client
}

func (k *kitLLMClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	return k.client.Complete(ctx, system, prompt)
}
