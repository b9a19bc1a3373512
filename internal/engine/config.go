package engine

import (
	"fmt"
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from main.
// There are no package-level singletons: every component receives the
// parts of the config it needs through its constructor.
type Config struct {
	BaseURL     string // InnoServe award page
	EditionFrom int    // first competition edition to crawl (inclusive)
	EditionTo   int    // last competition edition to crawl (inclusive)
	OutputCSV   string
	DownloadDir string
	TrackerDB   string // sqlite run-state DB ("" = disabled)
	DatabaseURL string // optional Postgres record mirror
	RedisURL    string // optional L2 cache

	GroqAPIKey         string
	TranscribeModel    string
	TranscribeInterval time.Duration // min spacing between transcription calls

	LLMAPIKey      string
	LLMAPIBase     string
	LLMModel       string
	LLMTemperature float64
	LLMMaxTokens   int
	LLMClient      LLMClient

	MaxContentChars   int
	FetchTimeout      time.Duration
	DownloadTimeout   time.Duration
	TranscribeTimeout time.Duration

	CacheTTL             time.Duration
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	HTTPClient *http.Client
}

// Validate checks that required credentials are present before any
// crawling begins. Returns a *ConfigError so startup failures are
// distinguishable from per-item errors.
func (c Config) Validate() error {
	if c.GroqAPIKey == "" {
		return &ConfigError{Field: "GROQ_API_KEY"}
	}
	if c.LLMAPIKey == "" {
		return &ConfigError{Field: "LLM_API_KEY"}
	}
	if c.EditionFrom > c.EditionTo {
		return &ConfigError{Field: "EDITION_FROM", Reason: fmt.Sprintf("edition range %d..%d is empty", c.EditionFrom, c.EditionTo)}
	}
	return nil
}
