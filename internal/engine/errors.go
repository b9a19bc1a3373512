package engine

import "fmt"

// ConfigError is a startup failure: the pipeline refuses to run.
// Everything else in this file is per-item and recoverable.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("config: %s is required", e.Field)
}

// StageError wraps an underlying failure with the pipeline stage it
// happened in. The orchestrator logs it, marks the item Failed@<stage>,
// and moves on.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// FetchError: a listing or detail page was unreachable after retry.
type FetchError struct{ Err error }

func (e *FetchError) Error() string { return "fetch: " + e.Err.Error() }
func (e *FetchError) Unwrap() error { return e.Err }

// ParseError: expected page structure was absent.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse %s: %v", e.URL, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// DownloadError: media download or extraction failed.
type DownloadError struct {
	MediaURL string
	Err      error
}

func (e *DownloadError) Error() string { return fmt.Sprintf("download %s: %v", e.MediaURL, e.Err) }
func (e *DownloadError) Unwrap() error { return e.Err }

// TranscriptionError: transcription API or service failure.
type TranscriptionError struct{ Err error }

func (e *TranscriptionError) Error() string { return "transcribe: " + e.Err.Error() }
func (e *TranscriptionError) Unwrap() error { return e.Err }

// EnrichmentError: the LLM call failed or returned an unusable response.
type EnrichmentError struct{ Err error }

func (e *EnrichmentError) Error() string { return "enrich: " + e.Err.Error() }
func (e *EnrichmentError) Unwrap() error { return e.Err }
