package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// LLMClient is the narrow surface the enricher needs from an LLM API.
// Satisfied by a thin adapter over go-kit's llm client in main, and by
// fakes in tests.
type LLMClient interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// NoInfoSummary is the sentinel summary for entries the model cannot
// analyze. Kept in the source language of the award site, matching the
// rows the site's historical exports carry.
const NoInfoSummary = "無資訊"

// junkTranscriptMarkers flag transcripts that are caption boilerplate
// rather than presentation content.
var junkTranscriptMarkers = []string{"字幕提供", "志願者"}

// maxTechnologies caps the keyword list per record.
const maxTechnologies = 6

// labelOutput is the JSON structure expected from the LLM.
type labelOutput struct {
	Summary      string   `json:"summary"`
	Technologies []string `json:"technologies"`
}

// LLMEnricher produces summaries and technology keywords via an external
// LLM API. Results are cached by content hash so a re-run with a fresh
// result store does not repeat paid calls.
type LLMEnricher struct {
	client          LLMClient
	model           string
	maxContentChars int
	cache           *Cache // may be nil
}

// NewLLMEnricher wires an enricher. cache may be nil to disable caching.
func NewLLMEnricher(client LLMClient, model string, maxContentChars int, cache *Cache) *LLMEnricher {
	if maxContentChars <= 0 {
		maxContentChars = 6000
	}
	return &LLMEnricher{client: client, model: model, maxContentChars: maxContentChars, cache: cache}
}

// Enrich labels one item. Junk or empty input short-circuits to the
// no-information defaults without an API call.
func (e *LLMEnricher) Enrich(ctx context.Context, item Item, transcript string) (string, []string, error) {
	transcript = strings.TrimSpace(transcript)
	for _, marker := range junkTranscriptMarkers {
		if strings.Contains(transcript, marker) {
			return NoInfoSummary, nil, nil
		}
	}
	if transcript == "" && strings.TrimSpace(item.Description) == "" {
		return NoInfoSummary, nil, nil
	}

	transcript = TruncateRunes(transcript, e.maxContentChars, "...")
	prompt := fmt.Sprintf(labelUserPrompt, item.Title, item.Description, transcript)

	key := CacheKey("enrich", e.model, prompt)
	if data, ok := e.cache.Get(ctx, key); ok {
		var out labelOutput
		if json.Unmarshal(data, &out) == nil && out.Summary != "" {
			return out.Summary, cleanTechnologies(out.Technologies), nil
		}
	}

	IncrLLMCalls()
	raw, err := e.client.Complete(ctx, labelSystemPrompt, prompt)
	if err != nil {
		IncrLLMErrors()
		return "", nil, &EnrichmentError{Err: err}
	}

	out, err := parseLabelResponse(raw)
	if err != nil {
		IncrLLMErrors()
		return "", nil, &EnrichmentError{Err: err}
	}

	if data, err := json.Marshal(out); err == nil {
		e.cache.Set(ctx, key, data)
	}
	return out.Summary, cleanTechnologies(out.Technologies), nil
}

// parseLabelResponse decodes the model's JSON, tolerating markdown fences.
func parseLabelResponse(raw string) (*labelOutput, error) {
	raw = stripFences(raw)
	var out labelOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("parse failed on %q: %w", Truncate(raw, 200), err)
	}
	if strings.TrimSpace(out.Summary) == "" {
		return nil, errors.New("empty summary")
	}
	out.Summary = strings.TrimSpace(out.Summary)
	return &out, nil
}

// cleanTechnologies scrubs keywords for CSV serialization and enforces the
// per-record cap.
func cleanTechnologies(keywords []string) []string {
	var out []string
	for _, k := range keywords {
		if k = ScrubKeyword(k); k != "" {
			out = append(out, k)
		}
		if len(out) == maxTechnologies {
			break
		}
	}
	return out
}

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
