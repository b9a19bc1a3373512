package engine

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	ListingRequests  atomic.Int64
	DetailRequests   atomic.Int64
	FetchErrors      atomic.Int64
	Downloads        atomic.Int64
	DownloadsSkipped atomic.Int64
	TranscribeCalls  atomic.Int64
	TranscribeCached atomic.Int64
	LLMCalls         atomic.Int64
	LLMErrors        atomic.Int64
	ItemsPersisted   atomic.Int64
	ItemsSkipped     atomic.Int64
	ItemsFailed      atomic.Int64
	CacheHits        atomic.Int64
	CacheMisses      atomic.Int64
}

// GetMetrics returns a snapshot of all counters.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"listing_requests":  metrics.ListingRequests.Load(),
		"detail_requests":   metrics.DetailRequests.Load(),
		"fetch_errors":      metrics.FetchErrors.Load(),
		"downloads":         metrics.Downloads.Load(),
		"downloads_skipped": metrics.DownloadsSkipped.Load(),
		"transcribe_calls":  metrics.TranscribeCalls.Load(),
		"transcribe_cached": metrics.TranscribeCached.Load(),
		"llm_calls":         metrics.LLMCalls.Load(),
		"llm_errors":        metrics.LLMErrors.Load(),
		"items_persisted":   metrics.ItemsPersisted.Load(),
		"items_skipped":     metrics.ItemsSkipped.Load(),
		"items_failed":      metrics.ItemsFailed.Load(),
		"cache_hits":        metrics.CacheHits.Load(),
		"cache_misses":      metrics.CacheMisses.Load(),
	}
}

// FormatMetrics returns metrics as a simple text format for end-of-run output.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"listing_requests", "detail_requests", "fetch_errors",
		"downloads", "downloads_skipped",
		"transcribe_calls", "transcribe_cached",
		"llm_calls", "llm_errors",
		"items_persisted", "items_skipped", "items_failed",
		"cache_hits", "cache_misses",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for sub-packages.
func IncrListingRequests()  { metrics.ListingRequests.Add(1) }
func IncrDetailRequests()   { metrics.DetailRequests.Add(1) }
func IncrFetchErrors()      { metrics.FetchErrors.Add(1) }
func IncrDownloads()        { metrics.Downloads.Add(1) }
func IncrDownloadsSkipped() { metrics.DownloadsSkipped.Add(1) }
func IncrTranscribeCalls()  { metrics.TranscribeCalls.Add(1) }
func IncrTranscribeCached() { metrics.TranscribeCached.Add(1) }
func IncrLLMCalls()         { metrics.LLMCalls.Add(1) }
func IncrLLMErrors()        { metrics.LLMErrors.Add(1) }

func incrCacheHit()  { metrics.CacheHits.Add(1) }
func incrCacheMiss() { metrics.CacheMisses.Add(1) }

func incrItemsPersisted() { metrics.ItemsPersisted.Add(1) }
func incrItemsSkipped()   { metrics.ItemsSkipped.Add(1) }
func incrItemsFailed()    { metrics.ItemsFailed.Add(1) }
