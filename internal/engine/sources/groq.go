package sources

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_innoserve/internal/engine"
	"github.com/anatolykoptev/go_innoserve/internal/engine/media"
)

// groqTranscriptionURL is the Whisper endpoint of the Groq OpenAI-compatible API.
const groqTranscriptionURL = "https://api.groq.com/openai/v1/audio/transcriptions"

// whisperPrompt steers spelling and response language for the award videos.
const whisperPrompt = "Specify context or spelling, respond in Traditional Chinese (zh-TW)"

// GroqTranscriber transcribes audio assets via the Groq Whisper API.
// Transcripts are cached in the content store; the API is only hit for
// items without one. Calls are paced with a rate limiter — the service
// rate-limits aggressively on audio endpoints.
type GroqTranscriber struct {
	client  *http.Client
	apiKey  string
	apiURL  string
	model   string
	store   *media.Store
	limiter *rate.Limiter
	timeout time.Duration
}

// NewGroqTranscriber builds a transcriber from the engine config.
func NewGroqTranscriber(cfg engine.Config, store *media.Store) *GroqTranscriber {
	model := cfg.TranscribeModel
	if model == "" {
		model = "whisper-large-v3"
	}
	interval := cfg.TranscribeInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	timeout := cfg.TranscribeTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &GroqTranscriber{
		client:  &http.Client{Timeout: timeout},
		apiKey:  cfg.GroqAPIKey,
		apiURL:  groqTranscriptionURL,
		model:   model,
		store:   store,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		timeout: timeout,
	}
}

// Transcribe returns the transcript for an audio asset, reusing a stored
// transcript when one exists.
func (t *GroqTranscriber) Transcribe(ctx context.Context, asset *engine.MediaAsset) (string, error) {
	if t.store.HasTranscript(asset.ItemID) {
		engine.IncrTranscribeCached()
		slog.Debug("transcript cached", slog.String("item", asset.ItemID))
		return t.store.ReadTranscript(asset.ItemID)
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return "", err
	}

	audio, err := os.ReadFile(asset.Path)
	if err != nil {
		return "", &engine.TranscriptionError{Err: err}
	}

	engine.IncrTranscribeCalls()
	slog.Info("transcribing", slog.String("item", asset.ItemID))

	text, err := engine.RetryDo(ctx, engine.DefaultRetryConfig, func() (string, error) {
		return t.call(ctx, filepath.Base(asset.Path), audio)
	})
	if err != nil {
		return "", &engine.TranscriptionError{Err: err}
	}

	if err := t.store.WriteTranscript(asset.ItemID, text); err != nil {
		return "", &engine.TranscriptionError{Err: err}
	}
	return text, nil
}

// call performs one multipart upload to the transcription endpoint.
func (t *GroqTranscriber) call(ctx context.Context, filename string, audio []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	for field, value := range map[string]string{
		"model":           t.model,
		"prompt":          whisperPrompt,
		"response_format": "text",
		"language":        "zh",
		"temperature":     "0.01",
	} {
		if err := w.WriteField(field, value); err != nil {
			return "", err
		}
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if engine.IsRetryableStatus(resp.StatusCode) {
		return "", engine.NewHTTPStatusError(resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, engine.Truncate(string(data), 200))
	}
	return string(data), nil
}
