package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_innoserve/internal/engine"
	"github.com/anatolykoptev/go_innoserve/internal/engine/media"
)

func newTestTranscriber(t *testing.T, apiURL string) (*GroqTranscriber, *media.Store) {
	t.Helper()
	store, err := media.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return &GroqTranscriber{
		client:  &http.Client{Timeout: 5 * time.Second},
		apiKey:  "test-key",
		apiURL:  apiURL,
		model:   "whisper-large-v3",
		store:   store,
		limiter: rate.NewLimiter(rate.Inf, 1),
		timeout: 5 * time.Second,
	}, store
}

func seedAudio(t *testing.T, store *media.Store, itemID string) *engine.MediaAsset {
	t.Helper()
	if err := os.WriteFile(store.AudioPath(itemID), []byte("fake mp3 bytes"), 0o640); err != nil {
		t.Fatal(err)
	}
	return store.Audio(itemID)
}

func TestTranscribe(t *testing.T) {
	var gotAuth, gotModel, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotModel = r.FormValue("model")
		gotLang = r.FormValue("language")
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("file part missing: %v", err)
		}
		w.Write([]byte("這是逐字稿"))
	}))
	defer srv.Close()

	tr, store := newTestTranscriber(t, srv.URL)
	asset := seedAudio(t, store, "29-abc")

	text, err := tr.Transcribe(context.Background(), asset)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "這是逐字稿" {
		t.Errorf("transcript = %q", text)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotModel != "whisper-large-v3" || gotLang != "zh" {
		t.Errorf("form fields: model=%q language=%q", gotModel, gotLang)
	}
	if !store.HasTranscript("29-abc") {
		t.Error("transcript not persisted to the content store")
	}
}

func TestTranscribeUsesStoredTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("API must not be called when a transcript is stored")
	}))
	defer srv.Close()

	tr, store := newTestTranscriber(t, srv.URL)
	asset := seedAudio(t, store, "29-abc")
	if err := store.WriteTranscript("29-abc", "既有逐字稿"); err != nil {
		t.Fatal(err)
	}

	text, err := tr.Transcribe(context.Background(), asset)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "既有逐字稿" {
		t.Errorf("transcript = %q, want the stored one", text)
	}
}

func TestTranscribeRetriesOnRateLimit(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("成功"))
	}))
	defer srv.Close()

	tr, store := newTestTranscriber(t, srv.URL)
	asset := seedAudio(t, store, "29-abc")

	text, err := tr.Transcribe(context.Background(), asset)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "成功" {
		t.Errorf("transcript = %q", text)
	}
	if calls != 2 {
		t.Errorf("API called %d times, want 2 (429 retried once)", calls)
	}
}

func TestTranscribeClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "unsupported file"}`))
	}))
	defer srv.Close()

	tr, store := newTestTranscriber(t, srv.URL)
	asset := seedAudio(t, store, "29-abc")

	_, err := tr.Transcribe(context.Background(), asset)
	if err == nil {
		t.Fatal("expected error on 400")
	}
	if store.HasTranscript("29-abc") {
		t.Error("failed call must not leave a transcript behind")
	}
}

func TestTranscribeMissingAudioFile(t *testing.T) {
	tr, store := newTestTranscriber(t, "http://127.0.0.1:0")
	asset := &engine.MediaAsset{ItemID: "29-gone", Path: store.AudioPath("29-gone"), Kind: engine.KindAudio}

	if _, err := tr.Transcribe(context.Background(), asset); err == nil {
		t.Fatal("expected error when the audio file is missing")
	}
}
