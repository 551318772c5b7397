package synthesizer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"github.com/cultiflow/cultivoice/pkg/audio"
	"github.com/cultiflow/cultivoice/pkg/config"
	"github.com/cultiflow/cultivoice/pkg/speech"
	"github.com/cultiflow/cultivoice/pkg/utils"
)

func testWAV(t *testing.T) []byte {
	t.Helper()
	pcm := make([]byte, 320)
	for i := 0; i < len(pcm); i += 2 {
		pcm[i] = 0x20
	}
	return audio.EncodeWAV(audio.NewClip(pcm, 16000, 1))
}

func ttsConfig(baseURL string) *config.TTSConfig {
	return &config.TTSConfig{
		Provider:   "ghananlp",
		APIKey:     "test-key",
		BaseURL:    baseURL,
		Language:   "tw",
		SampleRate: 16000,
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	}
}

func TestNewSynthesisService(t *testing.T) {
	cases := []struct {
		provider string
		want     string
	}{
		{"", "ghananlp"},
		{"ghananlp", "ghananlp"},
		{"openai", "openai"},
		{"google", "google"},
		{"polly", "polly"},
		{"aws", "polly"},
	}
	for _, tc := range cases {
		svc, err := NewSynthesisService(&config.TTSConfig{Provider: tc.provider, Language: "en"}, nil, nil)
		if err != nil {
			t.Fatalf("NewSynthesisService(%q) error: %v", tc.provider, err)
		}
		if svc.Provider() != tc.want {
			t.Errorf("provider %q: got %q, want %q", tc.provider, svc.Provider(), tc.want)
		}
	}

	if _, err := NewSynthesisService(&config.TTSConfig{Provider: "espeak"}, nil, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestGhanaNLPSynthesize(t *testing.T) {
	var gotReq ghanaTTSRequest
	var gotKey, gotType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Ocp-Apim-Subscription-Key")
		gotType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		if err := sonic.Unmarshal(body, &gotReq); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Write(testWAV(t))
	}))
	defer server.Close()

	svc := NewGhanaNLPTTS(ttsConfig(server.URL), audio.NewTranscoder())
	clip, err := svc.Synthesize(context.Background(), "meda wo ase")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if !clip.Canonical() {
		t.Errorf("clip not canonical: rate=%d channels=%d", clip.SampleRate, clip.Channels)
	}
	if len(clip.PCM) == 0 {
		t.Error("empty clip")
	}
	if gotReq.Text != "meda wo ase" || gotReq.Language != "tw" {
		t.Errorf("request = %+v", gotReq)
	}
	if gotKey != "test-key" {
		t.Errorf("subscription key = %q", gotKey)
	}
	if gotType != "application/json" {
		t.Errorf("content type = %q", gotType)
	}
}

func TestGhanaNLPSynthesizeAPIMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message": "unsupported speaker"}`))
	}))
	defer server.Close()

	svc := NewGhanaNLPTTS(ttsConfig(server.URL), audio.NewTranscoder())
	if _, err := svc.Synthesize(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for API message body")
	}
}

func TestGhanaNLPSynthesizeQuotaError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := ttsConfig(server.URL)
	cfg.MaxRetries = 0
	svc := NewGhanaNLPTTS(cfg, audio.NewTranscoder())
	_, err := svc.Synthesize(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if speech.Classify(err) != speech.ReasonQuota {
		t.Errorf("reason = %q", speech.Classify(err))
	}
}

func TestGhanaNLPSynthesizeEmptyAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 200 with no body
	}))
	defer server.Close()

	svc := NewGhanaNLPTTS(ttsConfig(server.URL), audio.NewTranscoder())
	_, err := svc.Synthesize(context.Background(), "hello")
	if err == nil || !bytes.Contains([]byte(err.Error()), []byte("empty audio")) {
		t.Fatalf("expected empty audio error, got %v", err)
	}
}

func TestGhanaNLPSynthesizeMissingKey(t *testing.T) {
	cfg := ttsConfig("http://localhost:1")
	cfg.APIKey = ""
	svc := NewGhanaNLPTTS(cfg, audio.NewTranscoder())
	_, err := svc.Synthesize(context.Background(), "hello")
	if !errors.Is(err, speech.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

type countingService struct {
	calls int
	clip  *audio.Clip
	err   error
}

func (s *countingService) Provider() string { return "counting" }

func (s *countingService) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	s.calls++
	return s.clip, s.err
}

func TestSynthesisCacheHit(t *testing.T) {
	pcm := make([]byte, 64)
	pcm[0] = 0x7F
	inner := &countingService{clip: audio.NewClip(pcm, 16000, 1)}
	svc := &cachedSynthesis{inner: inner, cache: utils.NewCache(8, time.Minute), language: "en"}

	first, err := svc.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("first Synthesize failed: %v", err)
	}
	second, err := svc.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("second Synthesize failed: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("provider calls = %d, want 1", inner.calls)
	}
	if !bytes.Equal(first.PCM, second.PCM) {
		t.Error("cached clip differs from rendered clip")
	}
	if !second.Canonical() {
		t.Error("cached clip not canonical")
	}

	// Different text misses the cache.
	if _, err := svc.Synthesize(context.Background(), "goodbye"); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("provider calls = %d, want 2", inner.calls)
	}
}

func TestSynthesisCacheSkipsFailures(t *testing.T) {
	inner := &countingService{err: errors.New("provider down")}
	svc := &cachedSynthesis{inner: inner, cache: utils.NewCache(8, time.Minute), language: "en"}

	for i := 0; i < 2; i++ {
		if _, err := svc.Synthesize(context.Background(), "hello"); err == nil {
			t.Fatal("expected error")
		}
	}
	if inner.calls != 2 {
		t.Errorf("provider calls = %d, want 2 (failures must not cache)", inner.calls)
	}
}

func TestSynthesisNilCache(t *testing.T) {
	pcm := make([]byte, 32)
	inner := &countingService{clip: audio.NewClip(pcm, 16000, 1)}
	svc := &cachedSynthesis{inner: inner, cache: nil, language: "en"}

	for i := 0; i < 3; i++ {
		if _, err := svc.Synthesize(context.Background(), "hello"); err != nil {
			t.Fatalf("Synthesize failed: %v", err)
		}
	}
	if inner.calls != 3 {
		t.Errorf("provider calls = %d, want 3", inner.calls)
	}
}

func TestToCanonical(t *testing.T) {
	transcoder := audio.NewTranscoder()

	clip, err := toCanonical(transcoder, "test", testWAV(t))
	if err != nil {
		t.Fatalf("toCanonical failed: %v", err)
	}
	if !clip.Canonical() {
		t.Error("clip not canonical")
	}

	if _, err := toCanonical(transcoder, "test", nil); err == nil {
		t.Error("expected error for empty payload")
	}
	if _, err := toCanonical(transcoder, "test", []byte("not audio at all")); err == nil {
		t.Error("expected error for junk payload")
	}
}
