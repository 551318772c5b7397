package translator

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"github.com/cultiflow/cultivoice/pkg/config"
	"github.com/cultiflow/cultivoice/pkg/speech"
)

func translateConfig(baseURL string) *config.TranslateConfig {
	return &config.TranslateConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	}
}

func TestTranslate(t *testing.T) {
	var gotReq translateRequest
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Ocp-Apim-Subscription-Key")
		body, _ := io.ReadAll(r.Body)
		if err := sonic.Unmarshal(body, &gotReq); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Write([]byte(`"what is your name"`))
	}))
	defer server.Close()

	client := NewClient(translateConfig(server.URL))
	text, err := client.Translate(context.Background(), "wo din de sɛn", Pair("tw", "en"))
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if text != "what is your name" {
		t.Errorf("translation = %q", text)
	}
	if gotReq.In != "wo din de sɛn" || gotReq.Lang != "tw-en" {
		t.Errorf("request = %+v", gotReq)
	}
	if gotKey != "test-key" {
		t.Errorf("subscription key = %q", gotKey)
	}
}

func TestTranslateObjectBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"translation": "good morning"}`))
	}))
	defer server.Close()

	client := NewClient(translateConfig(server.URL))
	text, err := client.Translate(context.Background(), "maakye", "tw-en")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if text != "good morning" {
		t.Errorf("translation = %q", text)
	}
}

func TestTranslateAPIMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message": "unsupported language pair"}`))
	}))
	defer server.Close()

	client := NewClient(translateConfig(server.URL))
	if _, err := client.Translate(context.Background(), "hello", "en-fr"); err == nil {
		t.Fatal("expected error for API message body")
	}
}

func TestTranslateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(translateConfig(server.URL))
	_, err := client.Translate(context.Background(), "hello", "en-tw")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *speech.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected APIError 502, got %v", err)
	}
}

func TestTranslateEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`""`))
	}))
	defer server.Close()

	client := NewClient(translateConfig(server.URL))
	if _, err := client.Translate(context.Background(), "hello", "en-tw"); err == nil {
		t.Fatal("expected error for empty translation")
	}
}

func TestTranslateMissingKey(t *testing.T) {
	cfg := translateConfig("http://localhost:1")
	cfg.APIKey = ""
	client := NewClient(cfg)
	_, err := client.Translate(context.Background(), "hello", "en-tw")
	if !errors.Is(err, speech.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestPair(t *testing.T) {
	if Pair("tw", "en") != "tw-en" {
		t.Errorf("Pair = %q", Pair("tw", "en"))
	}
}
