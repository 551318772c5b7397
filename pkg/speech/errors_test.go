package speech

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/carlmjohnson/requests"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Reason
	}{
		{"nil", nil, ""},
		{"no speech", ErrNoSpeech, ReasonEmpty},
		{"wrapped no speech", fmt.Errorf("recognize: %w", ErrNoSpeech), ReasonEmpty},
		{"not configured", ErrNotConfigured, ReasonAuth},
		{"unauthorized", &APIError{StatusCode: 401, Provider: "ghananlp"}, ReasonAuth},
		{"forbidden", &APIError{StatusCode: 403, Provider: "ghananlp"}, ReasonAuth},
		{"rate limited", &APIError{StatusCode: 429, Provider: "openai"}, ReasonQuota},
		{"server error", &APIError{StatusCode: 502, Provider: "openai"}, ReasonNetwork},
		{"transport", fmt.Errorf("post: %w", requests.ErrTransport), ReasonNetwork},
		{"unknown", errors.New("something else"), ReasonNetwork},
	}
	for _, c := range cases {
		if got := Classify(c.err); got != c.want {
			t.Errorf("%s: expected reason %q, got %q", c.name, c.want, got)
		}
	}
}

func TestClassifyThroughProviderError(t *testing.T) {
	err := WrapError("deepgram", &APIError{StatusCode: 401, Provider: "deepgram"})
	if got := Classify(err); got != ReasonAuth {
		t.Errorf("Expected auth through provider wrapper, got %q", got)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"no speech", ErrNoSpeech, false},
		{"not configured", ErrNotConfigured, false},
		{"cancelled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"transport", fmt.Errorf("post: %w", requests.ErrTransport), true},
		{"rate limited", &APIError{StatusCode: 429}, true},
		{"server error", &APIError{StatusCode: 503}, true},
		{"unauthorized", &APIError{StatusCode: 401}, false},
		{"bad request", &APIError{StatusCode: 400}, false},
		{"unknown", errors.New("boom"), false},
	}
	for _, c := range cases {
		if got := Retryable(c.err); got != c.want {
			t.Errorf("%s: expected retryable=%v, got %v", c.name, c.want, got)
		}
	}
}

func TestWrapError(t *testing.T) {
	if WrapError("openai", nil) != nil {
		t.Error("Wrapping nil should stay nil")
	}

	inner := errors.New("boom")
	err := WrapError("openai", inner)
	if !errors.Is(err, inner) {
		t.Error("Wrapped error should unwrap to the original")
	}

	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("Expected *ProviderError, got %T", err)
	}
	if provErr.Provider != "openai" {
		t.Errorf("Expected provider 'openai', got '%s'", provErr.Provider)
	}
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), 3, time.Millisecond, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return &APIError{StatusCode: 503, Provider: "test"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryStopsOnTerminalError(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), 3, time.Millisecond, func(ctx context.Context) error {
		attempts++
		return &APIError{StatusCode: 401, Provider: "test"}
	})
	if err == nil {
		t.Fatal("Expected the auth error to surface")
	}
	if attempts != 1 {
		t.Errorf("Auth errors should not be retried, got %d attempts", attempts)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	wantErr := &APIError{StatusCode: 500, Provider: "test"}
	err := Retry(context.Background(), 2, time.Millisecond, func(ctx context.Context) error {
		attempts++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected last error back, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts (1 + 2 retries), got %d", attempts)
	}
}

func TestRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := Retry(ctx, 5, 50*time.Millisecond, func(ctx context.Context) error {
		attempts++
		cancel()
		return &APIError{StatusCode: 503, Provider: "test"}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt before cancellation, got %d", attempts)
	}
}
