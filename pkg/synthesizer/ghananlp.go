package synthesizer

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/carlmjohnson/requests"

	"github.com/cultiflow/cultivoice/pkg/audio"
	"github.com/cultiflow/cultivoice/pkg/config"
	"github.com/cultiflow/cultivoice/pkg/speech"
)

// GhanaNLPTTS renders Twi and English speech through the GhanaNLP
// synthesis API. Success responses carry raw WAV bytes, failures come
// back as a JSON object with a message.
type GhanaNLPTTS struct {
	apiKey     string
	baseURL    string
	language   string
	speaker    string
	maxRetries int
	client     *http.Client
	transcoder *audio.Transcoder
}

func NewGhanaNLPTTS(cfg *config.TTSConfig, transcoder *audio.Transcoder) *GhanaNLPTTS {
	return &GhanaNLPTTS{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		language:   cfg.Language,
		speaker:    cfg.Voice,
		maxRetries: cfg.MaxRetries,
		client:     speech.NewHTTPClient(cfg.Timeout),
		transcoder: transcoder,
	}
}

func (g *GhanaNLPTTS) Provider() string { return "ghananlp" }

type ghanaTTSRequest struct {
	Text        string `json:"text"`
	Language    string `json:"language"`
	SpeakerName string `json:"speaker_name,omitempty"`
}

func (g *GhanaNLPTTS) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	if g.apiKey == "" {
		return nil, speech.WrapError(g.Provider(), speech.ErrNotConfigured)
	}

	payload, err := sonic.Marshal(ghanaTTSRequest{
		Text:        text,
		Language:    g.language,
		SpeakerName: g.speaker,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode synthesis request: %w", err)
	}

	var body bytes.Buffer
	err = speech.Retry(ctx, g.maxRetries, time.Second, func(ctx context.Context) error {
		body.Reset()
		return requests.
			URL(g.baseURL).
			Path("/tts/v1/synthesize").
			Client(g.client).
			Method(http.MethodPost).
			Header("Ocp-Apim-Subscription-Key", g.apiKey).
			ContentType("application/json").
			BodyBytes(payload).
			ToBytesBuffer(&body).
			AddValidator(speech.StatusValidator(g.Provider())).
			Fetch(ctx)
	})
	if err != nil {
		return nil, speech.WrapError(g.Provider(), err)
	}

	data := body.Bytes()
	// A 200 with a JSON body is still a failure, the API reports some
	// synthesis errors that way.
	if len(data) > 0 && data[0] == '{' {
		var apiMsg struct {
			Message string `json:"message"`
		}
		if err := sonic.Unmarshal(data, &apiMsg); err == nil && apiMsg.Message != "" {
			return nil, speech.WrapError(g.Provider(), fmt.Errorf("synthesis rejected: %s", apiMsg.Message))
		}
		return nil, speech.WrapError(g.Provider(), fmt.Errorf("unexpected synthesis response: %s", bytes.TrimSpace(data)))
	}

	return toCanonical(g.transcoder, g.Provider(), data)
}
