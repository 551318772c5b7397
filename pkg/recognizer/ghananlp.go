package recognizer

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/carlmjohnson/requests"
	"go.uber.org/zap"

	"github.com/cultiflow/cultivoice/pkg/audio"
	"github.com/cultiflow/cultivoice/pkg/config"
	"github.com/cultiflow/cultivoice/pkg/logger"
	"github.com/cultiflow/cultivoice/pkg/speech"
)

// GhanaNLPASR transcribes Twi and English audio through the GhanaNLP
// speech API. The endpoint accepts a raw WAV body and answers with
// either a bare JSON string or an object carrying the transcript.
type GhanaNLPASR struct {
	apiKey     string
	baseURL    string
	language   string
	maxRetries int
	client     *http.Client
}

func NewGhanaNLPASR(cfg *config.STTConfig) *GhanaNLPASR {
	return &GhanaNLPASR{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		language:   cfg.Language,
		maxRetries: cfg.MaxRetries,
		client:     speech.NewHTTPClient(cfg.Timeout),
	}
}

func (g *GhanaNLPASR) Provider() string { return "ghananlp" }

func (g *GhanaNLPASR) Transcribe(ctx context.Context, clip *audio.Clip) (string, error) {
	if g.apiKey == "" {
		return "", speech.WrapError(g.Provider(), speech.ErrNotConfigured)
	}

	wav := clip.WAV()

	var body bytes.Buffer
	err := speech.Retry(ctx, g.maxRetries, time.Second, func(ctx context.Context) error {
		body.Reset()
		return requests.
			URL(g.baseURL).
			Path("/asr/v1/transcribe").
			Param("language", g.language).
			Client(g.client).
			Method(http.MethodPost).
			Header("Ocp-Apim-Subscription-Key", g.apiKey).
			ContentType("audio/wav").
			BodyBytes(wav).
			ToBytesBuffer(&body).
			AddValidator(speech.StatusValidator(g.Provider())).
			Fetch(ctx)
	})
	if err != nil {
		return "", speech.WrapError(g.Provider(), err)
	}

	text, err := parseASRBody(body.Bytes())
	if err != nil {
		return "", speech.WrapError(g.Provider(), err)
	}

	logger.Debug("ghananlp transcription done",
		zap.String("language", g.language),
		zap.Int("chars", len(text)))
	return finishTranscript(g.Provider(), text)
}

type asrResponse struct {
	Text          string `json:"text"`
	Transcription string `json:"transcription"`
	Message       string `json:"message"`
}

// parseASRBody handles the three response shapes the API is known to
// produce: a bare JSON string, an object with a transcript field, and
// an object with only an error message.
func parseASRBody(data []byte) (string, error) {
	var plain string
	if err := sonic.Unmarshal(data, &plain); err == nil {
		return plain, nil
	}

	var resp asrResponse
	if err := sonic.Unmarshal(data, &resp); err == nil {
		if resp.Text != "" {
			return resp.Text, nil
		}
		if resp.Transcription != "" {
			return resp.Transcription, nil
		}
		if resp.Message != "" {
			return "", fmt.Errorf("transcription rejected: %s", resp.Message)
		}
		return "", nil
	}

	return strings.TrimSpace(string(data)), nil
}
