package recognizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cultiflow/cultivoice/pkg/audio"
	"github.com/cultiflow/cultivoice/pkg/config"
	"github.com/cultiflow/cultivoice/pkg/speech"
)

// OpenAIASR transcribes audio with the Whisper API.
type OpenAIASR struct {
	client     *openai.Client
	model      string
	language   string
	maxRetries int
}

func NewOpenAIASR(cfg *config.STTConfig) *OpenAIASR {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}

	return &OpenAIASR{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      model,
		language:   cfg.Language,
		maxRetries: cfg.MaxRetries,
	}
}

func (o *OpenAIASR) Provider() string { return "openai" }

func (o *OpenAIASR) Transcribe(ctx context.Context, clip *audio.Clip) (string, error) {
	wav := clip.WAV()

	var text string
	err := speech.Retry(ctx, o.maxRetries, time.Second, func(ctx context.Context) error {
		resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
			Model:    o.model,
			Reader:   bytes.NewReader(wav),
			FilePath: "audio.wav",
			Language: o.language,
			Format:   openai.AudioResponseFormatText,
		})
		if err != nil {
			return translateOpenAIError(o.Provider(), err)
		}
		text = resp.Text
		return nil
	})
	if err != nil {
		return "", speech.WrapError(o.Provider(), err)
	}

	return finishTranscript(o.Provider(), text)
}

// translateOpenAIError lifts the SDK error into the shared taxonomy so
// retry and classification logic see the HTTP status.
func translateOpenAIError(provider string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := ""
		if apiErr.Code != nil {
			code = fmt.Sprint(apiErr.Code)
		}
		return &speech.APIError{
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Code:       code,
			Provider:   provider,
		}
	}
	return err
}
