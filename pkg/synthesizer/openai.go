package synthesizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cultiflow/cultivoice/pkg/audio"
	"github.com/cultiflow/cultivoice/pkg/config"
	"github.com/cultiflow/cultivoice/pkg/speech"
)

// OpenAITTS renders speech with the OpenAI audio API.
type OpenAITTS struct {
	client     *openai.Client
	model      string
	voice      string
	speed      float64
	maxRetries int
	transcoder *audio.Transcoder
}

func NewOpenAITTS(cfg *config.TTSConfig, transcoder *audio.Transcoder) *OpenAITTS {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = string(openai.TTSModel1)
	}
	voice := cfg.Voice
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}

	return &OpenAITTS{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      model,
		voice:      voice,
		speed:      cfg.Speed,
		maxRetries: cfg.MaxRetries,
		transcoder: transcoder,
	}
}

func (o *OpenAITTS) Provider() string { return "openai" }

func (o *OpenAITTS) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	var data []byte
	err := speech.Retry(ctx, o.maxRetries, time.Second, func(ctx context.Context) error {
		resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
			Model:          openai.SpeechModel(o.model),
			Input:          text,
			Voice:          openai.SpeechVoice(o.voice),
			ResponseFormat: openai.SpeechResponseFormatWav,
			Speed:          o.speed,
		})
		if err != nil {
			return translateOpenAIError(o.Provider(), err)
		}
		defer resp.Close()

		data, err = io.ReadAll(resp)
		if err != nil {
			return fmt.Errorf("failed to read synthesized audio: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, speech.WrapError(o.Provider(), err)
	}

	return toCanonical(o.transcoder, o.Provider(), data)
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
