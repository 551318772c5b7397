package recognizer

import (
	"bytes"
	"context"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces"
	listen "github.com/deepgram/deepgram-go-sdk/pkg/client/listen"

	"github.com/cultiflow/cultivoice/pkg/audio"
	"github.com/cultiflow/cultivoice/pkg/config"
	"github.com/cultiflow/cultivoice/pkg/speech"
)

// DeepgramASR transcribes audio with Deepgram's prerecorded endpoint.
type DeepgramASR struct {
	apiKey   string
	model    string
	language string
}

func NewDeepgramASR(cfg *config.STTConfig) *DeepgramASR {
	model := cfg.Model
	if model == "" {
		model = "nova-2"
	}
	return &DeepgramASR{
		apiKey:   cfg.APIKey,
		model:    model,
		language: cfg.Language,
	}
}

func (d *DeepgramASR) Provider() string { return "deepgram" }

func (d *DeepgramASR) Transcribe(ctx context.Context, clip *audio.Clip) (string, error) {
	if d.apiKey == "" {
		return "", speech.WrapError(d.Provider(), speech.ErrNotConfigured)
	}

	client := listen.NewREST(d.apiKey, &interfaces.ClientOptions{})
	res, err := api.New(client).FromStream(ctx, bytes.NewReader(clip.WAV()), &interfaces.PreRecordedTranscriptionOptions{
		Model:    d.model,
		Language: d.language,
	})
	if err != nil {
		return "", speech.WrapError(d.Provider(), err)
	}

	if res == nil || len(res.Results.Channels) == 0 || len(res.Results.Channels[0].Alternatives) == 0 {
		return "", speech.WrapError(d.Provider(), speech.ErrNoSpeech)
	}

	return finishTranscript(d.Provider(), res.Results.Channels[0].Alternatives[0].Transcript)
}
