package synthesizer

import (
	"context"
	"fmt"

	texttospeechapi "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"

	"github.com/cultiflow/cultivoice/pkg/audio"
	"github.com/cultiflow/cultivoice/pkg/config"
	"github.com/cultiflow/cultivoice/pkg/constants"
	"github.com/cultiflow/cultivoice/pkg/speech"
)

// GoogleTTS renders speech with Cloud Text-to-Speech. Credentials come
// from application default credentials, not the config file.
type GoogleTTS struct {
	language   string
	voice      string
	speed      float64
	transcoder *audio.Transcoder
}

func NewGoogleTTS(cfg *config.TTSConfig, transcoder *audio.Transcoder) *GoogleTTS {
	return &GoogleTTS{
		language:   googleLanguage(cfg.Language),
		voice:      cfg.Voice,
		speed:      cfg.Speed,
		transcoder: transcoder,
	}
}

func (g *GoogleTTS) Provider() string { return "google" }

func (g *GoogleTTS) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	client, err := texttospeechapi.NewClient(ctx)
	if err != nil {
		return nil, speech.WrapError(g.Provider(), fmt.Errorf("failed to create texttospeech client: %w", err))
	}
	defer client.Close()

	resp, err := client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: g.language,
			Name:         g.voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
			SampleRateHertz: int32(constants.AUDIO_SAMPLE_RATE),
			SpeakingRate:    g.speed,
		},
	})
	if err != nil {
		return nil, speech.WrapError(g.Provider(), err)
	}

	// LINEAR16 responses arrive with a WAV header
	return toCanonical(g.transcoder, g.Provider(), resp.AudioContent)
}

// googleLanguage maps the short language codes used everywhere else to
// the BCP-47 tags Cloud Text-to-Speech expects.
func googleLanguage(code string) string {
	switch code {
	case constants.LANG_ENGLISH:
		return "en-GH"
	case constants.LANG_TWI:
		return "ak-GH"
	}
	return code
}
