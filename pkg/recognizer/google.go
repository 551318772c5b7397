package recognizer

import (
	"context"
	"fmt"
	"strings"

	speechapi "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/cultiflow/cultivoice/pkg/audio"
	"github.com/cultiflow/cultivoice/pkg/config"
	"github.com/cultiflow/cultivoice/pkg/constants"
	"github.com/cultiflow/cultivoice/pkg/speech"
)

// GoogleASR transcribes audio with Cloud Speech-to-Text. Credentials
// come from application default credentials, not the config file.
type GoogleASR struct {
	language string
}

func NewGoogleASR(cfg *config.STTConfig) *GoogleASR {
	return &GoogleASR{language: googleLanguage(cfg.Language)}
}

func (g *GoogleASR) Provider() string { return "google" }

func (g *GoogleASR) Transcribe(ctx context.Context, clip *audio.Clip) (string, error) {
	client, err := speechapi.NewClient(ctx)
	if err != nil {
		return "", speech.WrapError(g.Provider(), fmt.Errorf("failed to create speech client: %w", err))
	}
	defer client.Close()

	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: int32(constants.AUDIO_SAMPLE_RATE),
			LanguageCode:    g.language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: clip.PCM},
		},
	})
	if err != nil {
		return "", speech.WrapError(g.Provider(), err)
	}

	var parts []string
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		parts = append(parts, result.Alternatives[0].Transcript)
	}

	return finishTranscript(g.Provider(), strings.Join(parts, " "))
}

// googleLanguage maps the short language codes used everywhere else to
// the BCP-47 tags Cloud Speech expects. Twi is served by the Akan model.
func googleLanguage(code string) string {
	switch code {
	case constants.LANG_ENGLISH:
		return "en-GH"
	case constants.LANG_TWI:
		return "ak-GH"
	}
	return code
}
