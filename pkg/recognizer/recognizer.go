// Package recognizer converts caller audio into text through the
// configured speech-to-text provider. Every provider takes canonical
// clips and reports failures through the speech error taxonomy.
package recognizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/cultiflow/cultivoice/pkg/audio"
	"github.com/cultiflow/cultivoice/pkg/config"
	"github.com/cultiflow/cultivoice/pkg/speech"
)

// TranscribeService turns one clip into text. A clip that decodes to
// silence yields speech.ErrNoSpeech.
type TranscribeService interface {
	Transcribe(ctx context.Context, clip *audio.Clip) (string, error)
	Provider() string
}

// NewTranscribeService builds the configured speech-to-text provider.
func NewTranscribeService(cfg *config.STTConfig) (TranscribeService, error) {
	switch cfg.Provider {
	case "ghananlp", "":
		return NewGhanaNLPASR(cfg), nil
	case "openai", "whisper":
		return NewOpenAIASR(cfg), nil
	case "google":
		return NewGoogleASR(cfg), nil
	case "qcloud", "tencent":
		return NewTencentASR(cfg), nil
	case "aws":
		return NewAWSTranscribe(cfg), nil
	case "deepgram":
		return NewDeepgramASR(cfg), nil
	}
	return nil, fmt.Errorf("unsupported stt provider: %q", cfg.Provider)
}

// finishTranscript trims provider output and maps silence to ErrNoSpeech.
func finishTranscript(provider, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", speech.WrapError(provider, speech.ErrNoSpeech)
	}
	return text, nil
}
