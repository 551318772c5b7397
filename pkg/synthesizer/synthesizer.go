// Package synthesizer renders answer text into canonical audio through
// the configured text-to-speech provider. Rendered clips are cached so
// repeated answers skip the provider round trip.
package synthesizer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cultiflow/cultivoice/pkg/audio"
	"github.com/cultiflow/cultivoice/pkg/config"
	"github.com/cultiflow/cultivoice/pkg/constants"
	"github.com/cultiflow/cultivoice/pkg/logger"
	"github.com/cultiflow/cultivoice/pkg/speech"
	"github.com/cultiflow/cultivoice/pkg/utils"
)

// SynthesisService renders one utterance. Output clips are always in
// the canonical format regardless of what the provider returns.
type SynthesisService interface {
	Synthesize(ctx context.Context, text string) (*audio.Clip, error)
	Provider() string
}

// NewSynthesisService builds the configured text-to-speech provider
// wrapped with the clip cache. A nil cache disables caching.
func NewSynthesisService(cfg *config.TTSConfig, cache *utils.Cache, transcoder *audio.Transcoder) (SynthesisService, error) {
	if transcoder == nil {
		transcoder = audio.NewTranscoder()
	}

	var inner SynthesisService
	switch cfg.Provider {
	case "ghananlp", "":
		inner = NewGhanaNLPTTS(cfg, transcoder)
	case "openai":
		inner = NewOpenAITTS(cfg, transcoder)
	case "google":
		inner = NewGoogleTTS(cfg, transcoder)
	case "polly", "aws":
		inner = NewPollyTTS(cfg, transcoder)
	default:
		return nil, fmt.Errorf("unsupported tts provider: %q", cfg.Provider)
	}

	return &cachedSynthesis{inner: inner, cache: cache, language: cfg.Language}, nil
}

// cachedSynthesis keys rendered clips by provider, language and text so
// switching providers never replays another voice.
type cachedSynthesis struct {
	inner    SynthesisService
	cache    *utils.Cache
	language string
}

func (s *cachedSynthesis) Provider() string { return s.inner.Provider() }

func (s *cachedSynthesis) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	key := s.inner.Provider() + "|" + s.language + "|" + text
	if pcm, ok := s.cache.Get(key); ok {
		logger.Debug("tts cache hit",
			zap.String("provider", s.inner.Provider()),
			zap.Int("bytes", len(pcm)))
		return audio.NewClip(pcm, constants.AUDIO_SAMPLE_RATE, constants.AUDIO_CHANNELS), nil
	}

	clip, err := s.inner.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, clip.PCM)
	return clip, nil
}

// toCanonical turns provider audio into a canonical clip. It rejects
// empty payloads so callers never ship a silent answer.
func toCanonical(t *audio.Transcoder, provider string, data []byte) (*audio.Clip, error) {
	if len(data) == 0 {
		return nil, speech.WrapError(provider, errors.New("TTS returned empty audio data"))
	}
	clip, err := t.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode synthesized audio: %w", err)
	}
	return clip, nil
}
