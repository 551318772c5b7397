package synthesizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"

	"github.com/cultiflow/cultivoice/pkg/audio"
	"github.com/cultiflow/cultivoice/pkg/config"
	"github.com/cultiflow/cultivoice/pkg/constants"
	"github.com/cultiflow/cultivoice/pkg/speech"
)

// PollyTTS renders speech with Amazon Polly. Polly hands back raw
// headerless PCM, so the clip is rebuilt from the configured rate.
type PollyTTS struct {
	region     string
	voice      string
	sampleRate int
	transcoder *audio.Transcoder
}

func NewPollyTTS(cfg *config.TTSConfig, transcoder *audio.Transcoder) *PollyTTS {
	voice := cfg.Voice
	if voice == "" {
		voice = "Joanna"
	}
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = constants.AUDIO_SAMPLE_RATE
	}
	return &PollyTTS{
		region:     cfg.Region,
		voice:      voice,
		sampleRate: sampleRate,
		transcoder: transcoder,
	}
}

func (p *PollyTTS) Provider() string { return "polly" }

func (p *PollyTTS) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	if p.region == "" {
		return nil, speech.WrapError(p.Provider(), speech.ErrNotConfigured)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(p.region))
	if err != nil {
		return nil, speech.WrapError(p.Provider(), err)
	}

	client := polly.NewFromConfig(awsCfg)
	out, err := client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		OutputFormat: types.OutputFormatPcm,
		SampleRate:   aws.String(strconv.Itoa(p.sampleRate)),
		Text:         aws.String(text),
		VoiceId:      types.VoiceId(p.voice),
	})
	if err != nil {
		return nil, speech.WrapError(p.Provider(), err)
	}
	defer out.AudioStream.Close()

	data, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, speech.WrapError(p.Provider(), fmt.Errorf("failed to read synthesized audio: %w", err))
	}
	if len(data) == 0 {
		return nil, speech.WrapError(p.Provider(), errors.New("TTS returned empty audio data"))
	}

	clip, err := p.transcoder.DecodeRaw(data, "pcm16", p.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to decode synthesized audio: %w", err)
	}
	return clip, nil
}
