package recognizer

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/transcribestreaming"
	"github.com/aws/aws-sdk-go-v2/service/transcribestreaming/types"

	"github.com/cultiflow/cultivoice/pkg/audio"
	"github.com/cultiflow/cultivoice/pkg/config"
	"github.com/cultiflow/cultivoice/pkg/constants"
	"github.com/cultiflow/cultivoice/pkg/speech"
)

// awsChunkSize is 100ms of canonical audio per stream event.
const awsChunkSize = 3200

// AWSTranscribe transcribes audio with Amazon Transcribe streaming.
// The whole clip is pushed through the event stream and the final
// segments are stitched back together.
type AWSTranscribe struct {
	region   string
	language types.LanguageCode
}

func NewAWSTranscribe(cfg *config.STTConfig) *AWSTranscribe {
	return &AWSTranscribe{
		region:   cfg.Region,
		language: awsLanguage(cfg.Language),
	}
}

func (a *AWSTranscribe) Provider() string { return "aws" }

func (a *AWSTranscribe) Transcribe(ctx context.Context, clip *audio.Clip) (string, error) {
	if a.region == "" {
		return "", speech.WrapError(a.Provider(), speech.ErrNotConfigured)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(a.region))
	if err != nil {
		return "", speech.WrapError(a.Provider(), err)
	}

	client := transcribestreaming.NewFromConfig(awsCfg)
	out, err := client.StartStreamTranscription(ctx, &transcribestreaming.StartStreamTranscriptionInput{
		LanguageCode:         a.language,
		MediaEncoding:        types.MediaEncodingPcm,
		MediaSampleRateHertz: aws.Int32(int32(constants.AUDIO_SAMPLE_RATE)),
	})
	if err != nil {
		return "", speech.WrapError(a.Provider(), err)
	}

	stream := out.GetStream()
	go func() {
		defer stream.Close()
		for offset := 0; offset < len(clip.PCM); offset += awsChunkSize {
			end := offset + awsChunkSize
			if end > len(clip.PCM) {
				end = len(clip.PCM)
			}
			event := &types.AudioStreamMemberAudioEvent{
				Value: types.AudioEvent{AudioChunk: clip.PCM[offset:end]},
			}
			if err := stream.Send(ctx, event); err != nil {
				return
			}
		}
	}()

	var parts []string
	for event := range stream.Events() {
		transcriptEvent, ok := event.(*types.TranscriptResultStreamMemberTranscriptEvent)
		if !ok {
			continue
		}
		for _, result := range transcriptEvent.Value.Transcript.Results {
			if result.IsPartial || len(result.Alternatives) == 0 {
				continue
			}
			if text := result.Alternatives[0].Transcript; text != nil {
				parts = append(parts, *text)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return "", speech.WrapError(a.Provider(), err)
	}

	return finishTranscript(a.Provider(), strings.Join(parts, " "))
}

// awsLanguage maps short codes to the enum Transcribe expects.
func awsLanguage(code string) types.LanguageCode {
	if code == constants.LANG_ENGLISH {
		return types.LanguageCodeEnUs
	}
	return types.LanguageCode(code)
}
