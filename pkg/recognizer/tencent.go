package recognizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/tencentcloud/tencentcloud-speech-sdk-go/asr"
	"github.com/tencentcloud/tencentcloud-speech-sdk-go/common"

	"github.com/cultiflow/cultivoice/pkg/audio"
	"github.com/cultiflow/cultivoice/pkg/config"
	"github.com/cultiflow/cultivoice/pkg/speech"
)

// TencentASR transcribes audio with the Tencent Cloud flash recognizer,
// a one-shot endpoint that takes the whole clip in a single request.
type TencentASR struct {
	appID     string
	secretID  string
	secretKey string
	language  string
}

func NewTencentASR(cfg *config.STTConfig) *TencentASR {
	return &TencentASR{
		appID:     cfg.AppID,
		secretID:  cfg.SecretID,
		secretKey: cfg.SecretKey,
		language:  cfg.Language,
	}
}

func (t *TencentASR) Provider() string { return "tencent" }

func (t *TencentASR) Transcribe(ctx context.Context, clip *audio.Clip) (string, error) {
	if t.appID == "" || t.secretID == "" || t.secretKey == "" {
		return "", speech.WrapError(t.Provider(), speech.ErrNotConfigured)
	}

	recognizer := asr.NewFlashRecognizer(t.appID, common.NewCredential(t.secretID, t.secretKey))
	req := &asr.FlashRecognitionRequest{
		EngineType:  "16k_" + t.language,
		VoiceFormat: "wav",
	}

	resp, err := recognizer.Recognize(req, clip.WAV())
	if err != nil {
		return "", speech.WrapError(t.Provider(), err)
	}
	if resp.Code != 0 {
		return "", speech.WrapError(t.Provider(), fmt.Errorf("recognition failed with code %d: %s", resp.Code, resp.Message))
	}

	var parts []string
	for _, result := range resp.FlashResult {
		if result.Text != "" {
			parts = append(parts, result.Text)
		}
	}

	return finishTranscript(t.Provider(), strings.Join(parts, " "))
}
