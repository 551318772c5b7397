package audio

import (
	"fmt"
	"time"

	"github.com/cultiflow/cultivoice/pkg/constants"
)

// Clip is a run of interleaved 16-bit signed little-endian PCM.
// Clips coming out of the transcoder are always in the canonical
// pipeline format: 16 kHz, mono.
type Clip struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// NewClip wraps raw 16-bit PCM in a clip
func NewClip(pcm []byte, sampleRate, channels int) *Clip {
	return &Clip{PCM: pcm, SampleRate: sampleRate, Channels: channels}
}

// Samples returns the number of samples per channel
func (c *Clip) Samples() int {
	if c == nil || c.Channels == 0 {
		return 0
	}
	return len(c.PCM) / 2 / c.Channels
}

// Duration returns the playing time of the clip
func (c *Clip) Duration() time.Duration {
	if c == nil || c.SampleRate == 0 {
		return 0
	}
	return time.Duration(c.Samples()) * time.Second / time.Duration(c.SampleRate)
}

// Canonical reports whether the clip is already in the pipeline format
func (c *Clip) Canonical() bool {
	return c != nil &&
		c.SampleRate == constants.AUDIO_SAMPLE_RATE &&
		c.Channels == constants.AUDIO_CHANNELS
}

// WAV returns the clip serialized as a RIFF/WAVE file
func (c *Clip) WAV() []byte {
	return EncodeWAV(c)
}

// FormatError reports input audio that could not be understood.
// Callers treat it as terminal for the clip: retrying the same bytes
// will not help.
type FormatError struct {
	Format string // best guess at the container ("wav", "mp3", ...)
	Reason string
}

func (e *FormatError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("audio: bad %s data: %s", e.Format, e.Reason)
	}
	return fmt.Sprintf("audio: %s", e.Reason)
}
