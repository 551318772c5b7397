package audio

import (
	"encoding/binary"
	"os"

	"github.com/cultiflow/cultivoice/pkg/constants"
)

// EncodeWAV serializes a clip as a PCM RIFF/WAVE file
func EncodeWAV(c *Clip) []byte {
	if c == nil {
		return nil
	}
	channels := c.Channels
	if channels <= 0 {
		channels = constants.AUDIO_CHANNELS
	}
	sampleRate := c.SampleRate
	if sampleRate <= 0 {
		sampleRate = constants.AUDIO_SAMPLE_RATE
	}
	dataSize := uint32(len(c.PCM))

	var hdr [44]byte
	copy(hdr[0:], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:], 36+dataSize)
	copy(hdr[8:], "WAVE")
	copy(hdr[12:], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:], 16)
	binary.LittleEndian.PutUint16(hdr[20:], wavFormatPCM)
	binary.LittleEndian.PutUint16(hdr[22:], uint16(channels))
	binary.LittleEndian.PutUint32(hdr[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(hdr[28:], uint32(sampleRate*channels*2))
	binary.LittleEndian.PutUint16(hdr[32:], uint16(channels*2))
	binary.LittleEndian.PutUint16(hdr[34:], constants.AUDIO_BIT_DEPTH)
	copy(hdr[36:], "data")
	binary.LittleEndian.PutUint32(hdr[40:], dataSize)

	out := make([]byte, 0, len(hdr)+len(c.PCM))
	out = append(out, hdr[:]...)
	out = append(out, c.PCM...)
	return out
}

// WriteWAV writes the clip to path as a WAV file
func WriteWAV(path string, c *Clip) error {
	return os.WriteFile(path, EncodeWAV(c), 0644)
}
