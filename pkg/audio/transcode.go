package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"

	"github.com/cultiflow/cultivoice/pkg/constants"
)

// WAV format codes seen in telephony captures
const (
	wavFormatPCM   = 1
	wavFormatAlaw  = 6
	wavFormatMulaw = 7
)

// Transcoder converts arbitrary input audio into canonical clips.
// The zero value is ready to use.
type Transcoder struct {
	// MaxSamples caps the decoded length per clip, 0 means unlimited
	MaxSamples int
}

// NewTranscoder returns a transcoder with no length cap
func NewTranscoder() *Transcoder {
	return &Transcoder{}
}

// Decode sniffs the container from magic bytes and decodes data into a
// canonical clip. Unknown or corrupt input yields a *FormatError.
func (t *Transcoder) Decode(data []byte) (*Clip, error) {
	if len(data) < 4 {
		return nil, &FormatError{Reason: "input too short to sniff"}
	}
	switch {
	case bytes.HasPrefix(data, []byte("RIFF")):
		return t.decodeWAV(data)
	case bytes.HasPrefix(data, []byte("OggS")):
		return t.decodeOggVorbis(data)
	case bytes.HasPrefix(data, []byte("ID3")), data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return t.decodeMP3(data)
	default:
		return nil, &FormatError{Reason: "unrecognized container (supported: wav, mp3, ogg-vorbis, raw pcm/g711)"}
	}
}

// DecodeRaw decodes headerless audio as it comes off a telephony leg.
// Supported encodings are pcm16, mulaw (ulaw) and alaw.
func (t *Transcoder) DecodeRaw(data []byte, encoding string, sampleRate int) (*Clip, error) {
	if sampleRate <= 0 {
		return nil, &FormatError{Format: encoding, Reason: "sample rate required for raw audio"}
	}
	var samples []int16
	switch encoding {
	case "pcm16", "pcm", "l16":
		if len(data)%2 != 0 {
			return nil, &FormatError{Format: encoding, Reason: "odd byte count for 16-bit pcm"}
		}
		samples = make([]int16, len(data)/2)
		for i := range samples {
			samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
		}
	case "mulaw", "ulaw", "pcmu":
		samples = make([]int16, len(data))
		for i, b := range data {
			samples[i] = MulawToLinear(b)
		}
	case "alaw", "pcma":
		samples = make([]int16, len(data))
		for i, b := range data {
			samples[i] = AlawToLinear(b)
		}
	default:
		return nil, &FormatError{Format: encoding, Reason: "unknown raw encoding"}
	}
	return t.finish(int16SliceToFloat32(samples), 1, sampleRate), nil
}

// Normalize converts a clip of any rate or channel count into the
// canonical format. Canonical clips pass through untouched, so
// normalizing twice is the same as normalizing once.
func (t *Transcoder) Normalize(c *Clip) (*Clip, error) {
	if c == nil || len(c.PCM) == 0 {
		return nil, &FormatError{Reason: "empty clip"}
	}
	if c.Canonical() {
		return c, nil
	}
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return nil, &FormatError{Reason: fmt.Sprintf("clip missing format: rate=%d channels=%d", c.SampleRate, c.Channels)}
	}
	if len(c.PCM)%2 != 0 {
		return nil, &FormatError{Reason: "odd byte count for 16-bit pcm"}
	}
	samples := make([]int16, len(c.PCM)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(c.PCM[i*2:]))
	}
	return t.finish(int16SliceToFloat32(samples), c.Channels, c.SampleRate), nil
}

func (t *Transcoder) decodeWAV(data []byte) (*Clip, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, &FormatError{Format: "wav", Reason: "invalid or truncated header"}
	}

	// Telephony recorders often hand over G.711 wrapped in a WAV header
	switch dec.WavAudioFormat {
	case wavFormatAlaw, wavFormatMulaw:
		payload, err := wavDataChunk(data)
		if err != nil {
			return nil, err
		}
		encoding := "alaw"
		if dec.WavAudioFormat == wavFormatMulaw {
			encoding = "mulaw"
		}
		return t.DecodeRaw(payload, encoding, int(dec.SampleRate))
	case wavFormatPCM:
	default:
		return nil, &FormatError{Format: "wav", Reason: fmt.Sprintf("unsupported encoding %d", dec.WavAudioFormat)}
	}

	pb, err := dec.FullPCMBuffer()
	if err != nil || pb == nil || pb.Data == nil {
		if err != nil {
			return nil, &FormatError{Format: "wav", Reason: err.Error()}
		}
		return nil, &FormatError{Format: "wav", Reason: "empty data chunk"}
	}

	bd := int(dec.BitDepth)
	if bd == 0 {
		bd = 16
	}
	x := intSliceToFloat32(pb.Data, bd)

	ch := 1
	sr := 44100
	if pb.Format != nil {
		if pb.Format.NumChannels > 0 {
			ch = pb.Format.NumChannels
		}
		if pb.Format.SampleRate > 0 {
			sr = pb.Format.SampleRate
		}
	}
	return t.finish(x, ch, sr), nil
}

func (t *Transcoder) decodeMP3(data []byte) (*Clip, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, &FormatError{Format: "mp3", Reason: err.Error()}
	}
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, &FormatError{Format: "mp3", Reason: err.Error()}
	}
	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &ints); err != nil {
		return nil, &FormatError{Format: "mp3", Reason: err.Error()}
	}

	sr := dec.SampleRate()
	if sr <= 0 {
		sr = 44100
	}
	// go-mp3 always emits interleaved stereo
	return t.finish(int16SliceToFloat32(ints), 2, sr), nil
}

func (t *Transcoder) decodeOggVorbis(data []byte) (*Clip, error) {
	pcm, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, &FormatError{Format: "ogg", Reason: err.Error()}
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, &FormatError{Format: "ogg", Reason: "invalid vorbis stream"}
	}
	return t.finish(pcm, format.Channels, format.SampleRate), nil
}

// finish downmixes, resamples and quantizes decoded samples into a
// canonical clip
func (t *Transcoder) finish(x []float32, channels, sampleRate int) *Clip {
	if channels > 1 {
		x = downmixInterleaved(x, channels)
	}
	if sampleRate != constants.AUDIO_SAMPLE_RATE {
		x = resampleLinear(x, sampleRate, constants.AUDIO_SAMPLE_RATE)
	}
	if t.MaxSamples > 0 && len(x) > t.MaxSamples {
		x = x[:t.MaxSamples]
	}
	return fromFloat32(x)
}

// wavDataChunk walks the RIFF chunks and returns the raw data payload
func wavDataChunk(buf []byte) ([]byte, error) {
	if len(buf) < 12 {
		return nil, &FormatError{Format: "wav", Reason: "truncated RIFF header"}
	}
	pos := 12
	for pos+8 <= len(buf) {
		id := string(buf[pos : pos+4])
		sz := int(binary.LittleEndian.Uint32(buf[pos+4 : pos+8]))
		pos += 8
		if id == "data" {
			end := pos + sz
			if end > len(buf) {
				end = len(buf)
			}
			return buf[pos:end], nil
		}
		pos += sz
		if sz%2 == 1 {
			pos++ // chunks are word aligned
		}
	}
	return nil, &FormatError{Format: "wav", Reason: "missing data chunk"}
}

// fromFloat32 quantizes [-1,1] samples to canonical 16-bit PCM. The
// 32768 scale mirrors the decode side exactly, so a canonical clip
// survives a decode and re-encode bit for bit.
func fromFloat32(x []float32) *Clip {
	pcm := make([]byte, len(x)*2)
	for i, v := range x {
		s := float64(v) * 32768
		if s > 32767 {
			s = 32767
		} else if s < -32768 {
			s = -32768
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(s)))
	}
	return &Clip{PCM: pcm, SampleRate: constants.AUDIO_SAMPLE_RATE, Channels: constants.AUDIO_CHANNELS}
}

func intSliceToFloat32(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		out[i] = float32(clamp(float64(v)*scale, -1.0, 1.0))
	}
	return out
}

func int16SliceToFloat32(data []int16) []float32 {
	out := make([]float32, len(data))
	const scale = 1.0 / 32768.0
	for i, v := range data {
		out[i] = float32(float64(v) * scale)
	}
	return out
}

func downmixInterleaved(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	nFrames := len(in) / channels
	out := make([]float32, nFrames)
	for i := 0; i < nFrames; i++ {
		sum := 0.0
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += float64(in[base+c])
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

func resampleLinear(in []float32, inSR, outSR int) []float32 {
	if inSR == outSR || len(in) == 0 {
		return in
	}
	ratio := float64(outSR) / float64(inSR)
	outN := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]float32, outN)
	for i := 0; i < outN; i++ {
		src := float64(i) / ratio
		i0 := int(math.Floor(src))
		i1 := i0 + 1
		if i0 >= len(in) {
			out[i] = in[len(in)-1]
			continue
		}
		if i1 >= len(in) {
			out[i] = in[i0]
			continue
		}
		a := float32(src - float64(i0))
		out[i] = in[i0]*(1-a) + in[i1]*a
	}
	return out
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
