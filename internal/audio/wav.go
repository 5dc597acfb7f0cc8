package audio

import (
	"bytes"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// CommitSampleRateHz is the rate the commit subpipeline always WAV-wraps
// with, regardless of any client-declared input_audio_format detail
// (SPEC_FULL.md §13, Open Question decision).
const CommitSampleRateHz = 24000

// OutputSampleRateHz is the rate of every server-to-client audio delta
// (§6: "all server-to-client audio deltas are PCM16LE at 16 kHz").
const OutputSampleRateHz = 16000

// memSeeker adapts an in-memory byte buffer to io.WriteSeeker so
// go-audio/wav.Encoder (which requires Seek to patch RIFF/data chunk sizes
// after writing) can target a byte slice instead of a file.
type memSeeker struct {
	buf []byte
	pos int
}

func (m *memSeeker) Write(p []byte) (int, error) {
	end := m.pos + len(p)
	if end > len(m.buf) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memSeeker) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = int64(m.pos) + offset
	case io.SeekEnd:
		newPos = int64(len(m.buf)) + offset
	default:
		return 0, fmt.Errorf("memSeeker: invalid whence %d", whence)
	}
	if newPos < 0 {
		return 0, fmt.Errorf("memSeeker: negative seek position")
	}
	m.pos = int(newPos)
	return newPos, nil
}

// WrapWAV encodes float32 PCM samples (mono, [-1,1]) as a RIFF/WAVE
// container at sampleRate, 16-bit signed PCM (§4.2).
func WrapWAV(samples []float32, sampleRate int) ([]byte, error) {
	ints := make([]int, len(samples))
	for i, s := range samples {
		clamped := float32(math.Max(-1.0, math.Min(1.0, float64(s))))
		ints[i] = int(int16(clamped * math.MaxInt16))
	}

	dst := &memSeeker{}
	enc := wav.NewEncoder(dst, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           ints,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("wav encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("wav encode close: %w", err)
	}
	return dst.buf, nil
}

// ParseWAV decodes a RIFF/WAVE byte blob into mono float32 samples
// normalized to [-1, 1] and its declared sample rate. Used when parsing TTS
// responses from the Stable/Fish/Groq WAV-blob providers (§4.8).
func ParseWAV(data []byte) ([]float32, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("wav decode: %w", err)
	}
	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / math.MaxInt16
	}
	rate := int(dec.SampleRate)
	if buf.Format != nil && buf.Format.NumChannels > 1 {
		samples = downmixToMono(samples, buf.Format.NumChannels)
	}
	return samples, rate, nil
}

func downmixToMono(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	n := len(samples) / channels
	out := make([]float32, n)
	for i := range n {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}
