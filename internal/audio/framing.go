package audio

// SamplesPerWAVFrame is 0.5s of mono 16-bit 16kHz audio: 0.5 * 16000 = 8000
// samples, i.e. 16000 bytes (§4.8 WAV-variant chunking).
const SamplesPerWAVFrame = OutputSampleRateHz / 2

// BytesPerStreamFrame is the fixed frame size the StreamGSV variant
// assembles from residual-buffered HTTP byte chunks: 1600 samples * 2 bytes
// = 3200 bytes (§4.8 stream-variant chunking; see DESIGN.md's "Resolved
// discrepancy" entry for why this is 3200 and not the Rust source's literal
// arithmetic).
const BytesPerStreamFrame = 3200

// FrameSamples splits i16-encoded PCM bytes into frames of exactly
// SamplesPerWAVFrame samples (16000 bytes); the final frame may be shorter.
// Used by the WAV-blob TTS variants (Stable/Fish/Groq).
func FrameSamples(pcm []byte) [][]byte {
	frameBytes := SamplesPerWAVFrame * 2
	var frames [][]byte
	for off := 0; off < len(pcm); off += frameBytes {
		end := off + frameBytes
		if end > len(pcm) {
			end = len(pcm)
		}
		frames = append(frames, pcm[off:end])
	}
	return frames
}

// StreamFramer assembles a byte stream arriving in arbitrarily sized HTTP
// chunks into fixed BytesPerStreamFrame frames, carrying a residual buffer
// across calls to Push. Callers must call Flush once the stream ends to
// obtain any final short residual frame (§4.8 stream-variant framing).
type StreamFramer struct {
	residual []byte
}

// NewStreamFramer returns an empty framer.
func NewStreamFramer() *StreamFramer {
	return &StreamFramer{}
}

// Push appends chunk to the residual buffer and returns every complete
// BytesPerStreamFrame frame it can assemble, retaining any remainder.
func (f *StreamFramer) Push(chunk []byte) [][]byte {
	f.residual = append(f.residual, chunk...)

	var frames [][]byte
	for len(f.residual) >= BytesPerStreamFrame {
		frame := make([]byte, BytesPerStreamFrame)
		copy(frame, f.residual[:BytesPerStreamFrame])
		frames = append(frames, frame)
		f.residual = f.residual[BytesPerStreamFrame:]
	}
	return frames
}

// Flush returns the final short residual frame, if any, and resets the
// framer. Returns nil if the residual is empty.
func (f *StreamFramer) Flush() []byte {
	if len(f.residual) == 0 {
		return nil
	}
	last := f.residual
	f.residual = nil
	return last
}
