package audio

import "testing"

func TestDecodePCM16RoundTrip(t *testing.T) {
	original := []float32{0, 0.5, -0.5, 1, -1}
	encoded := EncodePCM16(original)
	if len(encoded) != len(original)*2 {
		t.Fatalf("encoded length = %d, want %d", len(encoded), len(original)*2)
	}
	decoded := DecodePCM16(encoded)
	if len(decoded) != len(original) {
		t.Fatalf("decoded length = %d, want %d", len(decoded), len(original))
	}
	for i, v := range original {
		diff := decoded[i] - v
		if diff < 0 {
			diff = -diff
		}
		if diff > 0.001 {
			t.Fatalf("sample %d: decoded %f, want ~%f", i, decoded[i], v)
		}
	}
}

func TestResampleIdentity(t *testing.T) {
	samples := []float32{0.1, 0.2, 0.3}
	out := Resample(samples, 16000, 16000)
	if len(out) != len(samples) {
		t.Fatalf("identity resample changed length: %d", len(out))
	}
}

func TestResampleDownsample(t *testing.T) {
	samples := make([]float32, 100)
	for i := range samples {
		samples[i] = float32(i) / 100
	}
	out := Resample(samples, 24000, 16000)
	wantLen := int(float64(len(samples)) / (24000.0 / 16000.0))
	if len(out) != wantLen {
		t.Fatalf("downsampled length = %d, want %d", len(out), wantLen)
	}
}

func TestWrapWAVParseWAVRoundTrip(t *testing.T) {
	samples := []float32{0, 0.25, -0.25, 0.5, -0.5}
	wavBytes, err := WrapWAV(samples, CommitSampleRateHz)
	if err != nil {
		t.Fatalf("WrapWAV: %v", err)
	}
	if len(wavBytes) < 44 {
		t.Fatalf("wav too short: %d bytes", len(wavBytes))
	}
	decoded, rate, err := ParseWAV(wavBytes)
	if err != nil {
		t.Fatalf("ParseWAV: %v", err)
	}
	if rate != CommitSampleRateHz {
		t.Fatalf("rate = %d, want %d", rate, CommitSampleRateHz)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("decoded length = %d, want %d", len(decoded), len(samples))
	}
}

func TestFrameSamples8000PerFrame(t *testing.T) {
	pcm := make([]byte, SamplesPerWAVFrame*2*2+100) // two full frames + residual
	frames := FrameSamples(pcm)
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	if len(frames[0]) != SamplesPerWAVFrame*2 {
		t.Fatalf("frame 0 length = %d, want %d", len(frames[0]), SamplesPerWAVFrame*2)
	}
	if len(frames[2]) != 100 {
		t.Fatalf("final frame length = %d, want 100", len(frames[2]))
	}
}

func TestStreamFramerScenario6(t *testing.T) {
	// spec.md §8 scenario 6: 10000 bytes -> three 3200-byte frames + one
	// 400-byte final frame.
	f := NewStreamFramer()
	data := make([]byte, 10000)
	for i := range data {
		data[i] = byte(i)
	}

	var frames [][]byte
	// Simulate delivery in two arbitrary HTTP chunk sizes to exercise
	// residual buffering across Push calls.
	frames = append(frames, f.Push(data[:7000])...)
	frames = append(frames, f.Push(data[7000:])...)
	if last := f.Flush(); last != nil {
		frames = append(frames, last)
	}

	if len(frames) != 4 {
		t.Fatalf("got %d frames, want 4", len(frames))
	}
	for i := 0; i < 3; i++ {
		if len(frames[i]) != 3200 {
			t.Fatalf("frame %d length = %d, want 3200", i, len(frames[i]))
		}
	}
	if len(frames[3]) != 400 {
		t.Fatalf("final frame length = %d, want 400", len(frames[3]))
	}
}
