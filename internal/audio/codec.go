package audio

// Decode converts PCM16LE bytes to float32 samples normalized to [-1, 1].
// This gateway accepts no other codec (spec Non-goal: non-PCM16 audio
// codecs are out of scope), so unlike the teacher's multi-codec Decode this
// has nothing left to dispatch on.
func Decode(data []byte, sampleRate int) ([]float32, int) {
	return DecodePCM16(data), sampleRate
}
