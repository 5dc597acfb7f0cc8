// Package ttsclient implements the four TTS external-service adapters from
// spec.md §4.8/§6/§9: Stable, Fish, and Groq each return a full WAV blob;
// StreamGSV returns a byte stream of raw 16kHz PCM16LE. Design note 9
// recommends a small interface with two concrete output shapes wrapping
// the four providers — Output below is that shape.
package ttsclient

import (
	"context"
	"io"
)

// OutputKind discriminates Output.
type OutputKind int

const (
	OutputWAV OutputKind = iota
	OutputStream
)

// Output is either a full WAV blob (Stable/Fish/Groq) or a live byte stream
// of raw 16kHz PCM16LE (StreamGSV). Exactly one of WAV/Stream is set,
// matching OutputKind.
type Output struct {
	Kind   OutputKind
	WAV    []byte
	Stream io.ReadCloser
}

// Provider is the common interface all four variants satisfy.
type Provider interface {
	Synthesize(ctx context.Context, text string) (Output, error)
}

// Variant names used as Router engine keys (§9 design note: "tagged
// variant with four arms").
const (
	VariantStable    = "stable"
	VariantFish      = "fish"
	VariantGroq      = "groq"
	VariantStreamGSV = "streamgsv"
)
