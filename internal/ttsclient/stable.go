package ttsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kaelgw/realtime-gateway/internal/httputil"
)

// StableProvider calls a GPT-SoVITS-style ("Stable") full-blob TTS HTTP
// endpoint, grounded on original_source's `tts::gsv` and the teacher's
// internal/pipeline/tts.go single-variant JSON-POST shape.
type StableProvider struct {
	http       *http.Client
	url        string
	speaker    string
	sampleRate int
}

// NewStableProvider creates a Stable adapter targeting url, synthesizing
// with the given speaker id at sampleRate (original_source passes
// Some(32000) for this variant).
func NewStableProvider(url, speaker string, sampleRate, poolSize int, timeout time.Duration) *StableProvider {
	return &StableProvider{
		http:       httputil.NewPooledClient(poolSize, timeout),
		url:        url,
		speaker:    speaker,
		sampleRate: sampleRate,
	}
}

type stableRequest struct {
	Text       string `json:"text"`
	Speaker    string `json:"speaker"`
	SampleRate int    `json:"sample_rate"`
}

// Synthesize posts text and returns the full WAV response body.
func (p *StableProvider) Synthesize(ctx context.Context, text string) (Output, error) {
	body, err := json.Marshal(stableRequest{Text: text, Speaker: p.speaker, SampleRate: p.sampleRate})
	if err != nil {
		return Output{}, fmt.Errorf("stable tts: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return Output{}, fmt.Errorf("stable tts: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return Output{}, fmt.Errorf("stable tts: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return Output{}, fmt.Errorf("stable tts: status %d: %s", resp.StatusCode, string(data))
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return Output{}, fmt.Errorf("stable tts: read response: %w", err)
	}
	return Output{Kind: OutputWAV, WAV: wav}, nil
}
