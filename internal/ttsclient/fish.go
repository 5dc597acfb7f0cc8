package ttsclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/kaelgw/realtime-gateway/internal/httputil"
)

// fishTTSRequest mirrors the msgpack-framed request shape used by Fish
// Audio's /v1/tts endpoint (grounded on the fish-audio-go client's
// ttsRequest struct).
type fishTTSRequest struct {
	Text        string  `msgpack:"text"`
	Format      string  `msgpack:"format,omitempty"`
	SampleRate  int     `msgpack:"sample_rate,omitempty"`
	ReferenceID string  `msgpack:"reference_id,omitempty"`
	Latency     string  `msgpack:"latency,omitempty"`
}

// FishProvider calls Fish Audio's msgpack-framed TTS endpoint
// (original_source's `fish_tts`), requesting a full WAV response.
type FishProvider struct {
	http        *http.Client
	url         string
	apiKey      string
	referenceID string
}

// NewFishProvider creates a Fish adapter authenticated with apiKey, voicing
// with referenceID.
func NewFishProvider(url, apiKey, referenceID string, poolSize int, timeout time.Duration) *FishProvider {
	return &FishProvider{
		http:        httputil.NewPooledClient(poolSize, timeout),
		url:         url,
		apiKey:      apiKey,
		referenceID: referenceID,
	}
}

// Synthesize msgpack-encodes the request, posts it, and returns the WAV
// response body.
func (p *FishProvider) Synthesize(ctx context.Context, text string) (Output, error) {
	reqBody := fishTTSRequest{
		Text:        text,
		Format:      "wav",
		SampleRate:  OutputSampleRateDefault,
		ReferenceID: p.referenceID,
		Latency:     "normal",
	}
	encoded, err := msgpack.Marshal(&reqBody)
	if err != nil {
		return Output{}, fmt.Errorf("fish tts: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(encoded))
	if err != nil {
		return Output{}, fmt.Errorf("fish tts: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/msgpack")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.http.Do(req)
	if err != nil {
		return Output{}, fmt.Errorf("fish tts: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return Output{}, fmt.Errorf("fish tts: status %d: %s", resp.StatusCode, string(data))
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return Output{}, fmt.Errorf("fish tts: read response: %w", err)
	}
	return Output{Kind: OutputWAV, WAV: wav}, nil
}

// OutputSampleRateDefault is the rate requested from WAV-blob TTS
// providers before the gateway resamples to 16kHz (§4.8).
const OutputSampleRateDefault = 32000
