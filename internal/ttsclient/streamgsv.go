package ttsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kaelgw/realtime-gateway/internal/httputil"
)

// StreamGSVProvider calls a streaming GPT-SoVITS-style TTS endpoint that
// returns raw 16kHz PCM16LE bytes as they're generated, rather than a
// complete WAV blob (original_source's `stream_gsv`). The response body is
// handed back unread — internal/turn's sendTTS framing (§4.8 stream
// variant) is the one that reads and re-chunks it.
type StreamGSVProvider struct {
	http    *http.Client
	url     string
	speaker string
}

// NewStreamGSVProvider creates a StreamGSV adapter targeting url,
// synthesizing with the given speaker id at a fixed 16kHz output rate
// (original_source passes Some(16000) for this variant).
func NewStreamGSVProvider(url, speaker string, poolSize int, timeout time.Duration) *StreamGSVProvider {
	return &StreamGSVProvider{
		http:    httputil.NewPooledClient(poolSize, timeout),
		url:     url,
		speaker: speaker,
	}
}

type streamRequest struct {
	Text       string `json:"text"`
	Speaker    string `json:"speaker"`
	SampleRate int    `json:"sample_rate"`
}

// Synthesize opens the streamed response and returns it unread as Output.Stream.
func (p *StreamGSVProvider) Synthesize(ctx context.Context, text string) (Output, error) {
	body, err := json.Marshal(streamRequest{Text: text, Speaker: p.speaker, SampleRate: 16000})
	if err != nil {
		return Output{}, fmt.Errorf("streamgsv tts: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return Output{}, fmt.Errorf("streamgsv tts: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return Output{}, fmt.Errorf("streamgsv tts: request failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return Output{}, fmt.Errorf("streamgsv tts: status %d", resp.StatusCode)
	}

	return Output{Kind: OutputStream, Stream: resp.Body}, nil
}
