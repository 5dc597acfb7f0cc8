// Package vadclient implements the one-shot VAD external-service adapter
// from spec.md §6: `(wav bytes, url) → { timestamps: [(start,end)] }`. It is
// called exactly once per commit (§4.6 step 2), never as a continuous
// streaming segmenter — that model is explicitly out of scope (spec.md §1
// Non-goals).
package vadclient

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

// Segment is one detected speech interval, in seconds from the start of
// the clip.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Client is a pooled HTTP adapter to an external VAD endpoint.
type Client struct {
	http *http.Client
}

// New creates a VAD client with the given connection pool size and
// per-request timeout.
func New(poolSize int, timeout time.Duration) *Client {
	return &Client{http: httputil.NewPooledClient(poolSize, timeout)}
}

type vadResponse struct {
	Timestamps []Segment `json:"timestamps"`
}

// Detect posts wav to url and returns the detected speech segments. An
// empty result means the commit subpipeline should short-circuit (§4.6
// step 2).
func (c *Client) Detect(ctx context.Context, wav []byte, url string) ([]Segment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(wav))
	if err != nil {
		return nil, fmt.Errorf("vad: new request: %w", err)
	}
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vad: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("vad: status %d: %s", resp.StatusCode, string(data))
	}

	var vr vadResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("vad: decode response: %w", err)
	}
	return vr.Timestamps, nil
}
