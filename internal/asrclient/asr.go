// Package asrclient implements the ASR external-service adapter from
// spec.md §6: `(wav bytes, url, api_key, model, lang, prompt) → [transcript_string]`.
package asrclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/kaelgw/realtime-gateway/internal/httputil"
)

// Client is a pooled HTTP adapter to a Whisper-style ASR endpoint.
type Client struct {
	http *http.Client
}

// New creates an ASR client with the given connection pool size and
// per-request timeout.
func New(poolSize int, timeout time.Duration) *Client {
	return &Client{http: httputil.NewPooledClient(poolSize, timeout)}
}

type transcriptionResponse struct {
	Segments []string `json:"segments"`
	Text     string   `json:"text"`
}

// Transcribe posts wav to url as multipart form data along with the given
// model/lang/prompt hints and bearer apiKey, returning the segment list the
// commit subpipeline (§4.6 step 3) joins with "\n".
func (c *Client) Transcribe(ctx context.Context, wav []byte, url, apiKey, model, lang, prompt string) ([]string, error) {
	body, contentType, err := buildMultipart(wav, model, lang, prompt)
	if err != nil {
		return nil, fmt.Errorf("asr: build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("asr: new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("asr: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("asr: status %d: %s", resp.StatusCode, string(data))
	}

	var tr transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("asr: decode response: %w", err)
	}
	if len(tr.Segments) > 0 {
		return tr.Segments, nil
	}
	if tr.Text != "" {
		return []string{tr.Text}, nil
	}
	return nil, nil
}

func buildMultipart(wav []byte, model, lang, prompt string) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	part, err := w.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(wav); err != nil {
		return nil, "", err
	}
	for field, val := range map[string]string{"model": model, "language": lang, "prompt": prompt} {
		if val == "" {
			continue
		}
		if err := w.WriteField(field, val); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
