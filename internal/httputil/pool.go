// Package httputil holds the pooled HTTP client constructor shared by every
// external-service adapter (ASR/VAD/TTS).
package httputil

import (
	"net/http"
	"time"
)

// NewPooledClient creates an http.Client tuned for repeated calls to one
// external service host.
func NewPooledClient(poolSize int, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:          poolSize,
			MaxIdleConnsPerHost:   poolSize,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}
}
