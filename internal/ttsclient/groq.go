package ttsclient

import (
	"context"
	"fmt"
	"io"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// GroqProvider calls Groq's OpenAI-compatible /audio/speech endpoint
// (original_source's `groq` TTS arm) by pointing an openai-go/v2 client at
// Groq's base URL — reusing the same SDK dependency internal/llmclient
// uses for chat completions, for a second, distinct concern.
type GroqProvider struct {
	client openai.Client
	model  string
	voice  string
}

// NewGroqProvider creates a Groq adapter authenticated with apiKey,
// synthesizing with model/voice (e.g. "playai-tts" / "Fritz-PlayAI").
func NewGroqProvider(baseURL, apiKey, model, voice string) *GroqProvider {
	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)
	return &GroqProvider{client: client, model: model, voice: voice}
}

// Synthesize requests a WAV-formatted speech response for text.
func (p *GroqProvider) Synthesize(ctx context.Context, text string) (Output, error) {
	resp, err := p.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(p.model),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(p.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatWAV,
	})
	if err != nil {
		return Output{}, fmt.Errorf("groq tts: request failed: %w", err)
	}
	defer resp.Body.Close()

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return Output{}, fmt.Errorf("groq tts: read response: %w", err)
	}
	return Output{Kind: OutputWAV, WAV: wav}, nil
}
