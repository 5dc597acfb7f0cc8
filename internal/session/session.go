// Package session implements the per-connection SessionState from
// spec.md §4.3 and §3: the mutable record a session's receiver task owns
// and mutates exclusively (§5 — no locks required since all mutation is
// confined to one goroutine).
package session

import (
	"fmt"

	"github.com/kaelgw/realtime-gateway/internal/history"
	"github.com/kaelgw/realtime-gateway/internal/protocol"
)

// Session is the mutable per-connection record (data model §3).
type Session struct {
	ID            string
	Config        protocol.SessionConfig
	audioBuf      []byte
	History       *history.History
	isGenerating  bool
}

// New creates a session with the given id and starting config.
func New(id string, cfg protocol.SessionConfig) *Session {
	return &Session{
		ID:      id,
		Config:  cfg,
		History: history.New(),
	}
}

// ApplyConfig validates and merges a partial SessionConfig update
// (§4.5 session.update). On validation failure it returns a *protocol.Error
// and leaves the session unmutated.
func (s *Session) ApplyConfig(partial *protocol.SessionConfig) *protocol.Error {
	if partial.InputAudioFormat != "" && partial.InputAudioFormat != protocol.AudioFormatPcm16 {
		return protocol.NewValidationError("unsupported_audio_format",
			fmt.Sprintf("unsupported input_audio_format %q", partial.InputAudioFormat),
			"input_audio_format")
	}
	if partial.OutputAudioFormat != "" && partial.OutputAudioFormat != protocol.AudioFormatPcm16 {
		return protocol.NewValidationError("unsupported_audio_format",
			fmt.Sprintf("unsupported output_audio_format %q", partial.OutputAudioFormat),
			"output_audio_format")
	}
	if partial.TurnDetection != nil && partial.TurnDetection.Type == "server_vad" {
		return protocol.NewValidationError("unsupported_turn_detection",
			"server-driven VAD turn detection is not supported; turn-taking is client-driven",
			"turn_detection.type")
	}

	merge(&s.Config, partial)
	return nil
}

// merge copies every non-zero field of partial into dst, except Model and
// Voice, which are left as they are. Modalities/Tools/ToolChoice/
// InputAudioTranscription replace wholesale when present.
func merge(dst *protocol.SessionConfig, partial *protocol.SessionConfig) {
	if len(partial.Modalities) > 0 {
		dst.Modalities = partial.Modalities
	}
	if partial.Instructions != "" {
		dst.Instructions = partial.Instructions
	}
	if partial.InputAudioFormat != "" {
		dst.InputAudioFormat = partial.InputAudioFormat
	}
	if partial.OutputAudioFormat != "" {
		dst.OutputAudioFormat = partial.OutputAudioFormat
	}
	if partial.InputAudioTranscription != nil {
		dst.InputAudioTranscription = partial.InputAudioTranscription
	}
	if partial.TurnDetection != nil {
		dst.TurnDetection = partial.TurnDetection
	}
	if partial.Tools != nil {
		dst.Tools = partial.Tools
	}
	if partial.ToolChoice != nil {
		dst.ToolChoice = partial.ToolChoice
	}
	if partial.Temperature != nil {
		dst.Temperature = partial.Temperature
	}
	if partial.MaxOutputTokens != nil {
		dst.MaxOutputTokens = partial.MaxOutputTokens
	}
}

// AppendAudio extends the pending input-audio buffer.
func (s *Session) AppendAudio(b []byte) {
	s.audioBuf = append(s.audioBuf, b...)
}

// TakeAudio atomically swaps the buffer out for an empty one and returns
// what was taken (§4.3: "atomic swap with empty"). Safe because the buffer
// is only ever touched from the single receiver task.
func (s *Session) TakeAudio() []byte {
	taken := s.audioBuf
	s.audioBuf = nil
	return taken
}

// ClearAudio drops the pending buffer without returning it
// (input_audio_buffer.clear, data-model invariant 4).
func (s *Session) ClearAudio() {
	s.audioBuf = nil
}

// IsGenerating reports the current is_generating flag (invariant 1).
func (s *Session) IsGenerating() bool {
	return s.isGenerating
}

// SetGenerating sets the is_generating flag.
func (s *Session) SetGenerating(v bool) {
	s.isGenerating = v
}

// LastRole returns the role of the most recent history entry, or "" if
// history is empty.
func (s *Session) LastRole() history.Role {
	return s.History.LastRole()
}
