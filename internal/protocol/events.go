// Package protocol defines the OpenAI-Realtime-style JSON event protocol
// spoken over the gateway's WebSocket: the inbound ClientEvent union, the
// outbound ServerEvent union, and the shared ConversationItem/ContentPart
// data carried inside them.
package protocol

import (
	"encoding/json"
	"strings"
)

// ContentPart is a sum type over the four kinds of content a conversation
// item can carry. Kind names which fields are meaningful: Text for text and
// input_text parts; AudioB64 and/or Transcript for input_audio and audio
// parts.
type ContentPart struct {
	Kind       ContentKind `json:"type"`
	Text       string      `json:"text,omitempty"`
	AudioB64   string      `json:"audio,omitempty"`
	Transcript string      `json:"transcript,omitempty"`
}

// ContentKind discriminates ContentPart.
type ContentKind string

const (
	ContentText       ContentKind = "text"
	ContentInputText  ContentKind = "input_text"
	ContentInputAudio ContentKind = "input_audio"
	ContentAudio      ContentKind = "audio"
)

// ItemType discriminates ConversationItem.
type ItemType string

const (
	ItemMessage            ItemType = "message"
	ItemFunctionCall       ItemType = "function_call"
	ItemFunctionCallOutput ItemType = "function_call_output"
)

// Role is the speaker of a message item.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ConversationItem is tagged by ItemType. For ItemMessage, Role and Content
// are populated. For ItemFunctionCall, Name/Arguments/ID. For
// ItemFunctionCallOutput, Output/ID.
type ConversationItem struct {
	ID        string        `json:"id,omitempty"`
	ItemType  ItemType      `json:"type"`
	Role      Role          `json:"role,omitempty"`
	Content   []ContentPart `json:"content,omitempty"`
	Name      string        `json:"name,omitempty"`
	Arguments string        `json:"arguments,omitempty"`
	Output    string        `json:"output,omitempty"`
}

// ResponseStatus is the lifecycle status of a Response.
type ResponseStatus string

const (
	ResponseInProgress ResponseStatus = "in_progress"
	ResponseCompleted  ResponseStatus = "completed"
	ResponseCancelled  ResponseStatus = "cancelled"
)

// Response is the minimal response envelope carried in response.* events.
type Response struct {
	ID     string         `json:"id"`
	Status ResponseStatus `json:"status"`
}

// Modality is one entry of SessionConfig.Modalities.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityAudio Modality = "audio"
)

// AudioFormat names a client/server audio codec. Only Pcm16 is accepted;
// any other value present on session.update is rejected (§4.5).
type AudioFormat string

const (
	AudioFormatPcm16 AudioFormat = "pcm16"
)

// TurnDetection configures client-driven turn-taking. Type "server_vad" is
// rejected by session.update validation — turn-taking in this gateway is
// always client-driven via explicit commit.
type TurnDetection struct {
	Type            string `json:"type,omitempty"`
	CreateResponse  *bool  `json:"create_response,omitempty"`
}

// CreateResponseOrDefault returns the effective create_response flag,
// defaulting to true when unset (original_source's unwrap_or(true)).
func (t *TurnDetection) CreateResponseOrDefault() bool {
	if t == nil || t.CreateResponse == nil {
		return true
	}
	return *t.CreateResponse
}

// SessionConfig holds every session.update-settable field. All fields are
// optional; zero value means "not set by the client".
type SessionConfig struct {
	Modalities              []Modality      `json:"modalities,omitempty"`
	Instructions            string          `json:"instructions,omitempty"`
	InputAudioFormat        AudioFormat     `json:"input_audio_format,omitempty"`
	OutputAudioFormat       AudioFormat     `json:"output_audio_format,omitempty"`
	InputAudioTranscription json.RawMessage `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection  `json:"turn_detection,omitempty"`
	Tools                   json.RawMessage `json:"tools,omitempty"`
	ToolChoice              json.RawMessage `json:"tool_choice,omitempty"`
	Temperature             *float64        `json:"temperature,omitempty"`
	MaxOutputTokens         *int            `json:"max_output_tokens,omitempty"`

	// Model/Voice are not session.update fields in the wire protocol but are
	// echoed on session.created/session.updated per §6. The gateway sets them
	// once at session start to its DefaultModel/DefaultVoice constants; they
	// are not taken from the LLM or TTS engine configuration, and
	// session.update does not change them.
	Model string `json:"model,omitempty"`
	Voice string `json:"voice,omitempty"`
}

// Error mirrors the outbound "error" event payload (§7).
type Error struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
	EventID string `json:"event_id,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// JoinContentText concatenates every ContentPart carrying text or a
// transcript with a single-space joiner, matching original_source's
// extract_text_from_content (§12.2 of SPEC_FULL.md).
func JoinContentText(parts []ContentPart) string {
	var pieces []string
	for _, p := range parts {
		switch p.Kind {
		case ContentText, ContentInputText:
			if p.Text != "" {
				pieces = append(pieces, p.Text)
			}
		case ContentInputAudio, ContentAudio:
			if p.Transcript != "" {
				pieces = append(pieces, p.Transcript)
			}
		}
	}
	return strings.Join(pieces, " ")
}

// NewValidationError builds the invalid_request_error shape used throughout
// §4.5's session.update/response.create validation.
func NewValidationError(code, message, param string) *Error {
	return &Error{Type: "invalid_request_error", Code: code, Message: message, Param: param}
}
