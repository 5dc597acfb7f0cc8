package protocol

import (
	"encoding/json"
	"fmt"
)

// ClientEventType enumerates the recognized inbound event tags (§4.1).
// Any other tag is logged at warn and ignored — the socket is never closed
// for an unrecognized type.
type ClientEventType string

const (
	EventSessionUpdate           ClientEventType = "session.update"
	EventInputAudioBufferAppend  ClientEventType = "input_audio_buffer.append"
	EventInputAudioBufferCommit  ClientEventType = "input_audio_buffer.commit"
	EventInputAudioBufferClear   ClientEventType = "input_audio_buffer.clear"
	EventConversationItemCreate  ClientEventType = "conversation.item.create"
	EventResponseCreate          ClientEventType = "response.create"
	EventResponseCancel          ClientEventType = "response.cancel"
)

// ClientEvent is the decoded form of one inbound frame. Only the fields
// relevant to Type are populated.
type ClientEvent struct {
	Type ClientEventType `json:"type"`

	// session.update
	Session *SessionConfig `json:"session,omitempty"`

	// input_audio_buffer.append
	Audio string `json:"audio,omitempty"`

	// conversation.item.create
	PreviousItemID string            `json:"previous_item_id,omitempty"`
	Item           *ConversationItem `json:"item,omitempty"`

	// response.create carries an optional response object the client is
	// free to send; this gateway does not read any field from it beyond its
	// presence (spec.md §6: `response?`).
	Response json.RawMessage `json:"response,omitempty"`
}

// DecodeClientEvent unmarshals one inbound JSON frame. A decode error here
// corresponds to spec.md §7's "malformed inbound JSON: logged; no event; no
// state change" — the caller logs and drops the frame.
func DecodeClientEvent(data []byte) (*ClientEvent, error) {
	var ev ClientEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decode client event: %w", err)
	}
	return &ev, nil
}

// KnownType reports whether Type is one of the recognized inbound variants.
func (e *ClientEvent) KnownType() bool {
	switch e.Type {
	case EventSessionUpdate, EventInputAudioBufferAppend, EventInputAudioBufferCommit,
		EventInputAudioBufferClear, EventConversationItemCreate, EventResponseCreate,
		EventResponseCancel:
		return true
	default:
		return false
	}
}
