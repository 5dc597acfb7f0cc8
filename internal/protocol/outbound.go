package protocol

// ServerEventType enumerates every outbound event tag (§6).
type ServerEventType string

const (
	EvSessionCreated                        ServerEventType = "session.created"
	EvSessionUpdated                         ServerEventType = "session.updated"
	EvConversationCreated                    ServerEventType = "conversation.created"
	EvConversationItemCreated                ServerEventType = "conversation.item.created"
	EvConversationItemInputAudioTranscribed  ServerEventType = "conversation.item.input_audio_transcription.completed"
	EvInputAudioBufferCommitted              ServerEventType = "input_audio_buffer.committed"
	EvInputAudioBufferCleared                ServerEventType = "input_audio_buffer.cleared"
	EvResponseCreated                        ServerEventType = "response.created"
	EvResponseOutputItemAdded                ServerEventType = "response.output_item.added"
	EvResponseOutputItemDone                 ServerEventType = "response.output_item.done"
	EvResponseContentPartAdded               ServerEventType = "response.content_part.added"
	EvResponseContentPartDone                ServerEventType = "response.content_part.done"
	EvResponseTextDelta                      ServerEventType = "response.text.delta"
	EvResponseTextDone                       ServerEventType = "response.text.done"
	EvResponseAudioDelta                     ServerEventType = "response.audio.delta"
	EvResponseAudioDone                      ServerEventType = "response.audio.done"
	EvResponseDone                           ServerEventType = "response.done"
	EvConversationInterrupted                ServerEventType = "conversation.interrupted"
	EvError                                  ServerEventType = "error"
)

// ServerEvent is a single flattened struct carrying every field any
// outbound event variant might need; Type selects which fields are
// meaningful and `omitempty` keeps the JSON wire shape minimal per event.
type ServerEvent struct {
	EventID string          `json:"event_id"`
	Type    ServerEventType `json:"type"`

	// session.created / session.updated
	Session *SessionConfig `json:"session,omitempty"`

	// conversation.created / conversation.item.created
	ConversationID string            `json:"conversation_id,omitempty"`
	PreviousItemID string            `json:"previous_item_id,omitempty"`
	Item           *ConversationItem `json:"item,omitempty"`

	// transcription / commit
	ItemID       string `json:"item_id,omitempty"`
	Transcript   string `json:"transcript,omitempty"`
	ContentIndex *int   `json:"content_index,omitempty"`

	// response lifecycle. ResponseID is carried on every response.*
	// event (data-model invariant 2: "every response.* event carries a
	// single stable response_id for the turn"), not just response.created/
	// response.done's nested Response.ID.
	ResponseID  string       `json:"response_id,omitempty"`
	Response    *Response    `json:"response,omitempty"`
	OutputIndex *int         `json:"output_index,omitempty"`
	Part        *ContentPart `json:"part,omitempty"`

	// deltas
	Delta string `json:"delta,omitempty"`
	Text  string `json:"text,omitempty"`

	// error
	Error *Error `json:"error,omitempty"`
}

func intPtr(v int) *int { return &v }

// ContentIndexText and ContentIndexAudio are the fixed content_index values
// from data-model invariant 3: 0 for the text part, 1 for the audio part.
var (
	ContentIndexText  = intPtr(0)
	ContentIndexAudio = intPtr(1)
	OutputIndexZero   = intPtr(0)
)
