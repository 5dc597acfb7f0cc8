package protocol

import (
	"encoding/json"
	"testing"
)

func TestDecodeClientEvent_SessionUpdate(t *testing.T) {
	raw := []byte(`{"type":"session.update","session":{"input_audio_format":"g711_ulaw"}}`)
	ev, err := DecodeClientEvent(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Type != EventSessionUpdate {
		t.Fatalf("type = %q, want session.update", ev.Type)
	}
	if ev.Session == nil || ev.Session.InputAudioFormat != "g711_ulaw" {
		t.Fatalf("session not decoded: %+v", ev.Session)
	}
}

func TestDecodeClientEvent_Unknown(t *testing.T) {
	raw := []byte(`{"type":"not_a_real_event"}`)
	ev, err := DecodeClientEvent(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.KnownType() {
		t.Fatalf("expected unknown type to report KnownType() == false")
	}
}

func TestDecodeClientEvent_MalformedJSON(t *testing.T) {
	if _, err := DecodeClientEvent([]byte(`{not json`)); err == nil {
		t.Fatal("expected decode error for malformed JSON")
	}
}

func TestTurnDetectionCreateResponseDefault(t *testing.T) {
	var td *TurnDetection
	if !td.CreateResponseOrDefault() {
		t.Fatal("nil TurnDetection should default create_response to true")
	}

	td2 := &TurnDetection{}
	if !td2.CreateResponseOrDefault() {
		t.Fatal("unset CreateResponse should default to true")
	}

	f := false
	td3 := &TurnDetection{CreateResponse: &f}
	if td3.CreateResponseOrDefault() {
		t.Fatal("explicit false should not default to true")
	}
}

func TestServerEventRoundTrip(t *testing.T) {
	ev := ServerEvent{
		EventID:      "evt_1",
		Type:         EvResponseTextDelta,
		ItemID:       "item_1",
		ContentIndex: ContentIndexText,
		Delta:        "hi",
	}
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded ServerEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Delta != "hi" || *decoded.ContentIndex != 0 {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestConversationItemContentJoin(t *testing.T) {
	item := ConversationItem{
		ItemType: ItemMessage,
		Role:     RoleUser,
		Content: []ContentPart{
			{Kind: ContentInputText, Text: "hello"},
			{Kind: ContentInputAudio, Transcript: "world"},
		},
	}
	got := JoinContentText(item.Content)
	if got != "hello world" {
		t.Fatalf("join = %q, want %q", got, "hello world")
	}
}
