package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kaelgw/realtime-gateway/internal/events"
	"github.com/kaelgw/realtime-gateway/internal/llmclient"
	"github.com/kaelgw/realtime-gateway/internal/protocol"
	"github.com/kaelgw/realtime-gateway/internal/session"
	"github.com/kaelgw/realtime-gateway/internal/turn"
)

type fakeLLM struct {
	chunks []llmclient.Chunk
}

func (f *fakeLLM) Stream(ctx context.Context, instructions string, history []llmclient.Message, engine, model string) (<-chan llmclient.Chunk, error) {
	ch := make(chan llmclient.Chunk, len(f.chunks))
	for _, c := range f.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func startTestServer(t *testing.T, llm llmclient.Client) (*httptest.Server, *websocket.Conn) {
	t.Helper()
	h := NewHandler(Config{
		LLM:                 llm,
		LLMEngine:           "test",
		LLMModel:            "test-model",
		DefaultInstructions: "be helpful",
	})
	srv := httptest.NewServer(http.HandlerFunc(h.ServeHTTP))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return srv, conn
}

func readEvent(t *testing.T, conn *websocket.Conn) protocol.ServerEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var ev protocol.ServerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	return ev
}

func sendRaw(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestInitialFramesOnConnect(t *testing.T) {
	_, conn := startTestServer(t, &fakeLLM{})

	created := readEvent(t, conn)
	if created.Type != protocol.EvSessionCreated || created.Session == nil || created.Session.Model != DefaultModel {
		t.Fatalf("expected session.created with model %q, got %+v", DefaultModel, created)
	}
	convCreated := readEvent(t, conn)
	if convCreated.Type != protocol.EvConversationCreated || convCreated.ConversationID == "" {
		t.Fatalf("expected conversation.created with an id, got %+v", convCreated)
	}
}

func TestUnsupportedAudioFormatRejected(t *testing.T) {
	_, conn := startTestServer(t, &fakeLLM{})
	readEvent(t, conn) // session.created
	readEvent(t, conn) // conversation.created

	sendRaw(t, conn, map[string]any{
		"type":    "session.update",
		"session": map[string]any{"input_audio_format": "g711_ulaw"},
	})

	ev := readEvent(t, conn)
	if ev.Type != protocol.EvError || ev.Error == nil || ev.Error.Code != "unsupported_audio_format" {
		t.Fatalf("expected unsupported_audio_format error, got %+v", ev)
	}
}

func TestConversationItemCreateRoundTrip(t *testing.T) {
	_, conn := startTestServer(t, &fakeLLM{})
	readEvent(t, conn)
	readEvent(t, conn)

	sendRaw(t, conn, map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type": "message",
			"role": "user",
			"content": []map[string]any{
				{"type": "input_text", "text": "hi"},
			},
		},
	})

	ev := readEvent(t, conn)
	if ev.Type != protocol.EvConversationItemCreated || ev.Item == nil {
		t.Fatalf("expected conversation.item.created, got %+v", ev)
	}
	if len(ev.Item.Content) != 1 || ev.Item.Content[0].Text != "hi" {
		t.Fatalf("expected echoed content text %q, got %+v", "hi", ev.Item.Content)
	}
}

// TestResponseCreateRejectedWhileGenerating exercises the §4.5
// response.create branch directly against a session whose is_generating
// flag is already set — the deterministic form of §8 scenario 3 ("double
// generation"), since this gateway's single receiver task (§5) cannot
// actually read a second inbound frame until the first frame's dispatch
// call returns, making a true over-the-wire race unreproducible by design.
func TestResponseCreateRejectedWhileGenerating(t *testing.T) {
	sess := session.New("s1", protocol.SessionConfig{})
	sess.SetGenerating(true)

	sink := &recordingSink{}
	emitter := events.New(sink)

	pipe := turn.New(turn.Config{LLM: &fakeLLM{}, Emitter: emitter}, sess)
	handleResponseCreate(context.Background(), sess, emitter, pipe)
	emitter.Close()

	if len(sink.events) != 1 {
		t.Fatalf("expected exactly one error event, got %d", len(sink.events))
	}
	ev := sink.events[0]
	if ev.Type != protocol.EvError || ev.Error == nil || ev.Error.Code != "response_in_progress" {
		t.Fatalf("expected response_in_progress error, got %+v", ev)
	}
}

type recordingSink struct {
	events []protocol.ServerEvent
}

func (s *recordingSink) SendEvent(ev protocol.ServerEvent) error {
	s.events = append(s.events, ev)
	return nil
}
