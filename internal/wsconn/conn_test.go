package wsconn

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/kaelgw/realtime-gateway/internal/protocol"
)

func TestSendEventAndReadClientEventRoundTrip(t *testing.T) {
	serverReceived := make(chan *protocol.ClientEvent, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("server upgrade: %v", err)
			return
		}
		defer ws.Close()
		conn := New(ws)

		ev, err := conn.ReadClientEvent()
		if err != nil {
			t.Errorf("server read: %v", err)
			return
		}
		serverReceived <- ev

		if err := conn.SendEvent(protocol.ServerEvent{Type: protocol.EvSessionCreated}); err != nil {
			t.Errorf("server send: %v", err)
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if err := client.WriteMessage(websocket.TextMessage, []byte(`{"type":"input_audio_buffer.commit"}`)); err != nil {
		t.Fatalf("client write: %v", err)
	}

	ev := <-serverReceived
	if ev.Type != protocol.EventInputAudioBufferCommit {
		t.Fatalf("expected input_audio_buffer.commit, got %q", ev.Type)
	}

	_, data, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("client read: %v", err)
	}
	if !strings.Contains(string(data), `"session.created"`) {
		t.Fatalf("expected session.created in response, got %s", data)
	}
}
