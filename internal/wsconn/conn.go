// Package wsconn adapts a gorilla/websocket connection to the minimal
// transport interfaces internal/events and internal/gateway need — the
// "InboundSocket"/"OutboundSocket" collaborators spec.md §6 calls out of
// scope for the core and leaves to an external adapter.
package wsconn

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/kaelgw/realtime-gateway/internal/protocol"
)

// Upgrader is the shared gorilla/websocket upgrader, grounded on the
// teacher's ws/handler.go upgrader (large buffers for audio frames, no
// origin restriction — this gateway assumes a trusted reverse proxy in
// front of it, same posture as the teacher's service).
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  16384,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Conn wraps a gorilla/websocket connection, serializing writes (the
// underlying library forbids concurrent writers) and translating between
// wire JSON and the protocol package's typed events.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

// New wraps an already-upgraded websocket connection.
func New(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// SendEvent implements events.Sink: marshal and write one text frame.
func (c *Conn) SendEvent(ev protocol.ServerEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("wsconn: marshal event: %w", err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// ReadRaw blocks for the next inbound text frame and returns its bytes
// unparsed. Callers distinguish a transport-level error (socket gone) from
// a decode error (malformed JSON, §7: "logged; no event; no state change")
// by decoding separately — decoding here would conflate the two.
func (c *Conn) ReadRaw() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

// ReadClientEvent is a convenience wrapper combining ReadRaw and
// protocol.DecodeClientEvent, for callers (tests, simple clients) that
// don't need to distinguish transport errors from decode errors.
func (c *Conn) ReadClientEvent() (*protocol.ClientEvent, error) {
	data, err := c.ReadRaw()
	if err != nil {
		return nil, err
	}
	return protocol.DecodeClientEvent(data)
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}
