// Package events implements the EventEmitter from spec.md §4.4/§5: a
// bounded FIFO channel of ServerEvents drained by a dedicated sender task,
// with centralized event_id minting.
package events

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/kaelgw/realtime-gateway/internal/protocol"
)

// ChannelCapacity is the fixed 1024-slot bound on the outbound event
// channel (§4.4, §5).
const ChannelCapacity = 1024

// Sink is anything that can write one text frame per ServerEvent — the
// transport's send-side, kept minimal so internal/events never imports a
// WebSocket library directly.
type Sink interface {
	SendEvent(ev protocol.ServerEvent) error
}

// Emitter owns a bounded channel and the goroutine draining it into a Sink.
// Producers call Emit; it never blocks past the channel's capacity, and
// after the sender task has stopped (on a Sink error, or after Close),
// further Emit calls are silent no-ops per §4.4: "producers observe
// channel-closed as a terminal signal... sends become no-ops".
type Emitter struct {
	ch        chan protocol.ServerEvent
	done      chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

// New starts the sender goroutine writing to sink.
func New(sink Sink) *Emitter {
	e := &Emitter{
		ch:     make(chan protocol.ServerEvent, ChannelCapacity),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	go e.drain(sink)
	return e
}

func (e *Emitter) drain(sink Sink) {
	defer close(e.done)
	for ev := range e.ch {
		if err := sink.SendEvent(ev); err != nil {
			slog.Warn("event sink write failed, terminating sender task", "error", err, "type", ev.Type)
			e.markClosed()
			// Drain remaining queued events without attempting further
			// writes, so producers blocked on a full channel unblock.
			for range e.ch {
			}
			return
		}
	}
}

func (e *Emitter) markClosed() {
	select {
	case <-e.closed:
	default:
		close(e.closed)
	}
}

// Emit mints an event_id and enqueues ev. No-op if the sender task has
// already terminated.
func (e *Emitter) Emit(ev protocol.ServerEvent) {
	ev.EventID = uuid.NewString()
	select {
	case <-e.closed:
		return
	default:
	}
	select {
	case e.ch <- ev:
	case <-e.closed:
	}
}

// Close stops accepting new events, signals the sender task to finish
// draining whatever is already queued, and waits for it to exit. Calling
// Close more than once is safe.
func (e *Emitter) Close() {
	e.closeOnce.Do(func() {
		e.markClosed()
		close(e.ch)
	})
	<-e.done
}
