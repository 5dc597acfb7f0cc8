package events

import (
	"errors"
	"sync"

	"testing"

	"github.com/kaelgw/realtime-gateway/internal/protocol"
)

type recordingSink struct {
	mu     sync.Mutex
	events []protocol.ServerEvent
	failOn int // index at which to fail, -1 for never
}

func (s *recordingSink) SendEvent(ev protocol.ServerEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn >= 0 && len(s.events) == s.failOn {
		return errors.New("simulated send failure")
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) snapshot() []protocol.ServerEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.ServerEvent, len(s.events))
	copy(out, s.events)
	return out
}

func TestEmitterFIFOOrderAndEventIDMinting(t *testing.T) {
	sink := &recordingSink{failOn: -1}
	em := New(sink)

	em.Emit(protocol.ServerEvent{Type: protocol.EvSessionCreated})
	em.Emit(protocol.ServerEvent{Type: protocol.EvConversationCreated})
	em.Emit(protocol.ServerEvent{Type: protocol.EvResponseCreated})
	em.Close()

	got := sink.snapshot()
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	wantOrder := []protocol.ServerEventType{
		protocol.EvSessionCreated, protocol.EvConversationCreated, protocol.EvResponseCreated,
	}
	seen := map[string]bool{}
	for i, ev := range got {
		if ev.Type != wantOrder[i] {
			t.Fatalf("event %d type = %q, want %q", i, ev.Type, wantOrder[i])
		}
		if ev.EventID == "" {
			t.Fatalf("event %d missing event_id", i)
		}
		if seen[ev.EventID] {
			t.Fatalf("duplicate event_id %q", ev.EventID)
		}
		seen[ev.EventID] = true
	}
}

func TestEmitterSinkFailureStopsSenderSilently(t *testing.T) {
	sink := &recordingSink{failOn: 1}
	em := New(sink)

	em.Emit(protocol.ServerEvent{Type: protocol.EvSessionCreated})
	em.Emit(protocol.ServerEvent{Type: protocol.EvConversationCreated}) // triggers failure
	em.Emit(protocol.ServerEvent{Type: protocol.EvResponseCreated})     // must not panic or block
	em.Close()

	got := sink.snapshot()
	if len(got) != 1 {
		t.Fatalf("got %d events after failure, want 1 (only events before the failing write)", len(got))
	}
}
