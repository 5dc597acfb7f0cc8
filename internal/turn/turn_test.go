package turn

import (
	"context"
	"strings"
	"testing"

	"github.com/kaelgw/realtime-gateway/internal/events"
	"github.com/kaelgw/realtime-gateway/internal/llmclient"
	"github.com/kaelgw/realtime-gateway/internal/protocol"
	"github.com/kaelgw/realtime-gateway/internal/session"
)

type recordingSink struct {
	events []protocol.ServerEvent
}

func (s *recordingSink) SendEvent(ev protocol.ServerEvent) error {
	s.events = append(s.events, ev)
	return nil
}

type fakeLLM struct {
	chunks []llmclient.Chunk
	err    error
}

func (f *fakeLLM) Stream(ctx context.Context, instructions string, history []llmclient.Message, engine, model string) (<-chan llmclient.Chunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan llmclient.Chunk, len(f.chunks))
	for _, c := range f.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func newTestPipeline(t *testing.T, sink *recordingSink, llm llmclient.Client) (*Pipeline, *session.Session) {
	t.Helper()
	sess := session.New("sess-1", protocol.SessionConfig{
		Modalities: []protocol.Modality{protocol.ModalityText},
	})
	emitter := events.New(sink)
	t.Cleanup(emitter.Close)

	p := New(Config{
		LLM:       llm,
		LLMEngine: "test",
		LLMModel:  "test-model",
		Emitter:   emitter,
	}, sess)
	return p, sess
}

func TestRunResponseTextOnlyHappyPath(t *testing.T) {
	sink := &recordingSink{}
	llm := &fakeLLM{chunks: []llmclient.Chunk{
		{Kind: llmclient.ChunkText, Text: "Hello"},
		{Kind: llmclient.ChunkText, Text: " there"},
		{Kind: llmclient.ChunkStop},
	}}
	p, sess := newTestPipeline(t, sink, llm)
	sess.History.PushUser("hi")

	ok := p.RunResponse(context.Background())
	if !ok {
		t.Fatal("expected RunResponse to proceed")
	}
	p.cfg.Emitter.Close()

	if sess.IsGenerating() {
		t.Fatal("expected is_generating to be cleared after completion")
	}
	last, ok := sess.History.Back()
	if !ok || last.Message != "Hello there" {
		t.Fatalf("expected assistant history entry %q, got %+v", "Hello there", last)
	}

	var sawDone, sawTextDone bool
	var responseID string
	for _, ev := range sink.events {
		if !strings.HasPrefix(string(ev.Type), "response.") {
			continue
		}
		if ev.ResponseID == "" {
			t.Fatalf("expected response_id on every response.* event, %s had none", ev.Type)
		}
		if responseID == "" {
			responseID = ev.ResponseID
		} else if ev.ResponseID != responseID {
			t.Fatalf("expected stable response_id across the turn, %s carried %q, first was %q", ev.Type, ev.ResponseID, responseID)
		}
		if ev.Type == protocol.EvResponseDone {
			sawDone = true
		}
		if ev.Type == protocol.EvResponseTextDone && ev.Text != "Hello there" {
			t.Fatalf("expected final text.done text %q, got %q", "Hello there", ev.Text)
		}
		if ev.Type == protocol.EvResponseTextDone {
			sawTextDone = true
		}
	}
	if !sawDone || !sawTextDone {
		t.Fatal("expected response.done and response.text.done events")
	}
}

func TestRunResponseAbortsWhenLastRoleAssistant(t *testing.T) {
	sink := &recordingSink{}
	llm := &fakeLLM{}
	p, sess := newTestPipeline(t, sink, llm)
	sess.History.PushUser("hi")
	sess.History.PushAssistant("already answered")

	ok := p.RunResponse(context.Background())
	if ok {
		t.Fatal("expected RunResponse to abort silently")
	}
	p.cfg.Emitter.Close()
	if len(sink.events) != 0 {
		t.Fatalf("expected no events emitted, got %d", len(sink.events))
	}
}

func TestRunResponseAbortsWhenAlreadyGenerating(t *testing.T) {
	sink := &recordingSink{}
	llm := &fakeLLM{}
	p, sess := newTestPipeline(t, sink, llm)
	sess.History.PushUser("hi")
	sess.SetGenerating(true)

	ok := p.RunResponse(context.Background())
	if ok {
		t.Fatal("expected RunResponse to abort silently while already generating")
	}
}

func TestRunResponseFallsBackOnLLMStreamError(t *testing.T) {
	sink := &recordingSink{}
	llm := &fakeLLM{err: errBoom}
	p, sess := newTestPipeline(t, sink, llm)
	sess.History.PushUser("hi")

	ok := p.RunResponse(context.Background())
	if !ok {
		t.Fatal("expected RunResponse to proceed even though the LLM failed")
	}
	p.cfg.Emitter.Close()

	last, _ := sess.History.Back()
	if last.Message != StandardErrorResponse {
		t.Fatalf("expected fallback response, got %q", last.Message)
	}
}

func TestRunResponseFallsBackOnEmptyLLMOutput(t *testing.T) {
	sink := &recordingSink{}
	llm := &fakeLLM{chunks: []llmclient.Chunk{
		{Kind: llmclient.ChunkText, Text: "  "},
		{Kind: llmclient.ChunkStop},
	}}
	p, sess := newTestPipeline(t, sink, llm)
	sess.History.PushUser("hi")

	p.RunResponse(context.Background())
	p.cfg.Emitter.Close()

	last, _ := sess.History.Back()
	if last.Message != StandardErrorResponse {
		t.Fatalf("expected fallback response for blank-only output, got %q", last.Message)
	}
}

func TestCommitWithEmptyBufferEmitsNothing(t *testing.T) {
	sink := &recordingSink{}
	llm := &fakeLLM{}
	p, _ := newTestPipeline(t, sink, llm)

	p.Commit(context.Background())
	p.cfg.Emitter.Close()

	if len(sink.events) != 0 {
		t.Fatalf("expected no events for an empty commit, got %d", len(sink.events))
	}
}

var errBoom = fakeErr("boom")

type fakeErr string

func (e fakeErr) Error() string { return string(e) }
