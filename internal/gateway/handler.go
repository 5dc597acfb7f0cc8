// Package gateway implements the ProtocolHandler from spec.md §4.1/§4.5: the
// dispatch table from inbound ClientEvent variants to SessionState mutation,
// validation, acknowledgement events, and TurnPipeline invocation.
package gateway

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/kaelgw/realtime-gateway/internal/asrclient"
	"github.com/kaelgw/realtime-gateway/internal/events"
	"github.com/kaelgw/realtime-gateway/internal/history"
	"github.com/kaelgw/realtime-gateway/internal/llmclient"
	"github.com/kaelgw/realtime-gateway/internal/metrics"
	"github.com/kaelgw/realtime-gateway/internal/protocol"
	"github.com/kaelgw/realtime-gateway/internal/router"
	"github.com/kaelgw/realtime-gateway/internal/session"
	"github.com/kaelgw/realtime-gateway/internal/trace"
	"github.com/kaelgw/realtime-gateway/internal/ttsclient"
	"github.com/kaelgw/realtime-gateway/internal/turn"
	"github.com/kaelgw/realtime-gateway/internal/vadclient"
	"github.com/kaelgw/realtime-gateway/internal/wsconn"
)

// DefaultModel and DefaultVoice are echoed on session.created/session.updated
// per spec.md §6's literal initial-frame contract.
const (
	DefaultModel = "gpt-4o-realtime-preview"
	DefaultVoice = "default"
)

var defaultTemperature = 0.8

// Config wires every shared, connection-independent collaborator the
// gateway needs to build a per-connection TurnPipeline.
type Config struct {
	ASR    *asrclient.Client
	ASRCfg turn.ASRConfig

	VAD    *vadclient.Client
	VADURL string

	LLM       llmclient.Client
	LLMEngine string
	LLMModel  string

	TTS       *router.Router[ttsclient.Provider]
	TTSEngine string

	DefaultInstructions string

	// TraceStore is optional; when nil, sessions run without audit tracing.
	TraceStore *trace.Store
}

// Handler upgrades incoming HTTP requests to WebSocket sessions and runs
// the ProtocolHandler dispatch loop for each.
type Handler struct {
	cfg Config
}

// NewHandler creates a gateway handler sharing cfg across every connection.
func NewHandler(cfg Config) *Handler {
	return &Handler{cfg: cfg}
}

// ServeHTTP upgrades the request and runs the session to completion.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := wsconn.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("gateway: websocket upgrade failed", "error", err)
		return
	}
	conn := wsconn.New(ws)
	h.runSession(r.Context(), conn)
}

func (h *Handler) runSession(ctx context.Context, conn *wsconn.Conn) {
	sessionID := uuid.NewString()
	emitter := events.New(conn)

	metrics.CallsActive.Inc()
	metrics.CallsTotal.Inc()
	defer metrics.CallsActive.Dec()

	sess := session.New(sessionID, protocol.SessionConfig{
		Modalities:        []protocol.Modality{protocol.ModalityText, protocol.ModalityAudio},
		InputAudioFormat:  protocol.AudioFormatPcm16,
		OutputAudioFormat: protocol.AudioFormatPcm16,
		TurnDetection:     &protocol.TurnDetection{Type: "none"},
		Temperature:       &defaultTemperature,
		Instructions:      h.cfg.DefaultInstructions,
		Model:             DefaultModel,
		Voice:             DefaultVoice,
	})

	var tracer *trace.Tracer
	if h.cfg.TraceStore != nil {
		if err := h.cfg.TraceStore.CreateConnection(sessionID, ""); err != nil {
			slog.Warn("gateway: trace connection create failed", "error", err)
		}
		tracer = trace.NewTracer(h.cfg.TraceStore, sessionID)
	}

	pipe := turn.New(turn.Config{
		ASR:       h.cfg.ASR,
		ASRCfg:    h.cfg.ASRCfg,
		VAD:       h.cfg.VAD,
		VADURL:    h.cfg.VADURL,
		LLM:       h.cfg.LLM,
		LLMEngine: h.cfg.LLMEngine,
		LLMModel:  h.cfg.LLMModel,
		TTS:       h.cfg.TTS,
		TTSEngine: h.cfg.TTSEngine,
		Emitter:   emitter,
		Tracer:    tracer,
	}, sess)

	slog.Info("gateway: session started", "session_id", sessionID)

	emitter.Emit(protocol.ServerEvent{Type: protocol.EvSessionCreated, Session: &sess.Config})
	emitter.Emit(protocol.ServerEvent{Type: protocol.EvConversationCreated, ConversationID: uuid.NewString()})

	for {
		data, err := conn.ReadRaw()
		if err != nil {
			break // transport gone or socket closed
		}
		ev, err := protocol.DecodeClientEvent(data)
		if err != nil {
			slog.Warn("gateway: malformed inbound frame, dropping", "error", err)
			continue // §7: malformed JSON is logged, no state change, connection stays open
		}
		dispatch(ctx, ev, sess, emitter, pipe)
	}

	emitter.Close()
	if tracer != nil {
		tracer.Close()
		if h.cfg.TraceStore != nil {
			if err := h.cfg.TraceStore.EndConnection(sessionID); err != nil {
				slog.Warn("gateway: trace connection end failed", "error", err)
			}
		}
	}
	conn.Close()
	slog.Info("gateway: session ended", "session_id", sessionID)
}

// dispatch runs one §4.5 branch. It suspends only in pipe's external-service
// calls and in an Emit that waits on a full event channel, matching the
// single receiver-task model of §5.
func dispatch(ctx context.Context, ev *protocol.ClientEvent, sess *session.Session, emitter *events.Emitter, pipe *turn.Pipeline) {
	if !ev.KnownType() {
		slog.Warn("gateway: unknown inbound event type, ignoring", "type", ev.Type)
		return
	}

	switch ev.Type {
	case protocol.EventSessionUpdate:
		handleSessionUpdate(ev, sess, emitter)
	case protocol.EventInputAudioBufferAppend:
		handleAppend(ev, sess)
	case protocol.EventInputAudioBufferCommit:
		pipe.Commit(ctx)
	case protocol.EventInputAudioBufferClear:
		sess.ClearAudio()
		emitter.Emit(protocol.ServerEvent{Type: protocol.EvInputAudioBufferCleared})
	case protocol.EventConversationItemCreate:
		handleItemCreate(ev, sess, emitter)
	case protocol.EventResponseCreate:
		handleResponseCreate(ctx, sess, emitter, pipe)
	case protocol.EventResponseCancel:
		sess.SetGenerating(false)
		emitter.Emit(protocol.ServerEvent{Type: protocol.EvConversationInterrupted})
	}
}

func handleSessionUpdate(ev *protocol.ClientEvent, sess *session.Session, emitter *events.Emitter) {
	if ev.Session == nil {
		return
	}
	if validationErr := sess.ApplyConfig(ev.Session); validationErr != nil {
		emitter.Emit(protocol.ServerEvent{Type: protocol.EvError, Error: validationErr})
		return
	}
	emitter.Emit(protocol.ServerEvent{Type: protocol.EvSessionUpdated, Session: &sess.Config})
}

func handleAppend(ev *protocol.ClientEvent, sess *session.Session) {
	if ev.Audio == "" {
		return
	}
	raw, err := base64.StdEncoding.DecodeString(ev.Audio)
	if err != nil {
		slog.Warn("gateway: invalid base64 in input_audio_buffer.append", "error", err)
		return
	}
	metrics.AudioChunks.Inc()
	sess.AppendAudio(raw)
}

func handleItemCreate(ev *protocol.ClientEvent, sess *session.Session, emitter *events.Emitter) {
	if ev.Item == nil {
		return
	}
	item := *ev.Item
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	switch item.ItemType {
	case protocol.ItemFunctionCall:
		sess.History.Push(history.Entry{
			Role:      history.RoleAssistant,
			ToolCalls: item.Name + "(" + item.Arguments + ")",
		})
	case protocol.ItemFunctionCallOutput:
		sess.History.Push(history.Entry{
			Role:       history.RoleTool,
			Message:    item.Output,
			ToolCallID: item.ID,
		})
	default:
		text := protocol.JoinContentText(item.Content)
		sess.History.Push(history.Entry{Role: historyRole(item.Role), Message: text})
	}

	emitter.Emit(protocol.ServerEvent{
		Type:           protocol.EvConversationItemCreated,
		PreviousItemID: ev.PreviousItemID,
		Item:           &item,
	})
}

func historyRole(r protocol.Role) history.Role {
	switch r {
	case protocol.RoleAssistant:
		return history.RoleAssistant
	default:
		return history.RoleUser
	}
}

func handleResponseCreate(ctx context.Context, sess *session.Session, emitter *events.Emitter, pipe *turn.Pipeline) {
	if sess.IsGenerating() {
		emitter.Emit(protocol.ServerEvent{
			Type: protocol.EvError,
			Error: protocol.NewValidationError("response_in_progress",
				"a response is already being generated", ""),
		})
		return
	}
	pipe.RunResponse(ctx)
}
