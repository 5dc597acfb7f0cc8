// Package turn implements the TurnPipeline from spec.md §4.6–§4.8: the
// commit→VAD→ASR subpipeline and the LLM+TTS response-generation sequence,
// with the exact event ordering and item_id discipline the spec mandates.
package turn

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kaelgw/realtime-gateway/internal/asrclient"
	"github.com/kaelgw/realtime-gateway/internal/audio"
	"github.com/kaelgw/realtime-gateway/internal/events"
	"github.com/kaelgw/realtime-gateway/internal/history"
	"github.com/kaelgw/realtime-gateway/internal/llmclient"
	"github.com/kaelgw/realtime-gateway/internal/metrics"
	"github.com/kaelgw/realtime-gateway/internal/protocol"
	"github.com/kaelgw/realtime-gateway/internal/router"
	"github.com/kaelgw/realtime-gateway/internal/session"
	"github.com/kaelgw/realtime-gateway/internal/trace"
	"github.com/kaelgw/realtime-gateway/internal/ttsclient"
	"github.com/kaelgw/realtime-gateway/internal/vadclient"
)

// StandardErrorResponse is the fallback text substituted whenever the LLM
// stream fails or produces no usable text (§4.7 step 6, §9 "Global-ish
// constants").
const StandardErrorResponse = "抱歉，我没能理解您的回复。请您换种表达方式重新说一下"

// ASRConfig groups the ASR call parameters that are per-session rather
// than per-request (§6 contract: url, api_key, model, lang, prompt).
type ASRConfig struct {
	URL     string
	APIKey  string
	Model   string
	Lang    string
	Prompt  string
}

// Config wires every external collaborator and sink the pipeline needs.
type Config struct {
	ASR    *asrclient.Client
	ASRCfg ASRConfig

	VAD    *vadclient.Client
	VADURL string // empty means VAD is not configured for this session

	LLM       llmclient.Client
	LLMEngine string
	LLMModel  string

	TTS       *router.Router[ttsclient.Provider]
	TTSEngine string

	Emitter *events.Emitter
	Tracer  *trace.Tracer
}

// Pipeline runs the commit and response-generation subpipelines for one
// session. It is only ever called from that session's single receiver
// goroutine (§5) — no internal locking.
type Pipeline struct {
	cfg  Config
	sess *session.Session
}

// New creates a pipeline bound to sess.
func New(cfg Config, sess *session.Session) *Pipeline {
	return &Pipeline{cfg: cfg, sess: sess}
}

// Commit runs the §4.6 commit subpipeline: WAV-wrap → optional VAD gate →
// ASR → history append → acknowledgement events, then runs response
// generation if the effective turn_detection.create_response allows it.
func (p *Pipeline) Commit(ctx context.Context) {
	raw := p.sess.TakeAudio()
	if len(raw) == 0 {
		return // §4.3/§8 scenario 1: empty commit emits nothing
	}

	samples := audio.DecodePCM16(raw)
	wavBytes, err := audio.WrapWAV(samples, audio.CommitSampleRateHz)
	if err != nil {
		slog.Error("commit: wav wrap failed", "error", err)
		return
	}

	itemID := uuid.NewString()
	turnID := p.cfg.Tracer.StartTurn()
	start := time.Now()

	p.cfg.Emitter.Emit(protocol.ServerEvent{
		Type:   protocol.EvInputAudioBufferCommitted,
		ItemID: itemID,
	})

	if p.cfg.VADURL != "" {
		vadStart := time.Now()
		segments, err := p.cfg.VAD.Detect(ctx, wavBytes, p.cfg.VADURL)
		metrics.StageDuration.WithLabelValues("vad").Observe(time.Since(vadStart).Seconds())
		if err != nil {
			metrics.Errors.WithLabelValues("vad", "vad_error").Inc()
			slog.Warn("commit: vad failed, aborting turn", "error", err)
			p.cfg.Tracer.EndTurn(turnID, msSince(start), "", "", "vad_error")
			return
		}
		if len(segments) == 0 {
			p.cfg.Emitter.Emit(protocol.ServerEvent{
				Type:         protocol.EvConversationItemInputAudioTranscribed,
				ItemID:       itemID,
				ContentIndex: protocol.ContentIndexText,
				Transcript:   "",
			})
			p.cfg.Tracer.EndTurn(turnID, msSince(start), "", "", "no_speech")
			return
		}
	}

	asrStart := time.Now()
	segments, err := p.cfg.ASR.Transcribe(ctx, wavBytes, p.cfg.ASRCfg.URL, p.cfg.ASRCfg.APIKey,
		p.cfg.ASRCfg.Model, p.cfg.ASRCfg.Lang, p.cfg.ASRCfg.Prompt)
	metrics.StageDuration.WithLabelValues("asr").Observe(time.Since(asrStart).Seconds())
	if err != nil {
		metrics.Errors.WithLabelValues("asr", "asr_error").Inc()
		slog.Warn("commit: asr failed, aborting turn", "error", err)
		p.cfg.Tracer.EndTurn(turnID, msSince(start), "", "", "asr_error")
		return
	}
	transcript := strings.Join(segments, "\n")

	item := protocol.ConversationItem{
		ID:       itemID,
		ItemType: protocol.ItemMessage,
		Role:     protocol.RoleUser,
		Content: []protocol.ContentPart{{
			Kind:       protocol.ContentInputAudio,
			AudioB64:   base64.StdEncoding.EncodeToString(raw),
			Transcript: transcript,
		}},
	}
	p.sess.History.PushUser(transcript)

	p.cfg.Emitter.Emit(protocol.ServerEvent{
		Type: protocol.EvConversationItemCreated,
		Item: &item,
	})
	p.cfg.Emitter.Emit(protocol.ServerEvent{
		Type:         protocol.EvConversationItemInputAudioTranscribed,
		ItemID:       itemID,
		ContentIndex: protocol.ContentIndexText,
		Transcript:   transcript,
	})
	p.cfg.Tracer.EndTurn(turnID, msSince(start), transcript, "", "ok")

	if p.sess.Config.TurnDetection.CreateResponseOrDefault() {
		p.RunResponse(ctx)
	}
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// RunResponse runs the §4.7 LLM+TTS response-generation sequence. Returns
// false without emitting anything if the gate (§4.7 "Gate") rejects the
// turn — the caller decides whether that silence is itself the contract
// (commit path) or needs translating into an error event (response.create,
// handled one layer up in internal/gateway before this is even called).
func (p *Pipeline) RunResponse(ctx context.Context) bool {
	if p.sess.LastRole() == history.RoleAssistant {
		return false
	}
	if p.sess.IsGenerating() {
		return false
	}
	p.sess.SetGenerating(true)
	responseStart := time.Now()
	defer func() { metrics.E2EDuration.Observe(time.Since(responseStart).Seconds()) }()

	audioModality := hasAudioModality(p.sess.Config.Modalities)
	responseID := uuid.NewString()
	iid := uuid.NewString()

	p.cfg.Emitter.Emit(protocol.ServerEvent{
		Type:       protocol.EvResponseCreated,
		ResponseID: responseID,
		Response:   &protocol.Response{ID: responseID, Status: protocol.ResponseInProgress},
	})

	stubItem := assistantItem(iid, "", audioModality, "")
	p.cfg.Emitter.Emit(protocol.ServerEvent{
		Type:        protocol.EvResponseOutputItemAdded,
		ResponseID:  responseID,
		OutputIndex: protocol.OutputIndexZero,
		ItemID:      iid,
		Item:        &stubItem,
	})
	p.cfg.Emitter.Emit(protocol.ServerEvent{
		Type:         protocol.EvResponseContentPartAdded,
		ResponseID:   responseID,
		OutputIndex:  protocol.OutputIndexZero,
		ContentIndex: protocol.ContentIndexText,
		ItemID:       iid,
		Part:         &protocol.ContentPart{Kind: protocol.ContentText, Text: ""},
	})
	if audioModality {
		p.cfg.Emitter.Emit(protocol.ServerEvent{
			Type:         protocol.EvResponseContentPartAdded,
			ResponseID:   responseID,
			OutputIndex:  protocol.OutputIndexZero,
			ContentIndex: protocol.ContentIndexAudio,
			ItemID:       iid,
			Part:         &protocol.ContentPart{Kind: protocol.ContentAudio},
		})
	}

	llmResponse, hasValid := p.streamLLM(ctx, responseID, iid, audioModality)
	if !hasValid || strings.TrimSpace(llmResponse) == "" {
		llmResponse = StandardErrorResponse
	}

	p.cfg.Emitter.Emit(protocol.ServerEvent{
		Type:         protocol.EvResponseTextDone,
		ResponseID:   responseID,
		ItemID:       uuid.NewString(), // fresh per event, §4.7 note
		ContentIndex: protocol.ContentIndexText,
		Text:         llmResponse,
	})
	p.cfg.Emitter.Emit(protocol.ServerEvent{
		Type:         protocol.EvResponseContentPartDone,
		ResponseID:   responseID,
		ContentIndex: protocol.ContentIndexText,
		ItemID:       iid,
		Part:         &protocol.ContentPart{Kind: protocol.ContentText, Text: llmResponse},
	})
	if audioModality {
		p.cfg.Emitter.Emit(protocol.ServerEvent{
			Type:         protocol.EvResponseAudioDone,
			ResponseID:   responseID,
			ContentIndex: protocol.ContentIndexAudio,
			ItemID:       iid,
		})
		p.cfg.Emitter.Emit(protocol.ServerEvent{
			Type:         protocol.EvResponseContentPartDone,
			ResponseID:   responseID,
			ContentIndex: protocol.ContentIndexAudio,
			ItemID:       iid,
			Part:         &protocol.ContentPart{Kind: protocol.ContentAudio, Transcript: llmResponse},
		})
	}

	p.sess.History.PushAssistant(llmResponse)
	p.sess.SetGenerating(false)

	finalItem := assistantItem(iid, llmResponse, audioModality, llmResponse)
	p.cfg.Emitter.Emit(protocol.ServerEvent{
		Type:        protocol.EvResponseOutputItemDone,
		ResponseID:  responseID,
		OutputIndex: protocol.OutputIndexZero,
		ItemID:      iid,
		Item:        &finalItem,
	})
	p.cfg.Emitter.Emit(protocol.ServerEvent{
		Type:       protocol.EvResponseDone,
		ResponseID: responseID,
		Response:   &protocol.Response{ID: responseID, Status: protocol.ResponseCompleted},
	})

	return true
}

func assistantItem(iid, text string, audioModality bool, audioTranscript string) protocol.ConversationItem {
	content := []protocol.ContentPart{{Kind: protocol.ContentText, Text: text}}
	if audioModality {
		content = append(content, protocol.ContentPart{Kind: protocol.ContentAudio, Transcript: audioTranscript})
	}
	return protocol.ConversationItem{
		ID:       iid,
		ItemType: protocol.ItemMessage,
		Role:     protocol.RoleAssistant,
		Content:  content,
	}
}

func hasAudioModality(mods []protocol.Modality) bool {
	for _, m := range mods {
		if m == protocol.ModalityAudio {
			return true
		}
	}
	return false
}

// streamLLM runs §4.7 step 5: streams the LLM, emitting a text delta (with
// a fresh item_id per event) for every Text chunk and invoking tts_and_send
// per chunk when audio modality is active.
func (p *Pipeline) streamLLM(ctx context.Context, responseID, iid string, audioModality bool) (string, bool) {
	messages := historyToMessages(p.sess.History.All())
	llmStart := time.Now()
	defer func() { metrics.StageDuration.WithLabelValues("llm").Observe(time.Since(llmStart).Seconds()) }()

	chunks, err := p.cfg.LLM.Stream(ctx, p.sess.Config.Instructions, messages, p.cfg.LLMEngine, p.cfg.LLMModel)
	if err != nil {
		metrics.Errors.WithLabelValues("llm", "stream_start_error").Inc()
		slog.Warn("llm stream start failed", "error", err)
		return StandardErrorResponse, true
	}

	var resp strings.Builder
	hasValid := false

	for chunk := range chunks {
		switch chunk.Kind {
		case llmclient.ChunkText:
			trimmed := strings.TrimSpace(chunk.Text)
			if trimmed != "" && trimmed != "()" && trimmed != "[]" {
				hasValid = true
			}
			resp.WriteString(chunk.Text)
			p.cfg.Emitter.Emit(protocol.ServerEvent{
				Type:         protocol.EvResponseTextDelta,
				ResponseID:   responseID,
				ItemID:       uuid.NewString(), // fresh per event, §4.7 note
				ContentIndex: protocol.ContentIndexText,
				Delta:        chunk.Text,
			})
			if audioModality {
				p.sendTTS(ctx, responseID, iid, chunk.Text)
			}
		case llmclient.ChunkFunctionCall:
			// ignored for now (§4.7 step 5)
			continue
		case llmclient.ChunkStop:
			return resp.String(), hasValid
		case llmclient.ChunkError:
			metrics.Errors.WithLabelValues("llm", "stream_error").Inc()
			slog.Warn("llm stream error", "error", chunk.Err)
			return StandardErrorResponse, true
		}
	}

	return resp.String(), hasValid
}

func historyToMessages(entries []history.Entry) []llmclient.Message {
	out := make([]llmclient.Message, 0, len(entries))
	for _, e := range entries {
		out = append(out, llmclient.Message{Role: string(e.Role), Content: e.Message})
	}
	return out
}

// sendTTS runs §4.8 for one LLM text chunk: dispatch to the configured TTS
// provider, then frame and emit the resulting audio as response.audio.delta
// events under the response's single (stable) item id. TTS failures are
// logged and swallowed — the turn continues with text only for this chunk,
// per §4.9.
func (p *Pipeline) sendTTS(ctx context.Context, responseID, iid, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	provider, err := p.cfg.TTS.Route(p.cfg.TTSEngine)
	if err != nil {
		metrics.Errors.WithLabelValues("tts", "no_provider").Inc()
		slog.Warn("tts: no provider for engine", "engine", p.cfg.TTSEngine, "error", err)
		return
	}

	ttsStart := time.Now()
	out, err := provider.Synthesize(ctx, text)
	metrics.StageDuration.WithLabelValues("tts").Observe(time.Since(ttsStart).Seconds())
	if err != nil {
		metrics.Errors.WithLabelValues("tts", "synthesize_error").Inc()
		slog.Warn("tts: synthesize failed", "error", err)
		return
	}

	switch out.Kind {
	case ttsclient.OutputWAV:
		p.emitWAVFrames(responseID, iid, out.WAV)
	case ttsclient.OutputStream:
		p.emitStreamFrames(responseID, iid, out.Stream)
	}
}

func (p *Pipeline) emitWAVFrames(responseID, iid string, wav []byte) {
	samples, rate, err := audio.ParseWAV(wav)
	if err != nil {
		slog.Warn("tts: parse wav failed", "error", err)
		return
	}
	if rate != audio.OutputSampleRateHz {
		samples = audio.Resample(samples, rate, audio.OutputSampleRateHz)
	}
	pcm := audio.EncodePCM16(samples)
	for _, frame := range audio.FrameSamples(pcm) {
		p.emitAudioDelta(responseID, iid, frame)
	}
}

func (p *Pipeline) emitStreamFrames(responseID, iid string, stream io.ReadCloser) {
	defer stream.Close()
	framer := &audio.StreamFramer{}
	buf := make([]byte, 4096)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			for _, frame := range framer.Push(buf[:n]) {
				p.emitAudioDelta(responseID, iid, frame)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			slog.Warn("tts: stream read failed", "error", err)
			return
		}
	}
	if rest := framer.Flush(); len(rest) > 0 {
		p.emitAudioDelta(responseID, iid, rest)
	}
}

func (p *Pipeline) emitAudioDelta(responseID, iid string, frame []byte) {
	p.cfg.Emitter.Emit(protocol.ServerEvent{
		Type:         protocol.EvResponseAudioDelta,
		ResponseID:   responseID,
		ItemID:       iid,
		ContentIndex: protocol.ContentIndexAudio,
		Delta:        base64.StdEncoding.EncodeToString(frame),
	})
}
