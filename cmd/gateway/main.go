package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/openai/openai-go/v2/packages/param"

	"github.com/kaelgw/realtime-gateway/internal/asrclient"
	"github.com/kaelgw/realtime-gateway/internal/config"
	"github.com/kaelgw/realtime-gateway/internal/gateway"
	"github.com/kaelgw/realtime-gateway/internal/llmclient"
	"github.com/kaelgw/realtime-gateway/internal/router"
	"github.com/kaelgw/realtime-gateway/internal/trace"
	"github.com/kaelgw/realtime-gateway/internal/ttsclient"
	"github.com/kaelgw/realtime-gateway/internal/turn"
	"github.com/kaelgw/realtime-gateway/internal/vadclient"
)

const httpTimeout = 30 * time.Second

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	env := config.LoadEnv()
	tuning := config.LoadTuning("gateway.json")

	asrClient := asrclient.New(env.ASRPoolSize, httpTimeout)
	vadClient := vadclient.New(10, httpTimeout)
	llmRouter := initLLM(env, tuning)
	ttsRouter := initTTS(env)

	var traceStore *trace.Store
	if env.PostgresURL != "" {
		var err error
		traceStore, err = trace.Open(env.PostgresURL)
		if err != nil {
			slog.Error("trace store open failed", "error", err)
		} else {
			slog.Info("tracing enabled", "postgres", env.PostgresURL)
		}
	}

	handler := gateway.NewHandler(gateway.Config{
		ASR: asrClient,
		ASRCfg: turn.ASRConfig{
			URL:    env.ASRURL,
			APIKey: env.ASRAPIKey,
			Model:  env.ASRModel,
			Lang:   env.ASRLang,
			Prompt: env.ASRPrompt,
		},
		VAD:                 vadClient,
		VADURL:              env.VADURL,
		LLM:                 llmRouter,
		LLMEngine:           tuning.LLMEngine,
		LLMModel:            tuning.LLMModel,
		TTS:                 ttsRouter,
		TTSEngine:           tuning.TTSEngine,
		DefaultInstructions: tuning.DefaultInstructions,
		TraceStore:          traceStore,
	})

	mux := http.NewServeMux()
	registerRoutes(mux, deps{
		wsHandler:  handler,
		ttsRouter:  ttsRouter,
		llmRouter:  llmRouter,
		traceStore: traceStore,
	})

	addr := ":" + env.Port
	srv := &http.Server{Addr: addr, Handler: mux}

	go awaitShutdown(srv, traceStore)

	slog.Info("gateway starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("gateway stopped")
}

func awaitShutdown(srv *http.Server, traceStore *trace.Store) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if traceStore != nil {
		if err := traceStore.Close(); err != nil {
			slog.Warn("trace store close", "error", err)
		}
	}
	srv.Shutdown(ctx)
}

func initLLM(env config.Env, t config.Tuning) *llmclient.AgentClient {
	client := llmclient.NewAgentClient("openai", t.LLMMaxTokens)
	if env.OpenAIAPIKey != "" {
		client.Register("openai", agents.NewOpenAIProvider(agents.OpenAIProviderParams{
			APIKey:       param.NewOpt(env.OpenAIAPIKey),
			UseResponses: param.NewOpt(true),
		}), t.OpenAIModel)
	}
	if env.AnthropicAPIKey != "" {
		client.Register("anthropic", agents.NewOpenAIProvider(agents.OpenAIProviderParams{
			BaseURL:      param.NewOpt("https://api.anthropic.com/v1/"),
			APIKey:       param.NewOpt(env.AnthropicAPIKey),
			UseResponses: param.NewOpt(false),
		}), t.AnthropicModel)
	}
	return client
}

func initTTS(env config.Env) *router.Router[ttsclient.Provider] {
	backends := map[string]ttsclient.Provider{}
	if env.StableURL != "" {
		backends[ttsclient.VariantStable] = ttsclient.NewStableProvider(env.StableURL, "default", 32000, env.TTSPoolSize, httpTimeout)
	}
	if env.FishURL != "" {
		backends[ttsclient.VariantFish] = ttsclient.NewFishProvider(env.FishURL, env.FishAPIKey, env.FishReferenceID, env.TTSPoolSize, httpTimeout)
	}
	if env.GroqAPIKey != "" {
		backends[ttsclient.VariantGroq] = ttsclient.NewGroqProvider(env.GroqURL, env.GroqAPIKey, "playai-tts", "Fritz-PlayAI")
	}
	if env.StreamGSVURL != "" {
		backends[ttsclient.VariantStreamGSV] = ttsclient.NewStreamGSVProvider(env.StreamGSVURL, "default", env.TTSPoolSize, httpTimeout)
	}
	fallback := ttsclient.VariantStable
	if _, ok := backends[fallback]; !ok {
		for name := range backends {
			fallback = name
			break
		}
	}
	return router.New(backends, fallback)
}
