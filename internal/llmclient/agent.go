package llmclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/nlpodyssey/openai-agents-go/modelsettings"
	"github.com/openai/openai-go/v2/packages/param"
)

// AgentClient routes LLM requests through the openai-agents-go SDK, one
// agents.ModelProvider per named engine (grounded on the teacher's
// AgentLLM in internal/pipeline/llm_agent.go).
type AgentClient struct {
	providers map[string]agents.ModelProvider
	models    map[string]string
	fallback  string
	maxTokens int
}

// NewAgentClient creates a client with the given fallback engine name and
// per-turn max-token budget.
func NewAgentClient(fallback string, maxTokens int) *AgentClient {
	return &AgentClient{
		providers: make(map[string]agents.ModelProvider),
		models:    make(map[string]string),
		fallback:  fallback,
		maxTokens: maxTokens,
	}
}

// Register adds a provider and its default model for engine.
func (a *AgentClient) Register(engine string, provider agents.ModelProvider, defaultModel string) {
	a.providers[engine] = provider
	a.models[engine] = defaultModel
}

// Has reports whether engine has a registered provider.
func (a *AgentClient) Has(engine string) bool {
	_, ok := a.providers[engine]
	return ok
}

// Engines lists every registered engine name.
func (a *AgentClient) Engines() []string {
	names := make([]string, 0, len(a.providers))
	for k := range a.providers {
		names = append(names, k)
	}
	return names
}

// Stream implements llmclient.Client. History is flattened into a single
// user message, since the SDK's RunStreamedChan takes one user message
// rather than a role-tagged array: every entry but the last becomes a
// "User: x\n" / "Assistant: y\n" / "Tool: z\n" line, and the last entry's
// text follows unlabelled.
func (a *AgentClient) Stream(ctx context.Context, instructions string, history []Message, engine, model string) (<-chan Chunk, error) {
	provider, useModel, err := a.resolve(engine, model)
	if err != nil {
		return nil, err
	}

	agent := agents.New("assistant").
		WithInstructions(instructions).
		WithModel(useModel).
		WithModelSettings(modelsettings.ModelSettings{
			MaxTokens: param.NewOpt(int64(a.maxTokens)),
		})

	runner := agents.Runner{Config: agents.RunConfig{
		ModelProvider:   provider,
		MaxTurns:        1,
		TracingDisabled: true,
	}}

	userMessage := formatTranscript(history)

	rawEvents, errCh, err := runner.RunStreamedChan(ctx, agent, userMessage)
	if err != nil {
		return nil, fmt.Errorf("llm stream start: %w", err)
	}

	out := make(chan Chunk, 8)
	go func() {
		defer close(out)
		for ev := range rawEvents {
			if chunk, ok := translate(ev); ok {
				select {
				case out <- chunk:
				case <-ctx.Done():
					return
				}
			}
		}
		if streamErr := <-errCh; streamErr != nil {
			out <- Chunk{Kind: ChunkError, Err: fmt.Errorf("llm stream: %w", streamErr)}
			return
		}
		out <- Chunk{Kind: ChunkStop}
	}()

	return out, nil
}

func translate(ev agents.StreamEvent) (Chunk, bool) {
	raw, ok := ev.(agents.RawResponsesStreamEvent)
	if !ok {
		return Chunk{}, false
	}
	switch raw.Data.Type {
	case "response.output_text.delta":
		return Chunk{Kind: ChunkText, Text: raw.Data.Delta}, true
	case "response.function_call_arguments.delta":
		return Chunk{Kind: ChunkFunctionCall, FunctionCall: &FunctionCall{
			ID:        raw.Data.ItemID,
			Arguments: raw.Data.Delta,
		}}, true
	case "response.function_call_arguments.done":
		return Chunk{Kind: ChunkFunctionCall, FunctionCall: &FunctionCall{
			ID:        raw.Data.ItemID,
			Arguments: raw.Data.Arguments,
		}}, true
	default:
		return Chunk{}, false
	}
}

func formatTranscript(history []Message) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	for _, m := range history[:len(history)-1] {
		fmt.Fprintf(&b, "%s: %s\n", roleLabel(m.Role), m.Content)
	}
	b.WriteString(history[len(history)-1].Content)
	return b.String()
}

func roleLabel(role string) string {
	switch role {
	case "assistant":
		return "Assistant"
	case "tool":
		return "Tool"
	default:
		return "User"
	}
}

func (a *AgentClient) resolve(engine, model string) (agents.ModelProvider, string, error) {
	provider, ok := a.providers[engine]
	if !ok {
		provider, ok = a.providers[a.fallback]
	}
	if !ok {
		return nil, "", fmt.Errorf("no llm provider for engine %q", engine)
	}

	if model != "" {
		return provider, model, nil
	}
	useModel := a.models[engine]
	if useModel == "" {
		useModel = a.models[a.fallback]
	}
	return provider, useModel, nil
}
