// Package llmclient implements the streaming LLM external-service adapter
// from spec.md §6/§9: a finite lazy sequence of
// {Text | FunctionCall | Stop | Error} chunks, single-reader consumed.
package llmclient

import (
	"context"
)

// ChunkKind discriminates Chunk.
type ChunkKind int

const (
	ChunkText ChunkKind = iota
	ChunkFunctionCall
	ChunkStop
	ChunkError
)

// FunctionCall is a tool-call request surfaced mid-stream. spec.md §4.7
// step 5 says FunctionCall chunks are "ignored for now" by the response
// generation loop, but the adapter still needs to produce them faithfully
// for any future consumer and for testing the stream contract end to end.
type FunctionCall struct {
	ID        string
	Name      string
	Arguments string
}

// Chunk is one item of the LLM's lazy output sequence.
type Chunk struct {
	Kind         ChunkKind
	Text         string
	FunctionCall *FunctionCall
	Err          error
}

// Message is one chat-history turn handed to the LLM.
type Message struct {
	Role    string
	Content string
}

// Client streams a completion for the given system instructions, prior
// history, and model/engine selection. The returned channel is closed
// after a Stop or Error chunk (or when ctx is done); the caller is the sole
// reader.
type Client interface {
	Stream(ctx context.Context, instructions string, history []Message, engine, model string) (<-chan Chunk, error)
}
