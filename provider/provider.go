// Package provider defines the host-facing contract for model providers.
//
// A provider adapts one third-party model API (OpenAI-compatible, Gemini,
// Anthropic, ...) to the provider-agnostic request/response shapes below.
// Implementations are registered by name and looked up by the rest of the
// toolkit; they hold no shared state beyond their own HTTP client.
package provider

import "context"

// Provider is the core abstraction for model providers.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai", "gemini").
	Name() string

	// Call executes a non-streaming completion request.
	Call(ctx context.Context, req *Request) (*Response, error)
}

// StreamingProvider extends Provider with streaming capability.
type StreamingProvider interface {
	Provider

	// CallStream executes a streaming completion request.
	CallStream(ctx context.Context, req *Request) (ResponseStream, error)
}

// ResponseStream is a pull-based stream of completion chunks.
type ResponseStream interface {
	// Next advances to the next chunk, returning false when the stream is
	// exhausted or failed.
	Next() bool

	// Current returns the chunk Next advanced to.
	Current() *StreamChunk

	// Err returns the error that terminated the stream, if any.
	Err() error

	// Close releases stream resources.
	Close() error

	// Accumulated returns the response assembled from all chunks seen so far.
	Accumulated() *Response
}

// StreamChunk is a single streaming delta.
type StreamChunk struct {
	Delta         string
	ToolCallDelta *ToolCallDelta
	FinishReason  FinishReason

	// Usage is set on chunks that carry token statistics (typically the
	// final one). Consumers that track usage should keep the last value
	// seen, overwriting earlier ones.
	Usage *Usage
}

// ToolCallDelta is incremental tool call data within a stream.
type ToolCallDelta struct {
	ID             string
	Name           string
	ArgumentsDelta string
}
