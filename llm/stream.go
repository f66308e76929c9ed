package llm

import (
	"context"
	"fmt"
	"iter"

	"github.com/plugkit/plugkit/provider"
	"github.com/plugkit/plugkit/react"
)

// Stream represents a streaming response from an LLM.
type Stream struct {
	stream provider.ResponseStream
	err    error
}

// Chunks returns an iterator over the stream chunks.
//
// Example:
//
//	stream, err := llm.CallStream(ctx, "Write a story", opts...)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//
//	for chunk := range stream.Chunks() {
//	    fmt.Print(chunk.Delta)
//	}
func (s *Stream) Chunks() iter.Seq[StreamChunk] {
	return func(yield func(StreamChunk) bool) {
		for s.stream.Next() {
			current := s.stream.Current()
			chunk := StreamChunk{
				Delta:        current.Delta,
				FinishReason: FinishReason(current.FinishReason),
			}
			if current.ToolCallDelta != nil {
				chunk.ToolCallDelta = &ToolCallDelta{
					ID:             current.ToolCallDelta.ID,
					Name:           current.ToolCallDelta.Name,
					ArgumentsDelta: current.ToolCallDelta.ArgumentsDelta,
				}
			}
			if current.Usage != nil {
				u := Usage{
					PromptTokens:     current.Usage.PromptTokens,
					CompletionTokens: current.Usage.CompletionTokens,
					TotalTokens:      current.Usage.TotalTokens,
				}
				chunk.Usage = &u
			}
			if !yield(chunk) {
				return
			}
		}
		s.err = s.stream.Err()
	}
}

// React parses the stream as ReAct-formatted model output, yielding text
// segments and decoded actions instead of raw deltas. Token usage reported
// by the provider travels through the parser and is available from it after
// the stream ends.
//
// Example:
//
//	stream, err := llm.CallStream(ctx, prompt, opts...)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//
//	parser := react.NewParser()
//	for chunk := range stream.React(parser) {
//	    switch c := chunk.(type) {
//	    case react.Text:
//	        fmt.Print(string(c))
//	    case react.Action:
//	        fmt.Printf("-> %s(%v)\n", c.Name, c.Input)
//	    }
//	}
func (s *Stream) React(parser *react.Parser) iter.Seq[react.Chunk] {
	deltas := func(yield func(react.Delta) bool) {
		for s.stream.Next() {
			current := s.stream.Current()
			if !yield(react.Delta{Text: current.Delta, Usage: current.Usage}) {
				return
			}
		}
		s.err = s.stream.Err()
	}
	return parser.Parse(deltas)
}

// Err returns any error that occurred during streaming.
func (s *Stream) Err() error {
	return s.err
}

// Close closes the stream and releases resources.
func (s *Stream) Close() error {
	return s.stream.Close()
}

// Response returns the accumulated response after streaming completes.
func (s *Stream) Response() Response[string] {
	accumulated := s.stream.Accumulated()
	return newParsedResponse(accumulated, accumulated.Content, nil)
}

// StreamChunk represents a single chunk in a streaming response.
type StreamChunk struct {
	Delta         string
	ToolCallDelta *ToolCallDelta
	FinishReason  FinishReason
	Usage         *Usage
}

// ToolCallDelta represents incremental tool call data.
type ToolCallDelta struct {
	ID             string
	Name           string
	ArgumentsDelta string
}

// CallStream makes a streaming LLM call.
//
// Example:
//
//	stream, err := llm.CallStream(ctx, "Write a short story",
//	    llm.WithProvider("openai"),
//	    llm.WithModel("gpt-4o-mini"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//
//	for chunk := range stream.Chunks() {
//	    fmt.Print(chunk.Delta)
//	}
//
//	if err := stream.Err(); err != nil {
//	    return err
//	}
func CallStream(ctx context.Context, prompt string, opts ...Option) (*Stream, error) {
	cfg := newCallConfig()
	cfg.apply(opts...)

	sp, err := cfg.resolveStreaming()
	if err != nil {
		return nil, err
	}

	stream, err := sp.CallStream(ctx, cfg.buildRequest(prompt))
	if err != nil {
		return nil, fmt.Errorf("starting stream: %w", err)
	}

	return &Stream{stream: stream}, nil
}

// CallMessagesStream makes a streaming LLM call with message history.
func CallMessagesStream(ctx context.Context, messages []Message, opts ...Option) (*Stream, error) {
	cfg := newCallConfig()
	cfg.apply(opts...)

	sp, err := cfg.resolveStreaming()
	if err != nil {
		return nil, err
	}

	stream, err := sp.CallStream(ctx, cfg.buildRequestFromMessages(messages))
	if err != nil {
		return nil, fmt.Errorf("starting stream: %w", err)
	}

	return &Stream{stream: stream}, nil
}

// RunReact makes a streaming call and parses the output as ReAct format in
// one step. The returned parser exposes token usage once iteration ends;
// the returned close function must be called when done.
func RunReact(ctx context.Context, prompt string, opts ...Option) (iter.Seq[react.Chunk], *react.Parser, func() error, error) {
	stream, err := CallStream(ctx, prompt, opts...)
	if err != nil {
		return nil, nil, nil, err
	}
	parser := react.NewParser()
	return stream.React(parser), parser, stream.Close, nil
}
