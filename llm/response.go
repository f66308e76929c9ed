package llm

import (
	"context"
	"fmt"

	"github.com/plugkit/plugkit/provider"
)

// Response wraps a provider response. T is the structured-output type for
// calls made with CallParse; plain calls use Response[string].
type Response[T any] struct {
	raw       *provider.Response
	parsed    T
	hasParsed bool
	parseErr  error
	messages  []Message       // full conversation history
	config    *responseConfig // carried so Resume can repeat the call setup
}

// responseConfig remembers the call setup a continuation needs.
type responseConfig struct {
	providerName string
	model        string
	tools        []Tool
}

// Text returns the raw text content of the response.
func (r Response[T]) Text() string {
	if r.raw == nil {
		return ""
	}
	return r.raw.Content
}

// Parsed returns the structured output. Returns ErrNotParsed for
// responses not created via CallParse.
func (r Response[T]) Parsed() (T, error) {
	switch {
	case r.parseErr != nil:
		return r.parsed, r.parseErr
	case !r.hasParsed:
		return r.parsed, ErrNotParsed
	default:
		return r.parsed, nil
	}
}

// MustParse returns the parsed value or panics.
func (r Response[T]) MustParse() T {
	v, err := r.Parsed()
	if err != nil {
		panic(err)
	}
	return v
}

// HasToolCalls reports whether the model requested tool calls.
func (r Response[T]) HasToolCalls() bool {
	return r.raw != nil && len(r.raw.ToolCalls) > 0
}

// ToolCalls returns the tool calls requested by the model.
func (r Response[T]) ToolCalls() []ToolCall {
	if r.raw == nil {
		return nil
	}
	calls := make([]ToolCall, len(r.raw.ToolCalls))
	for i, tc := range r.raw.ToolCalls {
		calls[i] = ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments}
	}
	return calls
}

// Usage returns token usage statistics.
func (r Response[T]) Usage() Usage {
	if r.raw == nil {
		return Usage{}
	}
	return Usage{
		PromptTokens:     r.raw.Usage.PromptTokens,
		CompletionTokens: r.raw.Usage.CompletionTokens,
		TotalTokens:      r.raw.Usage.TotalTokens,
	}
}

// FinishReason returns why the model stopped generating.
func (r Response[T]) FinishReason() FinishReason {
	if r.raw == nil {
		return ""
	}
	return FinishReason(r.raw.FinishReason)
}

// Raw exposes the underlying provider response for debugging and
// provider-specific fields.
func (r Response[T]) Raw() *provider.Response {
	return r.raw
}

// Messages returns the conversation history including the assistant's
// response.
func (r Response[T]) Messages() []Message {
	return r.messages
}

// Resume continues the conversation with another user turn, reusing the
// original provider, model, and tools:
//
//	resp, _ := llm.Call(ctx, "Recommend a book", opts...)
//	next, _ := resp.Resume(ctx, "Why that one?")
func (r Response[T]) Resume(ctx context.Context, content string, opts ...Option) (Response[string], error) {
	return r.resume(ctx, []Message{UserMessage(content)}, opts)
}

// ResumeWithToolOutputs continues the conversation with tool results,
// typically the messages produced by ExecuteToolCalls.
func (r Response[T]) ResumeWithToolOutputs(ctx context.Context, toolOutputs []Message, opts ...Option) (Response[string], error) {
	return r.resume(ctx, toolOutputs, opts)
}

func (r Response[T]) resume(ctx context.Context, extra []Message, opts []Option) (Response[string], error) {
	if r.config == nil {
		return Response[string]{}, fmt.Errorf("cannot resume: response was not created with Resume support")
	}

	messages := make([]Message, len(r.messages), len(r.messages)+len(extra))
	copy(messages, r.messages)
	messages = append(messages, extra...)

	// original call setup first, caller overrides last
	allOpts := make([]Option, 0, len(opts)+3)
	allOpts = append(allOpts, WithProvider(r.config.providerName), WithModel(r.config.model))
	if len(r.config.tools) > 0 {
		allOpts = append(allOpts, WithTools(r.config.tools...))
	}
	allOpts = append(allOpts, opts...)

	return CallMessages(ctx, messages, allOpts...)
}

// Usage contains token usage information.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // JSON string
}

// FinishReason indicates why the model stopped generating.
type FinishReason string

const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonToolCalls FinishReason = "tool_calls"
	FinishReasonLength    FinishReason = "length"
)

func newParsedResponse[T any](raw *provider.Response, parsed T, parseErr error) Response[T] {
	return Response[T]{
		raw:       raw,
		parsed:    parsed,
		hasParsed: parseErr == nil,
		parseErr:  parseErr,
	}
}

func newResponseWithHistory[T any](raw *provider.Response, parsed T, parseErr error, messages []Message, config *responseConfig) Response[T] {
	return Response[T]{
		raw:       raw,
		parsed:    parsed,
		hasParsed: parseErr == nil,
		parseErr:  parseErr,
		messages:  messages,
		config:    config,
	}
}
