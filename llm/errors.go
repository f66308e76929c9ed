package llm

import (
	"errors"
	"fmt"
)

// Sentinel errors for misconfigured calls. The messages name the option
// that fixes the problem.
var (
	ErrProviderRequired = errors.New("provider is required: use WithProvider option")
	ErrModelRequired    = errors.New("model is required: use WithModel option")

	// ErrNotParsed is returned by Parsed when the call carried no schema.
	ErrNotParsed = errors.New("response was not parsed: use CallParse to get structured output")
)

// ProviderError wraps a failure reported by a model provider, keeping the
// provider name and HTTP status for callers that branch on them.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// ParseError reports that a structured-output response did not decode
// into the requested type. Content holds the raw model output.
type ParseError struct {
	Content string
	Target  string
	Cause   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse response as %s: %v", e.Target, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// ToolError wraps a failure inside a tool's Execute.
type ToolError struct {
	ToolName string
	Cause    error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %q execution failed: %v", e.ToolName, e.Cause)
}

func (e *ToolError) Unwrap() error { return e.Cause }

// ToolNotFoundError reports a tool call naming a tool absent from the
// registry.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool not found: %q", e.Name)
}
