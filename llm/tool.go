package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/plugkit/plugkit/schema"
)

// Tool is an executable capability the model can invoke. Heterogeneous
// tool collections (builtin wrappers, MCP tools, TypedTools) all satisfy
// this interface.
type Tool interface {
	// Name returns the tool's name as seen by the model.
	Name() string

	// Description tells the model what the tool does.
	Description() string

	// Parameters returns the JSON schema for the tool's input.
	Parameters() *jsonschema.Schema

	// Execute runs the tool with the given JSON arguments.
	Execute(ctx context.Context, args json.RawMessage) (any, error)
}

// TypedTool wraps a plain Go function as a Tool, reflecting the input
// schema from the In type:
//
//	type WeatherInput struct {
//	    City string `json:"city" jsonschema:"required,description=City name"`
//	}
//
//	weather := llm.MustNewTool("get_weather", "Get weather for a city",
//	    func(ctx context.Context, in WeatherInput) (WeatherOutput, error) { ... })
type TypedTool[In any, Out any] struct {
	name        string
	description string
	fn          func(ctx context.Context, in In) (Out, error)
	params      *jsonschema.Schema
}

// NewTool creates a typed tool from a function.
func NewTool[In any, Out any](
	name, description string,
	fn func(ctx context.Context, in In) (Out, error),
) (*TypedTool[In, Out], error) {
	var zero In
	return &TypedTool[In, Out]{
		name:        name,
		description: description,
		fn:          fn,
		params:      schema.Reflector.Reflect(&zero),
	}, nil
}

// MustNewTool is NewTool for package-level tool variables.
func MustNewTool[In any, Out any](
	name, description string,
	fn func(ctx context.Context, in In) (Out, error),
) *TypedTool[In, Out] {
	t, err := NewTool(name, description, fn)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *TypedTool[In, Out]) Name() string { return t.name }

func (t *TypedTool[In, Out]) Description() string { return t.description }

func (t *TypedTool[In, Out]) Parameters() *jsonschema.Schema { return t.params }

// Execute decodes the JSON arguments into In and calls the function.
func (t *TypedTool[In, Out]) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	var input In
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tool arguments: %w", err)
	}
	return t.fn(ctx, input)
}

// TypedCall invokes the tool with a typed input, skipping the JSON
// round-trip.
func (t *TypedTool[In, Out]) TypedCall(ctx context.Context, input In) (Out, error) {
	return t.fn(ctx, input)
}

// ToolRegistry is a name-indexed tool collection.
type ToolRegistry struct {
	tools map[string]Tool
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

// Register adds tools, replacing any earlier tool with the same name.
func (r *ToolRegistry) Register(tools ...Tool) {
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
}

// Get retrieves a tool by name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// All returns the registered tools.
func (r *ToolRegistry) All() []Tool {
	tools := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	return tools
}

// ExecuteToolCalls runs each requested tool call against the registry and
// returns the tool result messages in call order. Execution errors become
// "Error: ..." result content so the model can react; an unknown tool name
// aborts with ToolNotFoundError.
func ExecuteToolCalls(ctx context.Context, toolCalls []ToolCall, registry *ToolRegistry) ([]Message, error) {
	if len(toolCalls) == 0 {
		return nil, nil
	}

	messages := make([]Message, 0, len(toolCalls))
	for _, tc := range toolCalls {
		tool, ok := registry.Get(tc.Name)
		if !ok {
			return nil, &ToolNotFoundError{Name: tc.Name}
		}

		result, err := tool.Execute(ctx, json.RawMessage(tc.Arguments))
		messages = append(messages, ToolMessage(tc.ID, resultContent(result, err)))
	}
	return messages, nil
}

// resultContent renders a tool result for the conversation: strings pass
// through, everything else is JSON-encoded.
func resultContent(result any, err error) string {
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	if s, ok := result.(string); ok {
		return s
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("Error marshaling result: %v", err)
	}
	return string(encoded)
}
