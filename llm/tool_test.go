package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoInput struct {
	Name  string `json:"name" jsonschema:"required,description=The name"`
	Count int    `json:"count,omitempty"`
}

type echoOutput struct {
	Result string `json:"result"`
	Value  int    `json:"value"`
}

func echoTool(t *testing.T) *TypedTool[echoInput, echoOutput] {
	t.Helper()
	tool, err := NewTool("echo", "echoes its input",
		func(ctx context.Context, in echoInput) (echoOutput, error) {
			return echoOutput{Result: in.Name, Value: in.Count}, nil
		})
	require.NoError(t, err)
	return tool
}

func TestNewTool(t *testing.T) {
	tool := echoTool(t)

	assert.Equal(t, "echo", tool.Name())
	assert.Equal(t, "echoes its input", tool.Description())

	params := tool.Parameters()
	require.NotNil(t, params)
	_, hasName := params.Properties.Get("name")
	_, hasCount := params.Properties.Get("count")
	assert.True(t, hasName)
	assert.True(t, hasCount)
}

func TestTypedToolExecute(t *testing.T) {
	tool := echoTool(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		args    string
		wantErr bool
		want    echoOutput
	}{
		{"full args", `{"name": "test", "count": 42}`, false, echoOutput{Result: "test", Value: 42}},
		{"minimal args", `{"name": "minimal"}`, false, echoOutput{Result: "minimal"}},
		{"empty object", `{}`, false, echoOutput{}},
		{"invalid JSON", `not valid json`, true, echoOutput{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tool.Execute(ctx, json.RawMessage(tt.args))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestTypedToolExecutePropagatesError(t *testing.T) {
	wantErr := errors.New("backend unavailable")
	tool := MustNewTool("failing", "always fails",
		func(ctx context.Context, in echoInput) (echoOutput, error) {
			return echoOutput{}, wantErr
		})

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"name": "x"}`))
	assert.ErrorIs(t, err, wantErr)
}

func TestTypedToolTypedCall(t *testing.T) {
	tool := MustNewTool("double", "doubles the count",
		func(ctx context.Context, in echoInput) (echoOutput, error) {
			return echoOutput{Result: in.Name + "!", Value: in.Count * 2}, nil
		})

	out, err := tool.TypedCall(context.Background(), echoInput{Name: "hi", Count: 5})
	require.NoError(t, err)
	assert.Equal(t, "hi!", out.Result)
	assert.Equal(t, 10, out.Value)
}

func TestToolRegistry(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(
		MustNewTool("a", "first", func(ctx context.Context, in echoInput) (string, error) { return "a", nil }),
		MustNewTool("b", "second", func(ctx context.Context, in echoInput) (string, error) { return "b", nil }),
	)

	got, ok := registry.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", got.Name())

	_, ok = registry.Get("missing")
	assert.False(t, ok)

	assert.Len(t, registry.All(), 2)

	// same name replaces
	registry.Register(MustNewTool("a", "replacement", func(ctx context.Context, in echoInput) (string, error) { return "a2", nil }))
	got, ok = registry.Get("a")
	require.True(t, ok)
	assert.Equal(t, "replacement", got.Description())
}

func TestExecuteToolCalls(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(
		MustNewTool("greet", "greets", func(ctx context.Context, in echoInput) (string, error) {
			return "hello " + in.Name, nil
		}),
		MustNewTool("stats", "returns a struct", func(ctx context.Context, in echoInput) (echoOutput, error) {
			return echoOutput{Result: in.Name, Value: in.Count}, nil
		}),
		MustNewTool("broken", "errors out", func(ctx context.Context, in echoInput) (string, error) {
			return "", errors.New("backend down")
		}),
	)
	ctx := context.Background()

	t.Run("empty calls yield no messages", func(t *testing.T) {
		msgs, err := ExecuteToolCalls(ctx, nil, registry)
		require.NoError(t, err)
		assert.Nil(t, msgs)
	})

	t.Run("string result passes through", func(t *testing.T) {
		msgs, err := ExecuteToolCalls(ctx, []ToolCall{
			{ID: "c1", Name: "greet", Arguments: `{"name": "world"}`},
		}, registry)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, RoleTool, msgs[0].Role)
		assert.Equal(t, "c1", msgs[0].ToolID)
		assert.Equal(t, "hello world", msgs[0].Content)
	})

	t.Run("struct result is JSON encoded", func(t *testing.T) {
		msgs, err := ExecuteToolCalls(ctx, []ToolCall{
			{ID: "c2", Name: "stats", Arguments: `{"name": "n", "count": 3}`},
		}, registry)
		require.NoError(t, err)
		require.Len(t, msgs, 1)

		var out echoOutput
		require.NoError(t, json.Unmarshal([]byte(msgs[0].Content), &out))
		assert.Equal(t, echoOutput{Result: "n", Value: 3}, out)
	})

	t.Run("execution error becomes tool message", func(t *testing.T) {
		msgs, err := ExecuteToolCalls(ctx, []ToolCall{
			{ID: "c3", Name: "broken", Arguments: `{"name": "x"}`},
		}, registry)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0].Content, "Error:")
		assert.Contains(t, msgs[0].Content, "backend down")
	})

	t.Run("unknown tool fails the batch", func(t *testing.T) {
		_, err := ExecuteToolCalls(ctx, []ToolCall{
			{ID: "c4", Name: "nope", Arguments: `{}`},
		}, registry)
		var notFound *ToolNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "nope", notFound.Name)
	})

	t.Run("multiple calls preserve order", func(t *testing.T) {
		msgs, err := ExecuteToolCalls(ctx, []ToolCall{
			{ID: "c5", Name: "greet", Arguments: `{"name": "a"}`},
			{ID: "c6", Name: "greet", Arguments: `{"name": "b"}`},
		}, registry)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "c5", msgs[0].ToolID)
		assert.Equal(t, "c6", msgs[1].ToolID)
	})
}
