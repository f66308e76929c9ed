package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugkit/plugkit/provider"
)

func testProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := New(WithAPIKey("test-key"), WithBaseURL(srv.URL))
	require.NoError(t, err)
	return p
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := New()
	require.Error(t, err)

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
}

func TestBuildRequestHoistsSystemMessage(t *testing.T) {
	req := buildRequest(&provider.Request{
		Model: "gemini-2.0-flash",
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: "be terse"},
			{Role: provider.RoleUser, Content: "hello"},
			{Role: provider.RoleAssistant, Content: "hi"},
		},
	})

	require.NotNil(t, req.SystemInstruction)
	assert.Equal(t, "be terse", req.SystemInstruction.Parts[0].Text)
	require.Len(t, req.Contents, 2)
	assert.Equal(t, "user", req.Contents[0].Role)
	assert.Equal(t, "model", req.Contents[1].Role)
}

func TestBuildRequestToolResult(t *testing.T) {
	req := buildRequest(&provider.Request{
		Messages: []provider.Message{
			{Role: provider.RoleTool, ToolID: "lookup", Content: `{"ok": true}`},
		},
	})

	require.Len(t, req.Contents, 1)
	assert.Equal(t, "user", req.Contents[0].Role)
	fr := req.Contents[0].Parts[0].FunctionResponse
	require.NotNil(t, fr)
	assert.Equal(t, "lookup", fr.Name)
	assert.Equal(t, map[string]any{"ok": true}, fr.Response)
}

func TestCallConvertsResponse(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		resp := generateContentResponse{
			Candidates: []candidate{{
				Content: &content{
					Role: "model",
					Parts: []part{
						{Text: "calling a tool"},
						{FunctionCall: &functionCall{Name: "search", Args: map[string]any{"q": "go"}}},
					},
				},
				FinishReason: "STOP",
			}},
			UsageMetadata: &usageMetadata{PromptTokenCount: 4, CandidatesTokenCount: 6, TotalTokenCount: 10},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	resp, err := p.Call(context.Background(), &provider.Request{
		Model:    "gemini-2.0-flash",
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "hello"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "calling a tool", resp.Content)
	assert.Equal(t, 10, resp.Usage.TotalTokens)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "search", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"q":"go"}`, resp.ToolCalls[0].Arguments)
}

func TestCallSurfacesAPIError(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(errorResponse{
			Error: apiError{Code: 400, Status: "INVALID_ARGUMENT", Message: "bad model"},
		})
	})

	_, err := p.Call(context.Background(), &provider.Request{Model: "nope"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "INVALID_ARGUMENT", apiErr.Status)
	assert.Equal(t, "bad model", apiErr.Message)
}

func TestCallStreamAssemblesChunks(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "alt=sse", r.URL.RawQuery)
		w.Header().Set("Content-Type", "text/event-stream")

		events := []string{
			`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hel"}]}}]}`,
			`{"candidates":[{"content":{"role":"model","parts":[{"text":"lo"}]}}]}`,
			`{"candidates":[{"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":2,"totalTokenCount":5}}`,
		}
		for _, ev := range events {
			fmt.Fprintf(w, "data: %s\n\n", ev)
		}
	})

	stream, err := p.CallStream(context.Background(), &provider.Request{Model: "m"})
	require.NoError(t, err)
	defer func() { _ = stream.Close() }()

	var text string
	var lastUsage *provider.Usage
	for stream.Next() {
		chunk := stream.Current()
		text += chunk.Delta
		if chunk.Usage != nil {
			lastUsage = chunk.Usage
		}
	}
	require.NoError(t, stream.Err())

	assert.Equal(t, "Hello", text)
	require.NotNil(t, lastUsage)
	assert.Equal(t, 5, lastUsage.TotalTokens)

	acc := stream.Accumulated()
	assert.Equal(t, "Hello", acc.Content)
	assert.Equal(t, provider.FinishReasonStop, acc.FinishReason)
	assert.Equal(t, 5, acc.Usage.TotalTokens)
}

func TestCallStreamFunctionCall(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"candidates":[{"content":{"role":"model","parts":[{"functionCall":{"name":"search","args":{"q":"go"}}}]}}]}`+"\n\n")
	})

	stream, err := p.CallStream(context.Background(), &provider.Request{Model: "m"})
	require.NoError(t, err)
	defer func() { _ = stream.Close() }()

	for stream.Next() {
	}
	require.NoError(t, stream.Err())

	acc := stream.Accumulated()
	require.Len(t, acc.ToolCalls, 1)
	assert.Equal(t, "search", acc.ToolCalls[0].Name)
	assert.JSONEq(t, `{"q":"go"}`, acc.ToolCalls[0].Arguments)
}

func TestProviderRegistration(t *testing.T) {
	assert.True(t, provider.IsRegistered("gemini"))
}
