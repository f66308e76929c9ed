// Package anthropic adapts the Anthropic Messages API to the provider
// contract.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/plugkit/plugkit/provider"
)

func init() {
	provider.Register("anthropic", func() (provider.Provider, error) {
		return New()
	})
}

// Provider implements the provider contract over the Messages API.
type Provider struct {
	client *client
}

// Option configures the provider.
type Option func(*providerConfig)

type providerConfig struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// WithAPIKey sets the API key explicitly.
func WithAPIKey(key string) Option {
	return func(c *providerConfig) { c.apiKey = key }
}

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) Option {
	return func(c *providerConfig) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *providerConfig) { c.httpClient = client }
}

// New creates an Anthropic provider. The API key falls back to the
// ANTHROPIC_API_KEY environment variable.
func New(opts ...Option) (*Provider, error) {
	cfg := &providerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.apiKey == "" {
		cfg.apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.apiKey == "" {
		return nil, &APIError{Message: "Anthropic API key required: set ANTHROPIC_API_KEY or use WithAPIKey"}
	}
	return &Provider{client: newClient(cfg.apiKey, cfg.baseURL, cfg.httpClient)}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "anthropic"
}

// Call implements provider.Provider.
func (p *Provider) Call(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	apiResp, err := p.client.messages(ctx, buildRequest(req))
	if err != nil {
		return nil, err
	}
	return convertResponse(apiResp), nil
}

// CallStream implements provider.StreamingProvider.
func (p *Provider) CallStream(ctx context.Context, req *provider.Request) (provider.ResponseStream, error) {
	stream, err := p.client.messagesStream(ctx, buildRequest(req))
	if err != nil {
		return nil, err
	}
	return &messageStream{reader: stream, accumulated: &provider.Response{}}, nil
}

// buildRequest converts a provider.Request to the wire request. The system
// message is hoisted into the request-level system field; tool results
// become user-role tool_result blocks.
func buildRequest(req *provider.Request) *messagesRequest {
	apiReq := &messagesRequest{
		Model:         req.Model,
		Messages:      make([]message, 0, len(req.Messages)),
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		TopK:          req.TopK,
		StopSequences: req.StopSequences,
	}
	if req.MaxTokens != nil {
		apiReq.MaxTokens = *req.MaxTokens
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case provider.RoleSystem:
			apiReq.System = msg.Content
			continue
		case provider.RoleTool:
			apiReq.Messages = append(apiReq.Messages, message{
				Role: "user",
				Content: []contentPart{{
					Type:      "tool_result",
					ToolUseID: msg.ToolID,
					Content:   msg.Content,
				}},
			})
			continue
		}

		apiMsg := message{Role: string(msg.Role)}
		for _, tc := range msg.ToolCalls {
			var input any
			if tc.Arguments != "" {
				if err := json.Unmarshal([]byte(tc.Arguments), &input); err != nil {
					input = tc.Arguments
				}
			}
			apiMsg.Content = append(apiMsg.Content, contentPart{
				Type:  "tool_use",
				ID:    tc.ID,
				Name:  tc.Name,
				Input: input,
			})
		}
		if msg.Content != "" {
			apiMsg.Content = append(apiMsg.Content, contentPart{Type: "text", Text: msg.Content})
		}
		if len(apiMsg.Content) > 0 {
			apiReq.Messages = append(apiReq.Messages, apiMsg)
		}
	}

	for _, tool := range req.Tools {
		apiReq.Tools = append(apiReq.Tools, toolDef{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.Parameters,
		})
	}

	return apiReq
}

func convertResponse(resp *messagesResponse) *provider.Response {
	result := &provider.Response{
		FinishReason: convertStopReason(resp.StopReason),
		Usage: provider.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			result.Content += block.Text
		case "tool_use":
			inputJSON, _ := json.Marshal(block.Input)
			result.ToolCalls = append(result.ToolCalls, provider.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: string(inputJSON),
			})
		}
	}

	return result
}

func convertStopReason(reason string) provider.FinishReason {
	switch reason {
	case "tool_use":
		return provider.FinishReasonToolCalls
	case "max_tokens":
		return provider.FinishReasonLength
	default:
		return provider.FinishReasonStop
	}
}

// messageStream implements provider.ResponseStream.
type messageStream struct {
	reader      *streamReader
	accumulated *provider.Response
	err         error
	current     *provider.StreamChunk
	done        bool

	// tool call currently being assembled
	toolID   string
	toolName string
	toolArgs string
}

func (s *messageStream) Next() bool {
	if s.done || s.err != nil {
		return false
	}

	event, err := s.reader.ReadEvent()
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.done = true
			return false
		}
		s.err = err
		return false
	}

	s.current = &provider.StreamChunk{}

	switch event.Type {
	case "message_start":
		if event.Message != nil {
			s.accumulated.Usage.PromptTokens = event.Message.Usage.InputTokens
		}

	case "content_block_start":
		if event.ContentBlock != nil && event.ContentBlock.Type == "tool_use" {
			s.toolID = event.ContentBlock.ID
			s.toolName = event.ContentBlock.Name
			s.toolArgs = ""
		}

	case "content_block_delta":
		if event.Delta != nil {
			if event.Delta.Text != "" {
				s.current.Delta = event.Delta.Text
				s.accumulated.Content += event.Delta.Text
			}
			if event.Delta.PartialJSON != "" {
				s.toolArgs += event.Delta.PartialJSON
				s.current.ToolCallDelta = &provider.ToolCallDelta{
					ID:             s.toolID,
					Name:           s.toolName,
					ArgumentsDelta: event.Delta.PartialJSON,
				}
			}
		}

	case "content_block_stop":
		if s.toolID != "" {
			s.accumulated.ToolCalls = append(s.accumulated.ToolCalls, provider.ToolCall{
				ID:        s.toolID,
				Name:      s.toolName,
				Arguments: s.toolArgs,
			})
			s.toolID, s.toolName, s.toolArgs = "", "", ""
		}

	case "message_delta":
		if event.Delta != nil && event.Delta.StopReason != "" {
			s.current.FinishReason = convertStopReason(event.Delta.StopReason)
			s.accumulated.FinishReason = s.current.FinishReason
		}
		if event.Usage != nil {
			s.accumulated.Usage.CompletionTokens = event.Usage.OutputTokens
			s.accumulated.Usage.TotalTokens = s.accumulated.Usage.PromptTokens + event.Usage.OutputTokens
			u := s.accumulated.Usage
			s.current.Usage = &u
		}

	case "message_stop":
		s.done = true
		return false
	}

	return true
}

func (s *messageStream) Current() *provider.StreamChunk {
	return s.current
}

func (s *messageStream) Err() error {
	return s.err
}

func (s *messageStream) Close() error {
	return s.reader.Close()
}

func (s *messageStream) Accumulated() *provider.Response {
	return s.accumulated
}
