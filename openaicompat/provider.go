// Package openaicompat adapts any OpenAI-compatible chat-completions API to
// the provider contract. Besides OpenAI itself this covers the growing set of
// vendors that expose the same wire format behind a different base URL;
// presets are registered for OpenAI, Tongyi (DashScope compatible mode) and
// Moonshot.
package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/kaptinlin/jsonrepair"

	"github.com/plugkit/plugkit/provider"
)

// Preset describes one OpenAI-compatible vendor endpoint.
type Preset struct {
	// Name is the provider registry identifier.
	Name string

	// BaseURL is the API root, up to and excluding /chat/completions.
	BaseURL string

	// APIKeyEnv is the environment variable consulted when no explicit
	// key is configured.
	APIKeyEnv string
}

// Built-in presets. Additional compatible vendors can be used by
// constructing a Provider with WithBaseURL directly.
var (
	PresetOpenAI   = Preset{Name: "openai", BaseURL: "https://api.openai.com/v1", APIKeyEnv: "OPENAI_API_KEY"}
	PresetTongyi   = Preset{Name: "tongyi", BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1", APIKeyEnv: "DASHSCOPE_API_KEY"}
	PresetMoonshot = Preset{Name: "moonshot", BaseURL: "https://api.moonshot.cn/v1", APIKeyEnv: "MOONSHOT_API_KEY"}
)

func init() {
	for _, preset := range []Preset{PresetOpenAI, PresetTongyi, PresetMoonshot} {
		provider.Register(preset.Name, func() (provider.Provider, error) {
			return New(preset)
		})
	}
}

// Provider implements the provider contract over a chat-completions API.
type Provider struct {
	name   string
	client *client
}

// Option configures a Provider.
type Option func(*providerConfig)

type providerConfig struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// WithAPIKey sets the API key explicitly.
func WithAPIKey(key string) Option {
	return func(c *providerConfig) {
		c.apiKey = key
	}
}

// WithBaseURL overrides the preset's base URL. Useful for proxies and for
// self-hosted compatible endpoints (vLLM, LocalAI, ...).
func WithBaseURL(url string) Option {
	return func(c *providerConfig) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *providerConfig) {
		c.httpClient = client
	}
}

// New creates a provider for the given preset.
func New(preset Preset, opts ...Option) (*Provider, error) {
	cfg := &providerConfig{baseURL: preset.BaseURL}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.apiKey == "" && preset.APIKeyEnv != "" {
		cfg.apiKey = os.Getenv(preset.APIKeyEnv)
	}
	if cfg.apiKey == "" {
		return nil, &APIError{
			Message: preset.Name + " API key required: set " + preset.APIKeyEnv + " or use WithAPIKey",
		}
	}

	return &Provider{
		name:   preset.Name,
		client: newClient(cfg.apiKey, cfg.baseURL, cfg.httpClient),
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// Call implements provider.Provider.
func (p *Provider) Call(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	apiResp, err := p.client.chatCompletion(ctx, buildRequest(req))
	if err != nil {
		return nil, err
	}
	return convertResponse(apiResp), nil
}

// CallStream implements provider.StreamingProvider.
func (p *Provider) CallStream(ctx context.Context, req *provider.Request) (provider.ResponseStream, error) {
	stream, err := p.client.chatCompletionStream(ctx, buildRequest(req))
	if err != nil {
		return nil, err
	}

	return &chatStream{
		reader:      stream,
		accumulated: &provider.Response{},
		toolCalls:   make(map[int]*provider.ToolCall),
	}, nil
}

// buildRequest converts a provider.Request to the wire request.
func buildRequest(req *provider.Request) *chatCompletionRequest {
	apiReq := &chatCompletionRequest{
		Model:       req.Model,
		Messages:    make([]message, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
		Seed:        req.Seed,
		Stop:        req.StopSequences,
	}

	for _, msg := range req.Messages {
		apiMsg := message{
			Role:       string(msg.Role),
			Content:    msg.Content,
			ToolCallID: msg.ToolID,
		}
		if len(msg.ToolCalls) > 0 {
			apiMsg.ToolCalls = make([]toolCall, len(msg.ToolCalls))
			for i, tc := range msg.ToolCalls {
				apiMsg.ToolCalls[i] = toolCall{
					ID:   tc.ID,
					Type: "function",
					Function: functionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				}
			}
		}
		apiReq.Messages = append(apiReq.Messages, apiMsg)
	}

	for _, tool := range req.Tools {
		apiReq.Tools = append(apiReq.Tools, toolDef{
			Type: "function",
			Function: functionDef{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	if req.JSONSchema != nil {
		apiReq.ResponseFormat = &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaFormat{
				Name:   req.JSONSchema.Name,
				Strict: req.JSONSchema.Strict,
				Schema: req.JSONSchema.Schema,
			},
		}
	}

	return apiReq
}

// convertResponse converts the wire response to a provider.Response.
func convertResponse(resp *chatCompletionResponse) *provider.Response {
	if len(resp.Choices) == 0 {
		return &provider.Response{}
	}

	choice := resp.Choices[0]
	result := &provider.Response{
		Content:      choice.Message.Content,
		FinishReason: convertFinishReason(choice.FinishReason),
		Usage: provider.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}

	for _, tc := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, provider.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: repairArguments(tc.Function.Arguments),
		})
	}

	return result
}

func convertFinishReason(reason string) provider.FinishReason {
	switch reason {
	case "tool_calls":
		return provider.FinishReasonToolCalls
	case "length":
		return provider.FinishReasonLength
	default:
		return provider.FinishReasonStop
	}
}

// repairArguments makes tool-call argument JSON parseable when the model
// emitted slightly broken output (unquoted keys, trailing commas, truncated
// strings). Valid JSON passes through untouched; unrepairable input is
// returned as-is so the caller surfaces the original error.
func repairArguments(args string) string {
	if args == "" || json.Valid([]byte(args)) {
		return args
	}
	fixed, err := jsonrepair.JSONRepair(args)
	if err != nil {
		return args
	}
	return fixed
}

// chatStream implements provider.ResponseStream.
type chatStream struct {
	reader      *streamReader
	accumulated *provider.Response
	err         error
	current     *provider.StreamChunk
	done        bool
	toolCalls   map[int]*provider.ToolCall // assembled by index
}

func (s *chatStream) Next() bool {
	if s.done || s.err != nil {
		return false
	}

	chunk, err := s.reader.ReadChunk()
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.done = true
			for _, tc := range s.toolCalls {
				tc.Arguments = repairArguments(tc.Arguments)
				s.accumulated.ToolCalls = append(s.accumulated.ToolCalls, *tc)
			}
			return false
		}
		s.err = err
		return false
	}

	s.current = &provider.StreamChunk{}

	if len(chunk.Choices) > 0 {
		choice := chunk.Choices[0]
		delta := choice.Delta

		if delta.Content != "" {
			s.current.Delta = delta.Content
			s.accumulated.Content += delta.Content
		}

		for _, tc := range delta.ToolCalls {
			if _, exists := s.toolCalls[tc.Index]; !exists {
				s.toolCalls[tc.Index] = &provider.ToolCall{}
			}
			toolCall := s.toolCalls[tc.Index]

			if tc.ID != "" {
				toolCall.ID = tc.ID
			}
			if tc.Function.Name != "" {
				toolCall.Name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				toolCall.Arguments += tc.Function.Arguments
				s.current.ToolCallDelta = &provider.ToolCallDelta{
					ID:             toolCall.ID,
					Name:           toolCall.Name,
					ArgumentsDelta: tc.Function.Arguments,
				}
			}
		}

		if choice.FinishReason != nil {
			s.current.FinishReason = convertFinishReason(*choice.FinishReason)
			s.accumulated.FinishReason = s.current.FinishReason
		}
	}

	if chunk.Usage != nil {
		u := provider.Usage{
			PromptTokens:     chunk.Usage.PromptTokens,
			CompletionTokens: chunk.Usage.CompletionTokens,
			TotalTokens:      chunk.Usage.TotalTokens,
		}
		s.current.Usage = &u
		s.accumulated.Usage = u
	}

	return true
}

func (s *chatStream) Current() *provider.StreamChunk {
	return s.current
}

func (s *chatStream) Err() error {
	return s.err
}

func (s *chatStream) Close() error {
	return s.reader.Close()
}

func (s *chatStream) Accumulated() *provider.Response {
	return s.accumulated
}
