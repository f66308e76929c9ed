// Package gemini adapts the Google Gemini generateContent API to the
// provider contract.
package gemini

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
	provider.Register("gemini", func() (provider.Provider, error) {
		return New()
	})
}

// Provider implements the provider contract over the Gemini API.
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

// New creates a Gemini provider. The API key falls back to the
// GEMINI_API_KEY environment variable.
func New(opts ...Option) (*Provider, error) {
	cfg := &providerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.apiKey == "" {
		cfg.apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.apiKey == "" {
		return nil, &APIError{Message: "Gemini API key required: set GEMINI_API_KEY or use WithAPIKey"}
	}
	return &Provider{client: newClient(cfg.apiKey, cfg.baseURL, cfg.httpClient)}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "gemini"
}

// Call implements provider.Provider.
func (p *Provider) Call(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	apiResp, err := p.client.generateContent(ctx, req.Model, buildRequest(req))
	if err != nil {
		return nil, err
	}
	return convertResponse(apiResp), nil
}

// CallStream implements provider.StreamingProvider.
func (p *Provider) CallStream(ctx context.Context, req *provider.Request) (provider.ResponseStream, error) {
	stream, err := p.client.streamGenerateContent(ctx, req.Model, buildRequest(req))
	if err != nil {
		return nil, err
	}
	return &contentStream{reader: stream, accumulated: &provider.Response{}}, nil
}

// buildRequest converts a provider.Request to the wire request. The system
// message is hoisted into systemInstruction; tool results become user-role
// functionResponse parts because Gemini has no dedicated tool role.
func buildRequest(req *provider.Request) *generateContentRequest {
	apiReq := &generateContentRequest{
		Contents: make([]content, 0, len(req.Messages)),
	}

	if req.Temperature != nil || req.MaxTokens != nil || req.TopP != nil || req.TopK != nil || len(req.StopSequences) > 0 {
		apiReq.GenerationConfig = &generationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
			TopP:            req.TopP,
			TopK:            req.TopK,
			StopSequences:   req.StopSequences,
		}
	}

	for _, msg := range req.Messages {
		if msg.Role == provider.RoleSystem {
			apiReq.SystemInstruction = &content{Parts: []part{{Text: msg.Content}}}
			continue
		}

		if msg.Role == provider.RoleTool {
			var responseData any
			_ = json.Unmarshal([]byte(msg.Content), &responseData)
			if responseData == nil {
				responseData = msg.Content
			}
			apiReq.Contents = append(apiReq.Contents, content{
				Role: "user",
				Parts: []part{{
					FunctionResponse: &functionResponse{
						Name:     msg.ToolID,
						Response: responseData,
					},
				}},
			})
			continue
		}

		apiContent := content{Role: convertRole(msg.Role)}
		for _, tc := range msg.ToolCalls {
			var args map[string]any
			if tc.Arguments != "" {
				if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
					args = make(map[string]any)
				}
			}
			apiContent.Parts = append(apiContent.Parts, part{
				FunctionCall: &functionCall{Name: tc.Name, Args: args},
			})
		}
		if msg.Content != "" {
			apiContent.Parts = append(apiContent.Parts, part{Text: msg.Content})
		}
		if len(apiContent.Parts) > 0 {
			apiReq.Contents = append(apiReq.Contents, apiContent)
		}
	}

	if len(req.Tools) > 0 {
		funcDecls := make([]functionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			funcDecls = append(funcDecls, functionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			})
		}
		apiReq.Tools = []tool{{FunctionDeclarations: funcDecls}}
	}

	if req.JSONSchema != nil {
		if apiReq.GenerationConfig == nil {
			apiReq.GenerationConfig = &generationConfig{}
		}
		apiReq.GenerationConfig.ResponseMimeType = "application/json"
		var schema any
		if err := json.Unmarshal(req.JSONSchema.Schema, &schema); err == nil {
			apiReq.GenerationConfig.ResponseSchema = schema
		}
	}

	return apiReq
}

func convertResponse(resp *generateContentResponse) *provider.Response {
	result := &provider.Response{}

	if resp.UsageMetadata != nil {
		result.Usage = convertUsage(resp.UsageMetadata)
	}
	if len(resp.Candidates) == 0 {
		return result
	}

	cand := resp.Candidates[0]
	result.FinishReason = convertFinishReason(cand.FinishReason)

	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				result.Content += p.Text
			}
			if p.FunctionCall != nil {
				argsJSON, _ := json.Marshal(p.FunctionCall.Args)
				result.ToolCalls = append(result.ToolCalls, provider.ToolCall{
					ID:        p.FunctionCall.Name, // Gemini has no call IDs; the name stands in
					Name:      p.FunctionCall.Name,
					Arguments: string(argsJSON),
				})
			}
		}
	}

	return result
}

func convertUsage(meta *usageMetadata) provider.Usage {
	return provider.Usage{
		PromptTokens:     meta.PromptTokenCount,
		CompletionTokens: meta.CandidatesTokenCount,
		TotalTokens:      meta.TotalTokenCount,
	}
}

func convertRole(role provider.Role) string {
	switch role {
	case provider.RoleUser:
		return "user"
	case provider.RoleAssistant:
		return "model"
	default:
		return string(role)
	}
}

func convertFinishReason(reason string) provider.FinishReason {
	switch reason {
	case "MAX_TOKENS":
		return provider.FinishReasonLength
	case "TOOL_USE", "FUNCTION_CALL":
		return provider.FinishReasonToolCalls
	default:
		return provider.FinishReasonStop
	}
}

// contentStream implements provider.ResponseStream.
type contentStream struct {
	reader      *streamReader
	accumulated *provider.Response
	err         error
	current     *provider.StreamChunk
	done        bool
}

func (s *contentStream) Next() bool {
	if s.done || s.err != nil {
		return false
	}

	chunk, err := s.reader.ReadChunk()
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.done = true
			return false
		}
		s.err = err
		return false
	}

	s.current = &provider.StreamChunk{}

	if chunk.UsageMetadata != nil {
		u := convertUsage(chunk.UsageMetadata)
		s.current.Usage = &u
		s.accumulated.Usage = u
	}

	if len(chunk.Candidates) > 0 {
		cand := chunk.Candidates[0]
		if cand.FinishReason != "" {
			s.current.FinishReason = convertFinishReason(cand.FinishReason)
			s.accumulated.FinishReason = s.current.FinishReason
		}

		if cand.Content != nil {
			for _, p := range cand.Content.Parts {
				if p.Text != "" {
					s.current.Delta += p.Text
					s.accumulated.Content += p.Text
				}
				if p.FunctionCall != nil {
					argsJSON, _ := json.Marshal(p.FunctionCall.Args)
					s.current.ToolCallDelta = &provider.ToolCallDelta{
						ID:             p.FunctionCall.Name,
						Name:           p.FunctionCall.Name,
						ArgumentsDelta: string(argsJSON),
					}
					s.accumulated.ToolCalls = append(s.accumulated.ToolCalls, provider.ToolCall{
						ID:        p.FunctionCall.Name,
						Name:      p.FunctionCall.Name,
						Arguments: string(argsJSON),
					})
				}
			}
		}
	}

	return true
}

func (s *contentStream) Current() *provider.StreamChunk {
	return s.current
}

func (s *contentStream) Err() error {
	return s.err
}

func (s *contentStream) Close() error {
	return s.reader.Close()
}

func (s *contentStream) Accumulated() *provider.Response {
	return s.accumulated
}
