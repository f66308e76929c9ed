package llm

import (
	"encoding/json"
	"fmt"

	"github.com/plugkit/plugkit/provider"
)

// Option configures an LLM call.
type Option func(*callConfig)

// callConfig holds all configuration for a call.
type callConfig struct {
	providerName  string
	model         string
	temperature   *float64
	maxTokens     *int
	topP          *float64
	topK          *int
	seed          *int
	stopSequences []string
	systemMessage string
	tools         []Tool
	messages      []Message
	jsonSchema    *provider.JSONSchema
}

func newCallConfig() *callConfig {
	return &callConfig{}
}

func (c *callConfig) apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// resolve validates the config and constructs the configured provider.
func (c *callConfig) resolve() (provider.Provider, error) {
	if c.providerName == "" {
		return nil, ErrProviderRequired
	}
	if c.model == "" {
		return nil, ErrModelRequired
	}
	p, err := provider.Get(c.providerName)
	if err != nil {
		return nil, fmt.Errorf("getting provider: %w", err)
	}
	return p, nil
}

// resolveStreaming is resolve for calls that need streaming support.
func (c *callConfig) resolveStreaming() (provider.StreamingProvider, error) {
	p, err := c.resolve()
	if err != nil {
		return nil, err
	}
	sp, ok := p.(provider.StreamingProvider)
	if !ok {
		return nil, fmt.Errorf("provider %q does not support streaming", c.providerName)
	}
	return sp, nil
}

func (c *callConfig) responseConfig() *responseConfig {
	return &responseConfig{
		providerName: c.providerName,
		model:        c.model,
		tools:        c.tools,
	}
}

// WithProvider sets the LLM provider (e.g. "openai", "anthropic").
func WithProvider(name string) Option {
	return func(c *callConfig) {
		c.providerName = name
	}
}

// WithModel sets the model to use (e.g. "gpt-4o-mini").
func WithModel(name string) Option {
	return func(c *callConfig) {
		c.model = name
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *callConfig) {
		c.temperature = &t
	}
}

// WithMaxTokens sets the maximum tokens in the response.
func WithMaxTokens(n int) Option {
	return func(c *callConfig) {
		c.maxTokens = &n
	}
}

// WithTopP sets the nucleus sampling parameter (0.0 to 1.0).
func WithTopP(p float64) Option {
	return func(c *callConfig) {
		c.topP = &p
	}
}

// WithTopK limits token selection to the k most probable tokens.
// Not supported by OpenAI-compatible endpoints.
func WithTopK(k int) Option {
	return func(c *callConfig) {
		c.topK = &k
	}
}

// WithSeed sets a random seed for reproducibility.
// Not supported by Anthropic.
func WithSeed(seed int) Option {
	return func(c *callConfig) {
		c.seed = &seed
	}
}

// WithStopSequences sets strings that end generation when emitted.
func WithStopSequences(seqs ...string) Option {
	return func(c *callConfig) {
		c.stopSequences = seqs
	}
}

// WithSystemMessage sets a system message.
func WithSystemMessage(msg string) Option {
	return func(c *callConfig) {
		c.systemMessage = msg
	}
}

// WithTools adds tools the model can use.
func WithTools(tools ...Tool) Option {
	return func(c *callConfig) {
		c.tools = append(c.tools, tools...)
	}
}

// WithMessages sets the conversation history for prompt-style calls.
func WithMessages(msgs ...Message) Option {
	return func(c *callConfig) {
		c.messages = append(c.messages, msgs...)
	}
}

// buildRequest creates a provider.Request from the config and prompt.
func (c *callConfig) buildRequest(prompt string) *provider.Request {
	var messages []Message
	if c.systemMessage != "" {
		messages = append(messages, SystemMessage(c.systemMessage))
	}
	messages = append(messages, c.messages...)
	if prompt != "" {
		messages = append(messages, UserMessage(prompt))
	}
	return c.buildRequestFromMessages(messages)
}

// buildRequestFromMessages creates a provider.Request from messages.
func (c *callConfig) buildRequestFromMessages(messages []Message) *provider.Request {
	req := &provider.Request{
		Model:         c.model,
		Temperature:   c.temperature,
		MaxTokens:     c.maxTokens,
		TopP:          c.topP,
		TopK:          c.topK,
		Seed:          c.seed,
		StopSequences: c.stopSequences,
		JSONSchema:    c.jsonSchema,
		Messages:      messages,
	}

	for _, tool := range c.tools {
		params, _ := json.Marshal(tool.Parameters())
		req.Tools = append(req.Tools, provider.ToolDef{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  params,
		})
	}

	return req
}
