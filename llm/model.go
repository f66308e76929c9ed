package llm

import (
	"context"
	"encoding/json"

	"github.com/plugkit/plugkit/provider"
	"github.com/plugkit/plugkit/schema"
)

// Model bundles a provider, model name, and default options for reuse:
//
//	model := llm.NewModel("openai", "gpt-4o-mini", llm.WithTemperature(0.7))
//	resp, err := model.Call(ctx, "Tell me a joke")
type Model struct {
	providerName string
	modelName    string
	baseOpts     []Option
}

// NewModel creates a Model. The extra options become defaults for every
// call made through it.
func NewModel(providerName, modelName string, opts ...Option) *Model {
	return &Model{providerName: providerName, modelName: modelName, baseOpts: opts}
}

// Call makes a call with the model's configuration. Per-call options
// override the defaults.
func (m *Model) Call(ctx context.Context, prompt string, opts ...Option) (Response[string], error) {
	return Call(ctx, prompt, m.mergeOptions(opts)...)
}

// CallParse fills target with structured output. Reflection-based because
// methods cannot introduce type parameters; prefer the package-level
// CallParse when the type is known at the call site.
func (m *Model) CallParse(ctx context.Context, prompt string, target any, opts ...Option) error {
	return callParseReflect(ctx, prompt, target, m.mergeOptions(opts)...)
}

// CallMessages makes a call with explicit message history.
func (m *Model) CallMessages(ctx context.Context, messages []Message, opts ...Option) (Response[string], error) {
	return CallMessages(ctx, messages, m.mergeOptions(opts)...)
}

func (m *Model) mergeOptions(opts []Option) []Option {
	merged := make([]Option, 0, len(m.baseOpts)+len(opts)+2)
	merged = append(merged, WithProvider(m.providerName), WithModel(m.modelName))
	merged = append(merged, m.baseOpts...)
	merged = append(merged, opts...) // per-call opts applied last
	return merged
}

func callParseReflect(ctx context.Context, prompt string, target any, opts ...Option) error {
	cfg := newCallConfig()
	cfg.apply(opts...)

	jsonSchema, err := schema.GenerateFromValue(target)
	if err != nil {
		return err
	}
	cfg.jsonSchema = &provider.JSONSchema{
		Name:   "response",
		Strict: true,
		Schema: jsonSchema,
	}

	p, err := cfg.resolve()
	if err != nil {
		return err
	}
	resp, err := p.Call(ctx, cfg.buildRequest(prompt))
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(resp.Content), target)
}
