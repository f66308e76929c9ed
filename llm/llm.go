// Package llm is the high-level API for invoking language models through
// registered providers.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/plugkit/plugkit/provider"
	"github.com/plugkit/plugkit/schema"
)

// Call makes an LLM call and returns a text response.
//
// Example:
//
//	resp, err := llm.Call(ctx, "Recommend a fantasy book",
//	    llm.WithProvider("openai"),
//	    llm.WithModel("gpt-4o-mini"),
//	)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(resp.Text())
func Call(ctx context.Context, prompt string, opts ...Option) (Response[string], error) {
	cfg := newCallConfig()
	cfg.apply(opts...)

	p, err := cfg.resolve()
	if err != nil {
		return Response[string]{}, err
	}

	req := cfg.buildRequest(prompt)
	resp, err := p.Call(ctx, req)
	if err != nil {
		return Response[string]{}, fmt.Errorf("calling provider: %w", err)
	}

	return newResponseWithHistory(resp, resp.Content, nil, historyFrom(req, resp), cfg.responseConfig()), nil
}

// CallParse makes an LLM call with structured output and parses the response
// into T. The JSON schema is generated from T by reflection.
//
// Example:
//
//	type Book struct {
//	    Title  string `json:"title" jsonschema:"required,description=Book title"`
//	    Author string `json:"author" jsonschema:"required"`
//	}
//
//	resp, err := llm.CallParse[Book](ctx, "Recommend a sci-fi book",
//	    llm.WithProvider("openai"),
//	    llm.WithModel("gpt-4o-mini"),
//	)
//	if err != nil {
//	    return err
//	}
//	book := resp.MustParse()
func CallParse[T any](ctx context.Context, prompt string, opts ...Option) (Response[T], error) {
	cfg := newCallConfig()
	cfg.apply(opts...)

	typeName, err := attachSchema[T](cfg)
	if err != nil {
		return Response[T]{}, err
	}

	p, err := cfg.resolve()
	if err != nil {
		return Response[T]{}, err
	}

	req := cfg.buildRequest(prompt)
	resp, err := p.Call(ctx, req)
	if err != nil {
		return Response[T]{}, fmt.Errorf("calling provider: %w", err)
	}

	parsed, parseErr := decodeContent[T](resp.Content, typeName)
	return newResponseWithHistory(resp, parsed, parseErr, historyFrom(req, resp), cfg.responseConfig()), nil
}

// CallMessages makes an LLM call with a full message history. Useful for
// multi-turn conversations.
func CallMessages(ctx context.Context, messages []Message, opts ...Option) (Response[string], error) {
	cfg := newCallConfig()
	cfg.apply(opts...)

	p, err := cfg.resolve()
	if err != nil {
		return Response[string]{}, err
	}

	req := cfg.buildRequestFromMessages(messages)
	resp, err := p.Call(ctx, req)
	if err != nil {
		return Response[string]{}, fmt.Errorf("calling provider: %w", err)
	}

	return newResponseWithHistory(resp, resp.Content, nil, historyFrom(req, resp), cfg.responseConfig()), nil
}

// CallMessagesParse combines CallMessages with structured output parsing.
func CallMessagesParse[T any](ctx context.Context, messages []Message, opts ...Option) (Response[T], error) {
	cfg := newCallConfig()
	cfg.apply(opts...)

	typeName, err := attachSchema[T](cfg)
	if err != nil {
		return Response[T]{}, err
	}

	p, err := cfg.resolve()
	if err != nil {
		return Response[T]{}, err
	}

	req := cfg.buildRequestFromMessages(messages)
	resp, err := p.Call(ctx, req)
	if err != nil {
		return Response[T]{}, fmt.Errorf("calling provider: %w", err)
	}

	parsed, parseErr := decodeContent[T](resp.Content, typeName)
	return newResponseWithHistory(resp, parsed, parseErr, historyFrom(req, resp), cfg.responseConfig()), nil
}

// attachSchema reflects a JSON schema from T onto the call config and
// returns the schema name used in parse errors.
func attachSchema[T any](cfg *callConfig) (string, error) {
	jsonSchema, err := schema.Generate[T]()
	if err != nil {
		return "", fmt.Errorf("generating schema: %w", err)
	}

	var zero T
	typeName := reflect.TypeOf(zero).Name()
	if typeName == "" {
		typeName = "response"
	}

	cfg.jsonSchema = &provider.JSONSchema{
		Name:   typeName,
		Strict: true,
		Schema: jsonSchema,
	}
	return typeName, nil
}

func decodeContent[T any](content, typeName string) (T, error) {
	var parsed T
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return parsed, &ParseError{Content: content, Target: typeName, Cause: err}
	}
	return parsed, nil
}

// historyFrom builds the full message history covering the request and the
// assistant's reply, so the response can be resumed.
func historyFrom(req *provider.Request, resp *provider.Response) []Message {
	messages := make([]Message, 0, len(req.Messages)+1)
	messages = append(messages, req.Messages...)

	if len(resp.ToolCalls) > 0 {
		toolCalls := make([]ToolCall, len(resp.ToolCalls))
		for i, tc := range resp.ToolCalls {
			toolCalls[i] = ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments}
		}
		return append(messages, AssistantMessageWithToolCalls(resp.Content, toolCalls))
	}
	return append(messages, AssistantMessage(resp.Content))
}
