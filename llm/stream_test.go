package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugkit/plugkit/provider"
	"github.com/plugkit/plugkit/react"
)

// scriptedStream replays a fixed sequence of chunks.
type scriptedStream struct {
	chunks []provider.StreamChunk
	pos    int
	closed bool
}

func (s *scriptedStream) Next() bool {
	if s.pos >= len(s.chunks) {
		return false
	}
	s.pos++
	return true
}

func (s *scriptedStream) Current() *provider.StreamChunk {
	return &s.chunks[s.pos-1]
}

func (s *scriptedStream) Err() error { return nil }

func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}

func (s *scriptedStream) Accumulated() *provider.Response {
	return &provider.Response{Content: "accumulated"}
}

func TestStreamChunksCarryUsage(t *testing.T) {
	stream := &Stream{stream: &scriptedStream{chunks: []provider.StreamChunk{
		{Delta: "Hel"},
		{Delta: "lo"},
		{Usage: &provider.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5}},
	}}}

	var text string
	var lastUsage *Usage
	for chunk := range stream.Chunks() {
		text += chunk.Delta
		if chunk.Usage != nil {
			lastUsage = chunk.Usage
		}
	}

	require.NoError(t, stream.Err())
	assert.Equal(t, "Hello", text)
	require.NotNil(t, lastUsage)
	assert.Equal(t, 5, lastUsage.TotalTokens)
}

func TestStreamReactParsesActions(t *testing.T) {
	stream := &Stream{stream: &scriptedStream{chunks: []provider.StreamChunk{
		{Delta: "thought: I should search\n"},
		{Delta: `{"tool": "search", "tool_input": {"q": "go"}}`},
		{Usage: &provider.Usage{TotalTokens: 9}},
	}}}

	parser := react.NewParser()
	var texts []string
	var actions []*react.Action
	for chunk := range stream.React(parser) {
		switch c := chunk.(type) {
		case react.Text:
			texts = append(texts, string(c))
		case *react.Action:
			actions = append(actions, c)
		}
	}
	require.NoError(t, stream.Err())

	assert.Equal(t, "I should search\n", joinTexts(texts))
	require.Len(t, actions, 1)
	assert.Equal(t, "search", actions[0].Name)

	usage, ok := parser.Usage()
	require.True(t, ok)
	assert.Equal(t, 9, usage.TotalTokens)
}

func joinTexts(texts []string) string {
	var out string
	for _, s := range texts {
		out += s
	}
	return out
}
