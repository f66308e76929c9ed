package mcp

import (
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
)

func TestProcessToolResult(t *testing.T) {
	tests := []struct {
		name     string
		content  []mcp.Content
		expected string
	}{
		{
			name:     "empty content",
			content:  []mcp.Content{},
			expected: "",
		},
		{
			name: "single text content",
			content: []mcp.Content{
				&mcp.TextContent{Text: "Hello, World!"},
			},
			expected: "Hello, World!",
		},
		{
			name: "multiple text contents joined with newline",
			content: []mcp.Content{
				&mcp.TextContent{Text: "Line 1"},
				&mcp.TextContent{Text: "Line 2"},
			},
			expected: "Line 1\nLine 2",
		},
		{
			name: "image content described as text",
			content: []mcp.Content{
				&mcp.ImageContent{MIMEType: "image/png", Data: []byte("12345")},
			},
			expected: "[Image: image/png, 5 bytes]",
		},
		{
			name: "embedded resource shows URI",
			content: []mcp.Content{
				&mcp.EmbeddedResource{
					Resource: &mcp.ResourceContents{URI: "file:///data.json"},
				},
			},
			expected: "[Resource: file:///data.json]",
		},
		{
			name: "embedded resource without contents",
			content: []mcp.Content{
				&mcp.EmbeddedResource{},
			},
			expected: "[Resource: embedded]",
		},
		{
			name: "mixed content types",
			content: []mcp.Content{
				&mcp.TextContent{Text: "Here is the data:"},
				&mcp.ImageContent{MIMEType: "image/jpeg", Data: []byte("abcd")},
				&mcp.EmbeddedResource{
					Resource: &mcp.ResourceContents{URI: "file:///data.json"},
				},
			},
			expected: "Here is the data:\n[Image: image/jpeg, 4 bytes]\n[Resource: file:///data.json]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, processToolResult(tt.content))
		})
	}
}
