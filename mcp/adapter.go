// Package mcp exposes tools served over the Model Context Protocol as
// llm.Tool values.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/plugkit/plugkit/llm"
)

const defaultToolTimeout = 30 * time.Second

// Client is a session with one MCP server.
type Client struct {
	session *mcp.ClientSession
	timeout time.Duration
}

// Option configures the MCP client.
type Option func(*Client)

// WithTimeout bounds each tool execution. Defaults to 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewStdioClient starts the given command as a subprocess and speaks MCP
// to it over stdio:
//
//	client, err := mcp.NewStdioClient(ctx, "./my-mcp-server", nil)
//	defer client.Close()
func NewStdioClient(ctx context.Context, command string, args []string, opts ...Option) (*Client, error) {
	c := &Client{timeout: defaultToolTimeout}
	for _, opt := range opts {
		opt(c)
	}

	impl := &mcp.Implementation{Name: "plugkit", Version: "0.1.0"}
	transport := &mcp.CommandTransport{Command: exec.Command(command, args...)}

	session, err := mcp.NewClient(impl, nil).Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to MCP server: %w", err)
	}
	c.session = session
	return c, nil
}

// Tools lists the server's tools as llm.Tool values, ready to pass to
// llm.WithTools.
func (c *Client) Tools(ctx context.Context) ([]llm.Tool, error) {
	result, err := c.session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("listing MCP tools: %w", err)
	}

	tools := make([]llm.Tool, 0, len(result.Tools))
	for i := range result.Tools {
		tools = append(tools, &remoteTool{client: c, tool: result.Tools[i]})
	}
	return tools, nil
}

// Close ends the session and terminates the server subprocess.
func (c *Client) Close() error {
	return c.session.Close()
}

// remoteTool adapts one MCP tool to the llm.Tool interface.
type remoteTool struct {
	client *Client
	tool   *mcp.Tool
}

func (t *remoteTool) Name() string { return t.tool.Name }

func (t *remoteTool) Description() string { return t.tool.Description }

// Parameters converts the server's input schema through a JSON round-trip.
// A schema that does not survive the conversion degrades to a bare object.
func (t *remoteTool) Parameters() *jsonschema.Schema {
	raw, err := json.Marshal(t.tool.InputSchema)
	if err != nil {
		return &jsonschema.Schema{Type: "object"}
	}
	var out jsonschema.Schema
	if err := json.Unmarshal(raw, &out); err != nil {
		return &jsonschema.Schema{Type: "object"}
	}
	return &out
}

func (t *remoteTool) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, t.client.timeout)
	defer cancel()

	var arguments map[string]any
	if err := json.Unmarshal(args, &arguments); err != nil {
		return nil, fmt.Errorf("parsing arguments: %w", err)
	}

	result, err := t.client.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      t.tool.Name,
		Arguments: arguments,
	})
	if err != nil {
		return nil, fmt.Errorf("calling MCP tool: %w", err)
	}

	combined := processToolResult(result.Content)
	if result.IsError {
		return nil, fmt.Errorf("MCP tool error: %s", combined)
	}
	return combined, nil
}

// processToolResult flattens a tool result into text. Non-text content is
// described rather than inlined.
func processToolResult(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		switch item := c.(type) {
		case *mcp.TextContent:
			parts = append(parts, item.Text)
		case *mcp.ImageContent:
			parts = append(parts, fmt.Sprintf("[Image: %s, %d bytes]", item.MIMEType, len(item.Data)))
		case *mcp.EmbeddedResource:
			if item.Resource != nil {
				parts = append(parts, fmt.Sprintf("[Resource: %s]", item.Resource.URI))
			} else {
				parts = append(parts, "[Resource: embedded]")
			}
		}
	}
	return strings.Join(parts, "\n")
}

// ToolsFromMCP connects, lists tools, and returns a cleanup func closing
// the session. Convenience for one-shot use:
//
//	tools, cleanup, err := mcp.ToolsFromMCP(ctx, "./my-mcp-server", nil)
//	defer cleanup()
func ToolsFromMCP(ctx context.Context, command string, args []string, opts ...Option) ([]llm.Tool, func() error, error) {
	client, err := NewStdioClient(ctx, command, args, opts...)
	if err != nil {
		return nil, nil, err
	}
	tools, err := client.Tools(ctx)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return tools, client.Close, nil
}
