package llm

import "github.com/plugkit/plugkit/provider"

// Message is an alias for provider.Message, re-exported so callers rarely
// need to import the provider package directly.
type Message = provider.Message

// Role is an alias for provider.Role.
type Role = provider.Role

// Role constants.
const (
	RoleSystem    = provider.RoleSystem
	RoleUser      = provider.RoleUser
	RoleAssistant = provider.RoleAssistant
	RoleTool      = provider.RoleTool
)

// SystemMessage creates a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// AssistantMessageWithToolCalls creates an assistant message carrying the
// model's tool call requests, for replaying history.
func AssistantMessageWithToolCalls(content string, toolCalls []ToolCall) Message {
	calls := make([]provider.ToolCall, len(toolCalls))
	for i, tc := range toolCalls {
		calls[i] = provider.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments}
	}
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolMessage creates a tool result message bound to the originating call.
func ToolMessage(toolCallID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolID: toolCallID}
}
