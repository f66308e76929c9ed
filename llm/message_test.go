package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageConstructors(t *testing.T) {
	tests := []struct {
		name     string
		msg      Message
		wantRole Role
		wantText string
	}{
		{"system", SystemMessage("You are terse."), RoleSystem, "You are terse."},
		{"user", UserMessage("Hello"), RoleUser, "Hello"},
		{"assistant", AssistantMessage("Hi!"), RoleAssistant, "Hi!"},
		{"empty user", UserMessage(""), RoleUser, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantRole, tt.msg.Role)
			assert.Equal(t, tt.wantText, tt.msg.Content)
			assert.Empty(t, tt.msg.ToolCalls)
			assert.Empty(t, tt.msg.ToolID)
		})
	}
}

func TestAssistantMessageWithToolCalls(t *testing.T) {
	calls := []ToolCall{
		{ID: "call_1", Name: "get_weather", Arguments: `{"city": "Tokyo"}`},
		{ID: "call_2", Name: "get_time", Arguments: `{"zone": "JST"}`},
	}

	msg := AssistantMessageWithToolCalls("Let me check.", calls)

	assert.Equal(t, RoleAssistant, msg.Role)
	assert.Equal(t, "Let me check.", msg.Content)
	require.Len(t, msg.ToolCalls, 2)
	for i, tc := range calls {
		assert.Equal(t, tc.ID, msg.ToolCalls[i].ID)
		assert.Equal(t, tc.Name, msg.ToolCalls[i].Name)
		assert.Equal(t, tc.Arguments, msg.ToolCalls[i].Arguments)
	}
}

func TestToolMessage(t *testing.T) {
	msg := ToolMessage("call_123", `{"temperature": 22}`)

	assert.Equal(t, RoleTool, msg.Role)
	assert.Equal(t, "call_123", msg.ToolID)
	assert.Equal(t, `{"temperature": 22}`, msg.Content)
}

func TestRoleConstants(t *testing.T) {
	assert.Equal(t, Role("system"), RoleSystem)
	assert.Equal(t, Role("user"), RoleUser)
	assert.Equal(t, Role("assistant"), RoleAssistant)
	assert.Equal(t, Role("tool"), RoleTool)
}
