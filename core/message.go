package core

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Role tags the author of a Message.
type Role string

const (
	// RoleSystem carries the agent persona / system prompt.
	RoleSystem Role = "system"
	// RoleUser carries the task handed to the agent.
	RoleUser Role = "user"
	// RoleAssistant carries model output (text and/or tool call requests).
	RoleAssistant Role = "assistant"
	// RoleTool carries the result of a single tool call.
	RoleTool Role = "tool"
)

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"` // raw JSON object produced by the model
}

// Message is a single role-tagged transcript entry.
//
// Assistant messages may carry ToolCalls. Tool messages reference the
// originating call through ToolCallID and Name; Error is set when the call
// failed, in which case Content holds a model-readable failure description.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
	Error      bool       `json:"error,omitempty"`
}

// NewSystemMessage creates a system message.
func NewSystemMessage(text string) Message { return Message{Role: RoleSystem, Content: text} }

// NewUserMessage creates a user message.
func NewUserMessage(text string) Message { return Message{Role: RoleUser, Content: text} }

// NewAssistantMessage creates an assistant message with optional tool calls.
func NewAssistantMessage(text string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: text, ToolCalls: calls}
}

// NewToolMessage creates the tool-result message answering call.
func NewToolMessage(call ToolCall, content string, isError bool) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: call.ID,
		Name:       call.Name,
		Error:      isError,
	}
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	if len(m.ToolCalls) == 0 {
		return m
	}
	calls := make([]ToolCall, len(m.ToolCalls))
	for i, c := range m.ToolCalls {
		calls[i] = c
		if c.Arguments != nil {
			calls[i].Arguments = append(json.RawMessage(nil), c.Arguments...)
		}
	}
	m.ToolCalls = calls
	return m
}

// NewID generates a new unique identifier (UUID v4) for runs and tool calls.
func NewID() string { return uuid.NewString() }
