package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentchain/core"
	"github.com/hupe1980/agentchain/model"
)

const toolUseMessage = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-3-5-sonnet-latest",
  "content": [
    {"type": "text", "text": "Let me calculate."},
    {"type": "tool_use", "id": "toolu_1", "name": "calculate_tool", "input": {"expression": "2 + 2"}}
  ],
  "stop_reason": "tool_use",
  "stop_sequence": null,
  "usage": {"input_tokens": 20, "output_tokens": 9}
}`

func TestGenerate_ToolUse(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, toolUseMessage)
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "test-key"
		o.BaseURL = srv.URL + "/"
	})

	resp, err := m.Generate(context.Background(), model.Request{
		Messages: []core.Message{
			core.NewSystemMessage("You solve math problems."),
			core.NewUserMessage("2 + 2"),
		},
		Tools: []model.ToolDefinition{{
			Name:        "calculate_tool",
			Description: "Evaluates a mathematical expression",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"expression": map[string]any{"type": "string"}},
				"required":   []any{"expression"},
			},
		}},
		Temperature: 0.1,
		MaxTokens:   1024,
	})
	require.NoError(t, err)

	assert.Equal(t, "Let me calculate.", resp.Text)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "toolu_1", resp.ToolCalls[0].ID)
	assert.JSONEq(t, `{"expression":"2 + 2"}`, string(resp.ToolCalls[0].Arguments))
	assert.Equal(t, "tool_use", resp.FinishReason)
	assert.Equal(t, int64(29), resp.Usage.TotalTokens)

	assert.EqualValues(t, 1024, captured["max_tokens"])
	assert.NotNil(t, captured["system"])
	tools, ok := captured["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
	assert.Equal(t, "calculate_tool", tools[0].(map[string]any)["name"])
}

func TestGenerate_TransportError(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "bad"
		o.BaseURL = srv.URL + "/"
	})

	_, err := m.Generate(context.Background(), model.Request{Messages: []core.Message{core.NewUserMessage("hi")}})
	var te *model.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "anthropic", te.Provider)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestBuildMessages_GroupsToolResults(t *testing.T) {
	c1 := core.ToolCall{ID: "t1", Name: "calc", Arguments: json.RawMessage(`{"expression":"1+1"}`)}
	c2 := core.ToolCall{ID: "t2", Name: "calc", Arguments: json.RawMessage(`{"expression":"2+2"}`)}

	msgs := buildMessages([]core.Message{
		core.NewSystemMessage("sys"),
		core.NewUserMessage("task"),
		core.NewAssistantMessage("", c1, c2),
		core.NewToolMessage(c1, "2", false),
		core.NewToolMessage(c2, "4", false),
		core.NewAssistantMessage("done"),
	})

	// user, assistant(tool_use x2), user(tool_result x2), assistant
	require.Len(t, msgs, 4)
	assert.Len(t, msgs[1].Content, 2)
	assert.Len(t, msgs[2].Content, 2)
}

func TestInfo(t *testing.T) {
	m := NewModel(func(o *Options) { o.Model = "claude-test" })
	assert.Equal(t, "claude-test", m.Info().Name)
	assert.Equal(t, "anthropic", m.Info().Provider)
}
