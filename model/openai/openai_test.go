package openai

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

const toolCallCompletion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4-turbo",
  "choices": [{
    "index": 0,
    "message": {
      "role": "assistant",
      "content": null,
      "tool_calls": [{
        "id": "call_1",
        "type": "function",
        "function": {"name": "calculate_tool", "arguments": "{\"expression\":\"2 + 2\"}"}
      }]
    },
    "finish_reason": "tool_calls"
  }],
  "usage": {"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19}
}`

func newTestServer(t *testing.T, status int, body string, captured *map[string]any, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		if captured != nil {
			_ = json.Unmarshal(raw, captured)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate_ToolCalls(t *testing.T) {
	var captured map[string]any
	var hits int32
	srv := newTestServer(t, http.StatusOK, toolCallCompletion, &captured, &hits)

	m := NewModel(func(o *Options) {
		o.APIKey = "test-key"
		o.BaseURL = srv.URL + "/"
	})

	req := model.Request{
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
				"required":   []string{"expression"},
			},
		}},
		Temperature: 0.1,
		MaxTokens:   4096,
	}

	resp, err := m.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "calculate_tool", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"expression":"2 + 2"}`, string(resp.ToolCalls[0].Arguments))
	assert.Equal(t, "tool_calls", resp.FinishReason)
	assert.Equal(t, int64(19), resp.Usage.TotalTokens)

	assert.Equal(t, "gpt-4-turbo", captured["model"])
	assert.InDelta(t, 0.1, captured["temperature"], 1e-9)
	assert.EqualValues(t, 4096, captured["max_completion_tokens"])
	msgs, ok := captured["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
	tools, ok := captured["tools"].([]any)
	require.True(t, ok)
	assert.Len(t, tools, 1)
}

func TestGenerate_TransportErrorIsNotRetried(t *testing.T) {
	var hits int32
	srv := newTestServer(t, http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit"}}`, nil, &hits)

	m := NewModel(func(o *Options) {
		o.APIKey = "test-key"
		o.BaseURL = srv.URL + "/"
	})

	_, err := m.Generate(context.Background(), model.Request{Messages: []core.Message{core.NewUserMessage("hi")}})

	var te *model.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "openai", te.Provider)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestBuildMessages_ToolRoundTrip(t *testing.T) {
	call := core.ToolCall{ID: "call_1", Name: "calculate_tool", Arguments: json.RawMessage(`{"expression":"2 + 2"}`)}
	msgs := buildMessages([]core.Message{
		core.NewSystemMessage("sys"),
		core.NewUserMessage("2 + 2"),
		core.NewAssistantMessage("", call),
		core.NewToolMessage(call, "4", false),
		core.NewAssistantMessage("The answer is 4"),
	})
	require.Len(t, msgs, 5)
	require.NotNil(t, msgs[2].OfAssistant)
	require.Len(t, msgs[2].OfAssistant.ToolCalls, 1)
	assert.Equal(t, "call_1", msgs[2].OfAssistant.ToolCalls[0].ID)
	require.NotNil(t, msgs[3].OfTool)
	assert.Equal(t, "call_1", msgs[3].OfTool.ToolCallID)
}

func TestGenerate_SendsParticipantNameAndToolCallText(t *testing.T) {
	var captured map[string]any
	var hits int32
	srv := newTestServer(t, http.StatusOK, toolCallCompletion, &captured, &hits)

	m := NewModel(func(o *Options) {
		o.APIKey = "test-key"
		o.BaseURL = srv.URL + "/"
	})

	call := core.ToolCall{ID: "call_1", Name: "calculate_tool", Arguments: json.RawMessage(`{"expression":"2 + 2"}`)}
	user := core.NewUserMessage("task")
	user.Name = "Worker"

	_, err := m.Generate(context.Background(), model.Request{Messages: []core.Message{
		user,
		core.NewAssistantMessage("Let me compute that.", call),
		core.NewToolMessage(call, "4", false),
	}})
	require.NoError(t, err)

	msgs, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 3)

	first, ok := msgs[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, "Worker", first["name"])
	assert.Equal(t, "task", first["content"])

	second, ok := msgs[1].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "assistant", second["role"])
	assert.Equal(t, "Let me compute that.", second["content"])
	calls, ok := second["tool_calls"].([]any)
	require.True(t, ok)
	assert.Len(t, calls, 1)
}

func TestBuildMessages_UserWithoutNameOmitsIt(t *testing.T) {
	msgs := buildMessages([]core.Message{core.NewUserMessage("hi")})
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].OfUser)
	assert.Empty(t, msgs[0].OfUser.Name.Value)
}

func TestInfo(t *testing.T) {
	m := NewModel(func(o *Options) { o.Model = "gpt-4o" })
	assert.Equal(t, model.Info{Name: "gpt-4o", Provider: "openai", SupportsTools: true}, m.Info())
}
