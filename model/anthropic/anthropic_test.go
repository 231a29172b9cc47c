package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentstate/core"
	"github.com/hupe1980/agentstate/model"
)

func TestGenerate_NonStreaming(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-sonnet-20241022",
			"content": [{"type": "text", "text": "bonjour"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 3, "output_tokens": 1}
		}`)
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
	})

	resp, err := model.Collect(context.Background(), m, model.Request{
		Instructions: "answer in French",
		Messages:     []core.Message{core.NewUserMessage("hello")},
	})
	require.NoError(t, err)
	assert.Equal(t, "bonjour", resp.Message.Text())
	assert.Equal(t, "end_turn", resp.FinishReason)
	assert.Equal(t, 4, resp.Usage.TotalTokens)

	system, ok := body["system"].([]any)
	require.True(t, ok)
	require.Len(t, system, 1)
	assert.Equal(t, "answer in French", system[0].(map[string]any)["text"])
}

func TestBuildMessages_ToolResultsFollowCalls(t *testing.T) {
	msgs := buildMessages([]core.Message{
		core.NewUserMessage("weather?"),
		{Role: core.RoleAssistant, Parts: []core.Part{
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "t1", Name: "weather", Arguments: `{"city":"Paris"}`}},
		}},
		{Role: core.RoleTool, Parts: []core.Part{
			core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "t1", Name: "weather", Response: "sunny"}},
		}},
		core.NewAssistantMessage("It is sunny."),
	})

	require.Len(t, msgs, 4)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
	assert.Equal(t, "user", string(msgs[2].Role))
	require.Len(t, msgs[2].Content, 1)
	require.NotNil(t, msgs[2].Content[0].OfToolResult)
	assert.Equal(t, "t1", msgs[2].Content[0].OfToolResult.ToolUseID)
	assert.Equal(t, "assistant", string(msgs[3].Role))
}

func TestSystemBlocks_SkipsEmpty(t *testing.T) {
	assert.Empty(t, systemBlocks(model.Request{Messages: []core.Message{core.NewUserMessage("x")}}))
}
