package gemini_test

import (
	"encoding/json"
	"testing"

	"github.com/fwojciec/sitegen"
	"github.com/fwojciec/sitegen/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertMessages(t *testing.T) {
	t.Parallel()

	t.Run("user and assistant text", func(t *testing.T) {
		t.Parallel()
		got := gemini.ConvertMessages([]sitegen.Message{
			sitegen.UserMessage{Content: []sitegen.ContentBlock{sitegen.TextBlock{Text: "a landing page"}}},
			sitegen.AssistantMessage{Content: []sitegen.ContentBlock{sitegen.TextBlock{Text: "<html>"}}},
		})
		require.Len(t, got, 2)
		assert.Equal(t, "user", got[0].Role)
		assert.Equal(t, "a landing page", got[0].Parts[0].Text)
		assert.Equal(t, "model", got[1].Role)
		assert.Equal(t, "<html>", got[1].Parts[0].Text)
	})

	t.Run("tool call and result", func(t *testing.T) {
		t.Parallel()
		got := gemini.ConvertMessages([]sitegen.Message{
			sitegen.AssistantMessage{Content: []sitegen.ContentBlock{
				sitegen.ToolCallBlock{ID: "call_1", Name: "read_file", Arguments: json.RawMessage(`{"path":"src/App.vue"}`)},
			}},
			sitegen.ToolResultMessage{
				ToolCallID: "call_1",
				ToolName:   "read_file",
				Content:    []sitegen.ContentBlock{sitegen.TextBlock{Text: "<template/>"}},
			},
		})
		require.Len(t, got, 2)
		fc := got[0].Parts[0].FunctionCall
		require.NotNil(t, fc)
		assert.Equal(t, "call_1", fc.ID)
		assert.Equal(t, "src/App.vue", fc.Args["path"])

		resp := got[1].Parts[0].FunctionResponse
		require.NotNil(t, resp)
		assert.Equal(t, "user", got[1].Role)
		assert.Equal(t, "call_1", resp.ID)
		assert.Equal(t, "<template/>", resp.Response["output"])
	})

	t.Run("error result uses error key", func(t *testing.T) {
		t.Parallel()
		got := gemini.ConvertMessages([]sitegen.Message{
			sitegen.ToolResultMessage{
				ToolCallID: "call_2",
				ToolName:   "delete_file",
				Content:    []sitegen.ContentBlock{sitegen.TextBlock{Text: "package.json is protected"}},
				IsError:    true,
			},
		})
		resp := got[0].Parts[0].FunctionResponse
		assert.Equal(t, "package.json is protected", resp.Response["error"])
		assert.Nil(t, resp.Response["output"])
	})
}

func TestConvertTools(t *testing.T) {
	t.Parallel()

	got := gemini.ConvertTools([]sitegen.Tool{
		{Name: "write_file", Description: "Write a file", Parameters: json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"}}}`)},
		{Name: "list_files", Description: "List files", Parameters: json.RawMessage(`{"type":"object"}`)},
	})
	require.Len(t, got, 1)
	require.Len(t, got[0].FunctionDeclarations, 2)
	assert.Equal(t, "write_file", got[0].FunctionDeclarations[0].Name)
	assert.Equal(t, "List files", got[0].FunctionDeclarations[1].Description)

	assert.Nil(t, gemini.ConvertTools(nil))
}
