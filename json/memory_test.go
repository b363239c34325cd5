package json_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/sitegen"
	sgjson "github.com/fwojciec/sitegen/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleConversation() sitegen.Conversation {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return sitegen.Conversation{
		ID:           "vue_project_42",
		SystemPrompt: "you build vue apps",
		CreatedAt:    ts,
		UpdatedAt:    ts.Add(time.Minute),
		Messages: []sitegen.Message{
			sitegen.UserMessage{Content: []sitegen.ContentBlock{sitegen.TextBlock{Text: "todo app"}}, Timestamp: ts},
			sitegen.AssistantMessage{
				Content: []sitegen.ContentBlock{
					sitegen.TextBlock{Text: "copying template"},
					sitegen.ToolCallBlock{ID: "tc_1", Name: "copy_template", Arguments: json.RawMessage(`{"template":"vue_project"}`)},
				},
				StopReason:    sitegen.StopToolUse,
				RawStopReason: "tool_use",
				Usage:         sitegen.Usage{InputTokens: 10, OutputTokens: 5},
				Timestamp:     ts,
			},
			sitegen.ToolResultMessage{
				ToolCallID: "tc_1",
				ToolName:   "copy_template",
				Content:    []sitegen.ContentBlock{sitegen.TextBlock{Text: "copied 7 template files"}},
				Timestamp:  ts,
			},
		},
	}
}

func TestConversationEnvelope(t *testing.T) {
	t.Parallel()

	t.Run("preserves every message kind", func(t *testing.T) {
		t.Parallel()
		conv := sampleConversation()
		data, err := sgjson.MarshalConversation(conv)
		require.NoError(t, err)
		got, err := sgjson.UnmarshalConversation(data)
		require.NoError(t, err)
		assert.Equal(t, conv, got)
	})

	t.Run("rejects unknown version", func(t *testing.T) {
		t.Parallel()
		_, err := sgjson.UnmarshalConversation([]byte(`{"version":2}`))
		assert.Error(t, err)
	})
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	t.Run("missing key loads a fresh conversation", func(t *testing.T) {
		t.Parallel()
		store := sgjson.NewMemoryStore(t.TempDir())
		conv, err := store.Load(context.Background(), "html_1")
		require.NoError(t, err)
		assert.Equal(t, "html_1", conv.ID)
		assert.Empty(t, conv.Messages)
	})

	t.Run("save then load", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		store := sgjson.NewMemoryStore(dir)
		ctx := context.Background()
		conv := sampleConversation()

		require.NoError(t, store.Save(ctx, "vue_project_42", conv))
		_, err := os.Stat(filepath.Join(dir, "vue_project_42.json"))
		require.NoError(t, err)

		got, err := store.Load(ctx, "vue_project_42")
		require.NoError(t, err)
		assert.Equal(t, conv, got)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temp files are cleaned up")
	})

	t.Run("rejects keys with separators", func(t *testing.T) {
		t.Parallel()
		store := sgjson.NewMemoryStore(t.TempDir())
		err := store.Save(context.Background(), "../x", sitegen.Conversation{})
		assert.ErrorIs(t, err, sitegen.ErrValidation)
	})
}
