package agent_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fwojciec/sitegen"
	"github.com/fwojciec/sitegen/agent"
	"github.com/fwojciec/sitegen/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completedStream returns a mock stream that immediately signals completion
// and returns the given AssistantMessage.
func completedStream(msg sitegen.AssistantMessage) *mock.Stream {
	return mock.ScriptedStream(msg, nil)
}

func textMessage(text string) sitegen.AssistantMessage {
	return sitegen.AssistantMessage{
		Content:    []sitegen.ContentBlock{sitegen.TextBlock{Text: text}},
		StopReason: sitegen.StopEndTurn,
	}
}

func toolCallMessage(calls ...sitegen.ToolCallBlock) sitegen.AssistantMessage {
	blocks := make([]sitegen.ContentBlock, len(calls))
	for i, c := range calls {
		blocks[i] = c
	}
	return sitegen.AssistantMessage{Content: blocks, StopReason: sitegen.StopToolUse}
}

// twoTurnProvider answers the first request with first and every later one
// with second.
func twoTurnProvider(first, second sitegen.AssistantMessage, requests *[]sitegen.ModelRequest) *mock.Provider {
	turn := 0
	return &mock.Provider{
		StreamFn: func(_ context.Context, req sitegen.ModelRequest) (sitegen.Stream, error) {
			if requests != nil {
				*requests = append(*requests, req)
			}
			turn++
			if turn == 1 {
				return completedStream(first), nil
			}
			return completedStream(second), nil
		},
	}
}

func TestLoop_Run(t *testing.T) {
	t.Parallel()

	t.Run("text response ends turn", func(t *testing.T) {
		t.Parallel()

		provider := &mock.Provider{
			StreamFn: func(_ context.Context, _ sitegen.ModelRequest) (sitegen.Stream, error) {
				return completedStream(textMessage("hello")), nil
			},
		}
		executor := &mock.ToolExecutor{
			ExecuteFn: func(_ context.Context, _ string, _ json.RawMessage) (*sitegen.ToolResult, error) {
				t.Fatal("executor should not be called")
				return nil, nil
			},
		}

		conv := &sitegen.Conversation{SystemPrompt: "you write html"}
		err := agent.New(provider, executor).Run(context.Background(), conv, nil)
		require.NoError(t, err)

		require.Len(t, conv.Messages, 1)
		am, ok := conv.Messages[0].(sitegen.AssistantMessage)
		require.True(t, ok)
		assert.Equal(t, sitegen.StopEndTurn, am.StopReason)
		assert.False(t, conv.UpdatedAt.IsZero())
	})

	t.Run("tool call executes and feeds result back", func(t *testing.T) {
		t.Parallel()

		call := sitegen.ToolCallBlock{ID: "tc_1", Name: "write_file", Arguments: json.RawMessage(`{"path":"src/App.vue"}`)}
		var requests []sitegen.ModelRequest
		provider := twoTurnProvider(toolCallMessage(call), textMessage("done"), &requests)

		var executedName string
		var executedArgs json.RawMessage
		executor := &mock.ToolExecutor{
			ExecuteFn: func(_ context.Context, name string, args json.RawMessage) (*sitegen.ToolResult, error) {
				executedName = name
				executedArgs = args
				return &sitegen.ToolResult{Content: []sitegen.ContentBlock{sitegen.TextBlock{Text: "wrote src/App.vue"}}}, nil
			},
		}

		conv := &sitegen.Conversation{Messages: []sitegen.Message{
			sitegen.UserMessage{Content: []sitegen.ContentBlock{sitegen.TextBlock{Text: "make a todo app"}}},
		}}
		err := agent.New(provider, executor).Run(context.Background(), conv, nil)
		require.NoError(t, err)

		// user + assistant(tool call) + tool result + assistant(text)
		require.Len(t, conv.Messages, 4)
		trm, ok := conv.Messages[2].(sitegen.ToolResultMessage)
		require.True(t, ok)
		assert.Equal(t, "tc_1", trm.ToolCallID)
		assert.Equal(t, "write_file", trm.ToolName)
		assert.False(t, trm.IsError)

		assert.Equal(t, "write_file", executedName)
		assert.JSONEq(t, `{"path":"src/App.vue"}`, string(executedArgs))

		require.Len(t, requests, 2)
		assert.Len(t, requests[0].Messages, 1)
		assert.Len(t, requests[1].Messages, 3)
	})

	t.Run("infrastructure error becomes error result", func(t *testing.T) {
		t.Parallel()

		call := sitegen.ToolCallBlock{ID: "tc_1", Name: "write_file", Arguments: json.RawMessage(`{}`)}
		provider := twoTurnProvider(toolCallMessage(call), textMessage("I see the error"), nil)
		executor := &mock.ToolExecutor{
			ExecuteFn: func(_ context.Context, _ string, _ json.RawMessage) (*sitegen.ToolResult, error) {
				return nil, errors.New("disk full")
			},
		}

		conv := &sitegen.Conversation{}
		err := agent.New(provider, executor).Run(context.Background(), conv, nil)
		require.NoError(t, err)

		trm, ok := conv.Messages[1].(sitegen.ToolResultMessage)
		require.True(t, ok)
		assert.True(t, trm.IsError)
		require.Len(t, trm.Content, 1)
		assert.Equal(t, sitegen.TextBlock{Text: "disk full"}, trm.Content[0])
	})

	t.Run("nil executor answers tool calls with not found", func(t *testing.T) {
		t.Parallel()

		call := sitegen.ToolCallBlock{ID: "tc_1", Name: "read_file", Arguments: json.RawMessage(`{}`)}
		provider := twoTurnProvider(toolCallMessage(call), textMessage("ok"), nil)

		conv := &sitegen.Conversation{}
		err := agent.New(provider, nil).Run(context.Background(), conv, nil)
		require.NoError(t, err)

		trm, ok := conv.Messages[1].(sitegen.ToolResultMessage)
		require.True(t, ok)
		assert.True(t, trm.IsError)
	})

	t.Run("stream error preserves partial message", func(t *testing.T) {
		t.Parallel()

		streamErr := errors.New("connection reset")
		partial := sitegen.AssistantMessage{
			Content:    []sitegen.ContentBlock{sitegen.TextBlock{Text: "partial"}},
			StopReason: sitegen.StopError,
		}
		provider := &mock.Provider{
			StreamFn: func(_ context.Context, _ sitegen.ModelRequest) (sitegen.Stream, error) {
				return mock.ScriptedStream(partial, streamErr), nil
			},
		}

		conv := &sitegen.Conversation{}
		err := agent.New(provider, nil).Run(context.Background(), conv, nil)
		assert.ErrorIs(t, err, streamErr)
		require.Len(t, conv.Messages, 1)
	})

	t.Run("provider stream error", func(t *testing.T) {
		t.Parallel()

		providerErr := errors.New("rate limited")
		provider := &mock.Provider{
			StreamFn: func(_ context.Context, _ sitegen.ModelRequest) (sitegen.Stream, error) {
				return nil, providerErr
			},
		}

		conv := &sitegen.Conversation{}
		err := agent.New(provider, nil).Run(context.Background(), conv, nil)
		assert.ErrorIs(t, err, providerErr)
		assert.Empty(t, conv.Messages)
	})

	t.Run("cancelled context stops before calling provider", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		provider := &mock.Provider{
			StreamFn: func(_ context.Context, _ sitegen.ModelRequest) (sitegen.Stream, error) {
				t.Fatal("provider should not be called")
				return nil, nil
			},
		}

		err := agent.New(provider, nil).Run(ctx, &sitegen.Conversation{}, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("request carries system prompt, tools and options", func(t *testing.T) {
		t.Parallel()

		var captured sitegen.ModelRequest
		provider := &mock.Provider{
			StreamFn: func(_ context.Context, req sitegen.ModelRequest) (sitegen.Stream, error) {
				captured = req
				return completedStream(textMessage("ok")), nil
			},
		}

		tools := []sitegen.Tool{{Name: "write_file", Description: "write a file"}}
		conv := &sitegen.Conversation{SystemPrompt: "be terse"}
		err := agent.New(provider, nil).Run(context.Background(), conv, tools,
			agent.WithModel("test-model"), agent.WithMaxTokens(512))
		require.NoError(t, err)

		assert.Equal(t, "be terse", captured.SystemPrompt)
		assert.Equal(t, "test-model", captured.Model)
		assert.Equal(t, 512, captured.MaxTokens)
		require.Len(t, captured.Tools, 1)
	})

	t.Run("event handler sees deltas and tool results in order", func(t *testing.T) {
		t.Parallel()

		call := sitegen.ToolCallBlock{ID: "tc_1", Name: "list_files", Arguments: json.RawMessage(`{}`)}
		turn := 0
		provider := &mock.Provider{
			StreamFn: func(_ context.Context, _ sitegen.ModelRequest) (sitegen.Stream, error) {
				turn++
				if turn == 1 {
					return mock.ScriptedStream(toolCallMessage(call), nil,
						sitegen.EventTextDelta{Delta: "looking"},
						sitegen.EventToolCallEnd{Call: call},
					), nil
				}
				return mock.ScriptedStream(textMessage("done"), nil, sitegen.EventTextDelta{Delta: "done"}), nil
			},
		}
		executor := &mock.ToolExecutor{
			ExecuteFn: func(_ context.Context, _ string, _ json.RawMessage) (*sitegen.ToolResult, error) {
				return &sitegen.ToolResult{Content: []sitegen.ContentBlock{sitegen.TextBlock{Text: "index.html"}}}, nil
			},
		}

		var received []sitegen.Event
		err := agent.New(provider, executor).Run(context.Background(), &sitegen.Conversation{}, nil,
			agent.WithEventHandler(func(e sitegen.Event) { received = append(received, e) }))
		require.NoError(t, err)

		assert.Equal(t, []sitegen.Event{
			sitegen.EventTextDelta{Delta: "looking"},
			sitegen.EventToolCallEnd{Call: call},
			sitegen.EventToolResult{ID: "tc_1", ToolName: "list_files", Content: "index.html"},
			sitegen.EventTextDelta{Delta: "done"},
		}, received)
	})

	t.Run("turn limit", func(t *testing.T) {
		t.Parallel()

		call := sitegen.ToolCallBlock{ID: "tc", Name: "list_files", Arguments: json.RawMessage(`{}`)}
		calls := 0
		provider := &mock.Provider{
			StreamFn: func(_ context.Context, _ sitegen.ModelRequest) (sitegen.Stream, error) {
				calls++
				return completedStream(toolCallMessage(call)), nil
			},
		}
		executor := &mock.ToolExecutor{
			ExecuteFn: func(_ context.Context, _ string, _ json.RawMessage) (*sitegen.ToolResult, error) {
				return &sitegen.ToolResult{}, nil
			},
		}

		err := agent.New(provider, executor).Run(context.Background(), &sitegen.Conversation{}, nil, agent.WithMaxTurns(3))
		assert.ErrorIs(t, err, sitegen.ErrUpstream)
		assert.Equal(t, 3, calls)
	})
}

func TestWindow(t *testing.T) {
	t.Parallel()

	user := func(s string) sitegen.Message {
		return sitegen.UserMessage{Content: []sitegen.ContentBlock{sitegen.TextBlock{Text: s}}}
	}

	t.Run("short history is returned as is", func(t *testing.T) {
		t.Parallel()
		msgs := []sitegen.Message{user("a"), user("b")}
		assert.Equal(t, msgs, agent.Window(msgs, 5))
	})

	t.Run("keeps the most recent messages", func(t *testing.T) {
		t.Parallel()
		msgs := []sitegen.Message{user("a"), user("b"), user("c")}
		assert.Equal(t, msgs[1:], agent.Window(msgs, 2))
	})

	t.Run("does not start with an orphaned tool result", func(t *testing.T) {
		t.Parallel()
		msgs := []sitegen.Message{
			user("a"),
			toolCallMessage(sitegen.ToolCallBlock{ID: "x"}),
			sitegen.ToolResultMessage{ToolCallID: "x"},
			user("b"),
		}
		got := agent.Window(msgs, 2)
		assert.Equal(t, []sitegen.Message{user("b")}, got)
	})
}
