package anthropic_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fwojciec/sitegen"
	"github.com/fwojciec/sitegen/anthropic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_Text(t *testing.T) {
	t.Parallel()

	s := streamFrom(t,
		sseEvent{"message_start", messageStartJSON},
		sseEvent{"content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`},
		sseEvent{"ping", `{"type":"ping"}`},
		sseEvent{"content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"<html>"}}`},
		sseEvent{"content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"</html>"}}`},
		sseEvent{"content_block_stop", `{"type":"content_block_stop","index":0}`},
		sseEvent{"message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":5}}`},
		sseEvent{"message_stop", `{"type":"message_stop"}`},
	)

	events := collect(t, s)
	assert.Equal(t, []sitegen.Event{
		sitegen.EventTextDelta{Index: 0, Delta: "<html>"},
		sitegen.EventTextDelta{Index: 0, Delta: "</html>"},
	}, events)
	assert.Equal(t, sitegen.StreamStateComplete, s.State())

	msg, err := s.Message()
	require.NoError(t, err)
	assert.Equal(t, sitegen.StopEndTurn, msg.StopReason)
	assert.Equal(t, 10, msg.Usage.InputTokens)
	assert.Equal(t, 5, msg.Usage.OutputTokens)
	assert.Equal(t, "<html></html>", msg.Text())
}

func TestStream_ToolUse(t *testing.T) {
	t.Parallel()

	s := streamFrom(t,
		sseEvent{"message_start", messageStartJSON},
		sseEvent{"content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"thinking","thinking":""}}`},
		sseEvent{"content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"plan"}}`},
		sseEvent{"content_block_stop", `{"type":"content_block_stop","index":0}`},
		sseEvent{"content_block_start", `{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_1","name":"write_file","input":{}}}`},
		sseEvent{"content_block_delta", `{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"path\":"}}`},
		sseEvent{"content_block_delta", `{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"\"src/App.vue\"}"}}`},
		sseEvent{"content_block_stop", `{"type":"content_block_stop","index":1}`},
		sseEvent{"content_block_start", `{"type":"content_block_start","index":2,"content_block":{"type":"tool_use","id":"toolu_2","name":"list_files","input":{}}}`},
		sseEvent{"content_block_stop", `{"type":"content_block_stop","index":2}`},
		sseEvent{"message_delta", `{"type":"message_delta","delta":{"stop_reason":"tool_use"},"usage":{"output_tokens":42}}`},
		sseEvent{"message_stop", `{"type":"message_stop"}`},
	)

	call := sitegen.ToolCallBlock{ID: "toolu_1", Name: "write_file", Arguments: json.RawMessage(`{"path":"src/App.vue"}`)}
	empty := sitegen.ToolCallBlock{ID: "toolu_2", Name: "list_files", Arguments: json.RawMessage(`{}`)}
	assert.Equal(t, []sitegen.Event{
		sitegen.EventToolCallBegin{ID: "toolu_1", Name: "write_file"},
		sitegen.EventToolCallDelta{ID: "toolu_1", Delta: `{"path":`},
		sitegen.EventToolCallDelta{ID: "toolu_1", Delta: `"src/App.vue"}`},
		sitegen.EventToolCallEnd{Call: call},
		sitegen.EventToolCallBegin{ID: "toolu_2", Name: "list_files"},
		sitegen.EventToolCallEnd{Call: empty},
	}, collect(t, s))

	msg, err := s.Message()
	require.NoError(t, err)
	assert.Equal(t, sitegen.StopToolUse, msg.StopReason)
	assert.Equal(t, []sitegen.ToolCallBlock{call, empty}, msg.ToolCalls())
	assert.Len(t, msg.Content, 2)
}

func TestStream_StopReasons(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want sitegen.StopReason
	}{
		{"end_turn", sitegen.StopEndTurn},
		{"max_tokens", sitegen.StopLength},
		{"tool_use", sitegen.StopToolUse},
		{"brand_new", sitegen.StopUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			s := streamFrom(t,
				sseEvent{"message_start", messageStartJSON},
				sseEvent{"message_delta", fmt.Sprintf(`{"type":"message_delta","delta":{"stop_reason":%q},"usage":{"output_tokens":1}}`, tt.raw)},
				sseEvent{"message_stop", `{"type":"message_stop"}`},
			)
			collect(t, s)
			msg, err := s.Message()
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg.StopReason)
			assert.Equal(t, tt.raw, msg.RawStopReason)
		})
	}
}

func TestStream_CacheUsage(t *testing.T) {
	t.Parallel()

	s := streamFrom(t,
		sseEvent{"message_start", `{"type":"message_start","message":{"id":"m","usage":{"input_tokens":5,"output_tokens":1,"cache_creation_input_tokens":100,"cache_read_input_tokens":null}}}`},
		sseEvent{"message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":9,"cache_read_input_tokens":50}}`},
		sseEvent{"message_stop", `{"type":"message_stop"}`},
	)
	collect(t, s)
	msg, err := s.Message()
	require.NoError(t, err)
	assert.Equal(t, sitegen.Usage{InputTokens: 5, OutputTokens: 9, CacheReadTokens: 50, CacheWriteTokens: 100}, msg.Usage)
}

func TestStream_States(t *testing.T) {
	t.Parallel()

	t.Run("message before next", func(t *testing.T) {
		t.Parallel()
		s := streamFrom(t, minimalEvents...)
		assert.Equal(t, sitegen.StreamStateNew, s.State())
		_, err := s.Message()
		assert.Error(t, err)
	})

	t.Run("close aborts an open stream", func(t *testing.T) {
		t.Parallel()
		s := streamFrom(t, minimalEvents...)
		require.NoError(t, s.Close())
		assert.Equal(t, sitegen.StreamStateClosed, s.State())
		_, err := s.Next()
		assert.ErrorIs(t, err, sitegen.ErrStreamClosed)
	})

	t.Run("close keeps terminal state", func(t *testing.T) {
		t.Parallel()
		s := streamFrom(t, minimalEvents...)
		collect(t, s)
		require.NoError(t, s.Close())
		assert.Equal(t, sitegen.StreamStateComplete, s.State())
		msg, err := s.Message()
		require.NoError(t, err)
		assert.Equal(t, sitegen.StopEndTurn, msg.StopReason)
	})
}

func TestStream_Errors(t *testing.T) {
	t.Parallel()

	t.Run("error event", func(t *testing.T) {
		t.Parallel()
		s := streamFrom(t,
			sseEvent{"message_start", messageStartJSON},
			sseEvent{"error", `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`},
		)
		_, err := s.Next()
		assert.ErrorIs(t, err, sitegen.ErrUpstream)
		assert.ErrorContains(t, err, "overloaded_error")
		assert.Equal(t, sitegen.StreamStateError, s.State())
	})

	t.Run("body ends without message_stop", func(t *testing.T) {
		t.Parallel()
		s := streamFrom(t,
			sseEvent{"message_start", messageStartJSON},
			sseEvent{"content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`},
			sseEvent{"content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"partial"}}`},
		)
		evt, err := s.Next()
		require.NoError(t, err)
		assert.Equal(t, sitegen.EventTextDelta{Index: 0, Delta: "partial"}, evt)

		_, err = s.Next()
		assert.ErrorIs(t, err, sitegen.ErrUpstream)
		msg, err := s.Message()
		require.NoError(t, err)
		assert.Equal(t, sitegen.StopError, msg.StopReason)
		assert.Equal(t, "partial", msg.Text())
	})

	t.Run("delta for unknown block", func(t *testing.T) {
		t.Parallel()
		s := streamFrom(t,
			sseEvent{"message_start", messageStartJSON},
			sseEvent{"content_block_delta", `{"type":"content_block_delta","index":3,"delta":{"type":"text_delta","text":"x"}}`},
		)
		_, err := s.Next()
		assert.ErrorIs(t, err, sitegen.ErrUpstream)
	})
}

func TestStream_ContextCancellation(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "event: message_start\ndata: %s\n\n", messageStartJSON)
		fmt.Fprint(w, "event: content_block_start\ndata: {\"type\":\"content_block_start\",\"index\":0,\"content_block\":{\"type\":\"text\"}}\n\n")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"Hi\"}}\n\n")
		w.(http.Flusher).Flush()
		close(started)
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	s, err := anthropic.New("k", anthropic.WithBaseURL(srv.URL)).Stream(ctx, userRequest("Hi"))
	require.NoError(t, err)
	defer s.Close()

	evt, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, sitegen.EventTextDelta{Index: 0, Delta: "Hi"}, evt)

	<-started
	cancel(sitegen.ErrStreamClosed)

	_, err = s.Next()
	assert.ErrorIs(t, err, sitegen.ErrStreamClosed)
	msg, err := s.Message()
	require.NoError(t, err)
	assert.Equal(t, sitegen.StopAborted, msg.StopReason)
	assert.Equal(t, "Hi", msg.Text())
}
