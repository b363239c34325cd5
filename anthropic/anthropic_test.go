package anthropic_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fwojciec/sitegen"
	"github.com/fwojciec/sitegen/anthropic"
	"github.com/stretchr/testify/require"
)

type sseEvent struct {
	event string
	data  string
}

func sseHandler(events ...sseEvent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for _, evt := range events {
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.event, evt.data)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

const messageStartJSON = `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"m","usage":{"input_tokens":10,"output_tokens":1}}}`

// minimalEvents is the shortest well-formed stream.
var minimalEvents = []sseEvent{
	{"message_start", messageStartJSON},
	{"message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":1}}`},
	{"message_stop", `{"type":"message_stop"}`},
}

func userRequest(text string) sitegen.ModelRequest {
	return sitegen.ModelRequest{Messages: []sitegen.Message{
		sitegen.UserMessage{Content: []sitegen.ContentBlock{sitegen.TextBlock{Text: text}}},
	}}
}

func streamFrom(t *testing.T, events ...sseEvent) sitegen.Stream {
	t.Helper()
	srv := httptest.NewServer(sseHandler(events...))
	t.Cleanup(srv.Close)
	client := anthropic.New("test-key", anthropic.WithBaseURL(srv.URL))
	s, err := client.Stream(context.Background(), userRequest("Hi"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func collect(t *testing.T, s sitegen.Stream) []sitegen.Event {
	t.Helper()
	var events []sitegen.Event
	for {
		evt, err := s.Next()
		if err == io.EOF {
			return events
		}
		require.NoError(t, err)
		events = append(events, evt)
	}
}
