package http_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/fwojciec/sitegen"
	"github.com/fwojciec/sitegen/fs"
	"github.com/fwojciec/sitegen/generate"
	"github.com/fwojciec/sitegen/goldmark"
	sitegenhttp "github.com/fwojciec/sitegen/http"
	"github.com/fwojciec/sitegen/mock"
	"github.com/fwojciec/sitegen/session"
)

func textMessage(text string) sitegen.AssistantMessage {
	return sitegen.AssistantMessage{
		Content:    []sitegen.ContentBlock{sitegen.TextBlock{Text: text}},
		StopReason: sitegen.StopEndTurn,
	}
}

func textProvider(chunks ...string) *mock.Provider {
	return &mock.Provider{StreamFn: func(context.Context, sitegen.ModelRequest) (sitegen.Stream, error) {
		var full string
		events := make([]sitegen.Event, len(chunks))
		for i, c := range chunks {
			full += c
			events[i] = sitegen.EventTextDelta{Delta: c}
		}
		return mock.ScriptedStream(textMessage(full), nil, events...), nil
	}}
}

// blockingProvider emits one chunk and then waits for cancellation.
func blockingProvider(first string) *mock.Provider {
	return &mock.Provider{StreamFn: func(ctx context.Context, _ sitegen.ModelRequest) (sitegen.Stream, error) {
		sent := false
		return &mock.Stream{
			NextFn: func() (sitegen.Event, error) {
				if !sent {
					sent = true
					return sitegen.EventTextDelta{Delta: first}, nil
				}
				<-ctx.Done()
				return nil, context.Cause(ctx)
			},
			MessageFn: func() (sitegen.AssistantMessage, error) { return textMessage(first), nil },
		}, nil
	}}
}

func failingProvider() *mock.Provider {
	return &mock.Provider{StreamFn: func(context.Context, sitegen.ModelRequest) (sitegen.Stream, error) {
		err := errors.New("overloaded")
		return mock.ScriptedStream(sitegen.AssistantMessage{StopReason: sitegen.StopError}, err, sitegen.EventTextDelta{Delta: "<ht"}), nil
	}}
}

// newServer starts an httptest server backed by a real dispatcher writing
// to a temp dir.
func newServer(t *testing.T, provider sitegen.Provider) (*httptest.Server, *generate.Dispatcher, string) {
	t.Helper()
	root := t.TempDir()
	d := generate.NewDispatcher(provider, session.NewRegistry(),
		generate.WithParser(goldmark.NewParser()),
		generate.WithWriter(fs.NewWriter(root)),
	)
	srv := httptest.NewServer(sitegenhttp.NewServer(d))
	t.Cleanup(srv.Close)
	return srv, d, root
}
