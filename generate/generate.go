// Package generate turns a GenerationRequest into a live stream of wire
// events plus persisted artifacts.
//
// A Dispatcher validates the request, registers a session and starts one
// worker goroutine per session. The worker drives the agent loop, maps
// low-level generation events to wire events, persists the result once the
// session completes and records the transcript exactly once, whichever way
// the session ends.
package generate

import (
	"embed"
	"strings"

	"github.com/fwojciec/sitegen"
)

//go:embed prompt/*.txt
var prompts embed.FS

// SystemPrompt returns the built-in system prompt for format.
func SystemPrompt(format sitegen.Format) string {
	data, err := prompts.ReadFile("prompt/" + string(format) + ".txt")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Result is the outcome of one session, available once its event channel
// is closed.
type Result struct {
	State    sitegen.SessionState
	Text     string // accumulated model text plus tool transcript lines
	Target   string // where the artifact was written; empty unless persisted
	Artifact sitegen.Artifact
	Build    *sitegen.BuildOutcome // tool projects only
	Err      error                 // upstream, validation or IO failure
}

// EventStream is the consumer side of one session.
type EventStream struct {
	key    string
	events chan sitegen.WireEvent
	done   chan struct{}
	result Result
	close  func()
}

// Key returns the session key.
func (s *EventStream) Key() string { return s.key }

// Events returns the wire event channel. It is closed after the terminal
// event, or without one when the session is cancelled.
func (s *EventStream) Events() <-chan sitegen.WireEvent { return s.events }

// Done is closed once the worker has finished all bookkeeping.
func (s *EventStream) Done() <-chan struct{} { return s.done }

// Result waits for the worker and returns the session outcome.
func (s *EventStream) Result() Result {
	<-s.done
	return s.result
}

// Close tells the worker the consumer is gone. An active session is
// cancelled; a finished one stops delivering events. Safe to call more than
// once.
func (s *EventStream) Close() { s.close() }
