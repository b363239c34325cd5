package mock

import (
	"io"

	"github.com/fwojciec/sitegen"
)

// Interface compliance check.
var _ sitegen.Stream = (*Stream)(nil)

// Stream is a test double for sitegen.Stream.
// NextFn and MessageFn panic when nil to catch missing setup. CloseFn and
// StateFn are nil-safe because callers commonly defer stream.Close().
type Stream struct {
	NextFn    func() (sitegen.Event, error)
	StateFn   func() sitegen.StreamState
	MessageFn func() (sitegen.AssistantMessage, error)
	CloseFn   func() error
}

// Next delegates to NextFn.
func (s *Stream) Next() (sitegen.Event, error) {
	return s.NextFn()
}

// State delegates to StateFn. Returns StreamStateNew when StateFn is nil.
func (s *Stream) State() sitegen.StreamState {
	if s.StateFn == nil {
		return sitegen.StreamStateNew
	}
	return s.StateFn()
}

// Message delegates to MessageFn.
func (s *Stream) Message() (sitegen.AssistantMessage, error) {
	return s.MessageFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *Stream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// ScriptedStream returns a Stream that yields events in order, then fails
// with err or ends with io.EOF when err is nil. Message returns msg.
func ScriptedStream(msg sitegen.AssistantMessage, err error, events ...sitegen.Event) *Stream {
	i := 0
	return &Stream{
		NextFn: func() (sitegen.Event, error) {
			if i < len(events) {
				evt := events[i]
				i++
				return evt, nil
			}
			if err != nil {
				return nil, err
			}
			return nil, io.EOF
		},
		MessageFn: func() (sitegen.AssistantMessage, error) {
			return msg, nil
		},
	}
}
