package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/fwojciec/sitegen"
)

var _ sitegen.Stream = (*stream)(nil)

// stream pulls response chunks and queues the events each chunk yields.
type stream struct {
	ctx     context.Context
	pull    func() (*genai.GenerateContentResponse, error, bool)
	release func()
	state   sitegen.StreamState
	err     error
	pending []sitegen.Event
	msg     sitegen.AssistantMessage
}

// NewStreamFromIter wraps a chunk iterator as a sitegen.Stream.
func NewStreamFromIter(ctx context.Context, chunks iter.Seq2[*genai.GenerateContentResponse, error]) sitegen.Stream {
	pull, release := iter.Pull2(chunks)
	return &stream{ctx: ctx, pull: pull, release: release, state: sitegen.StreamStateNew}
}

// Next returns queued events first, then pulls the next chunk.
func (s *stream) Next() (sitegen.Event, error) {
	for {
		if len(s.pending) > 0 {
			evt := s.pending[0]
			s.pending = s.pending[1:]
			return evt, nil
		}
		switch s.state {
		case sitegen.StreamStateComplete:
			return nil, io.EOF
		case sitegen.StreamStateError:
			return nil, s.err
		case sitegen.StreamStateClosed:
			return nil, fmt.Errorf("gemini: %w", sitegen.ErrStreamClosed)
		}

		if s.ctx.Err() != nil {
			s.fail(fmt.Errorf("gemini: %w", context.Cause(s.ctx)), sitegen.StopAborted, "aborted")
			return nil, s.err
		}
		chunk, err, ok := s.pull()
		if !ok {
			s.finish()
			continue
		}
		s.state = sitegen.StreamStateStreaming
		if err != nil {
			if s.ctx.Err() != nil {
				s.fail(fmt.Errorf("gemini: %w", context.Cause(s.ctx)), sitegen.StopAborted, "aborted")
			} else {
				s.fail(fmt.Errorf("gemini: %w: %w", sitegen.ErrUpstream, err), sitegen.StopError, "error")
			}
			return nil, s.err
		}
		if err := s.process(chunk); err != nil {
			return nil, err
		}
	}
}

// State returns the current stream state.
func (s *stream) State() sitegen.StreamState { return s.state }

// Message returns the message assembled so far.
func (s *stream) Message() (sitegen.AssistantMessage, error) {
	if s.state == sitegen.StreamStateNew {
		return sitegen.AssistantMessage{}, fmt.Errorf("gemini: no data received yet")
	}
	return s.msg, nil
}

// Close stops the iterator. Closing before a terminal state marks the
// message aborted.
func (s *stream) Close() error {
	if s.state != sitegen.StreamStateComplete && s.state != sitegen.StreamStateError {
		s.state = sitegen.StreamStateClosed
		s.pending = nil
		s.msg.StopReason, s.msg.RawStopReason = sitegen.StopAborted, "aborted"
	}
	s.release()
	return nil
}

func (s *stream) fail(err error, reason sitegen.StopReason, raw string) {
	s.state = sitegen.StreamStateError
	s.err = err
	s.pending = nil
	s.msg.StopReason, s.msg.RawStopReason = reason, raw
}

// finish settles the stop reason once the iterator is exhausted. A normal
// stop with tool calls becomes StopToolUse.
func (s *stream) finish() {
	s.state = sitegen.StreamStateComplete
	if s.msg.StopReason == "" {
		s.msg.StopReason, s.msg.RawStopReason = sitegen.StopEndTurn, "end_turn"
	}
	if s.msg.StopReason == sitegen.StopEndTurn && len(s.msg.ToolCalls()) > 0 {
		s.msg.StopReason = sitegen.StopToolUse
	}
}

func (s *stream) process(chunk *genai.GenerateContentResponse) error {
	if chunk == nil {
		return nil
	}
	if u := chunk.UsageMetadata; u != nil {
		cached := int(u.CachedContentTokenCount)
		s.msg.Usage = sitegen.Usage{
			InputTokens:     max(0, int(u.PromptTokenCount)-cached),
			OutputTokens:    int(u.CandidatesTokenCount),
			CacheReadTokens: cached,
		}
	}
	if len(chunk.Candidates) == 0 {
		if fb := chunk.PromptFeedback; fb != nil && fb.BlockReason != "" {
			s.fail(fmt.Errorf("gemini: prompt blocked: %s: %w", fb.BlockReason, sitegen.ErrUpstream), sitegen.StopError, string(fb.BlockReason))
			return s.err
		}
		return nil
	}

	cand := chunk.Candidates[0]
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if err := s.processPart(part); err != nil {
				s.fail(err, sitegen.StopError, "error")
				return err
			}
		}
	}
	if cand.FinishReason != "" {
		s.msg.StopReason = finishReason(cand.FinishReason)
		s.msg.RawStopReason = string(cand.FinishReason)
	}
	return nil
}

// processPart appends one part to the message. Thought parts are dropped.
func (s *stream) processPart(part *genai.Part) error {
	switch {
	case part == nil || part.Thought:
		return nil
	case part.FunctionCall != nil:
		fc := part.FunctionCall
		args := json.RawMessage("{}")
		if fc.Args != nil {
			raw, err := json.Marshal(fc.Args)
			if err != nil {
				return fmt.Errorf("gemini: invalid tool call arguments for %s: %w: %w", fc.Name, sitegen.ErrUpstream, err)
			}
			args = raw
		}
		id := fc.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		call := sitegen.ToolCallBlock{ID: id, Name: fc.Name, Arguments: args}
		s.msg.Content = append(s.msg.Content, call)
		s.pending = append(s.pending, sitegen.EventToolCallBegin{ID: id, Name: fc.Name}, sitegen.EventToolCallEnd{Call: call})
	case part.Text != "":
		n := len(s.msg.Content)
		if n > 0 {
			if tb, ok := s.msg.Content[n-1].(sitegen.TextBlock); ok {
				s.msg.Content[n-1] = sitegen.TextBlock{Text: tb.Text + part.Text}
				s.pending = append(s.pending, sitegen.EventTextDelta{Index: n - 1, Delta: part.Text})
				return nil
			}
		}
		s.msg.Content = append(s.msg.Content, sitegen.TextBlock{Text: part.Text})
		s.pending = append(s.pending, sitegen.EventTextDelta{Index: n, Delta: part.Text})
	}
	return nil
}

func finishReason(r genai.FinishReason) sitegen.StopReason {
	switch r {
	case genai.FinishReasonStop:
		return sitegen.StopEndTurn
	case genai.FinishReasonMaxTokens:
		return sitegen.StopLength
	case genai.FinishReasonSafety, genai.FinishReasonRecitation, genai.FinishReasonBlocklist,
		genai.FinishReasonProhibitedContent, genai.FinishReasonSPII, genai.FinishReasonMalformedFunctionCall:
		return sitegen.StopError
	default:
		return sitegen.StopUnknown
	}
}
