package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fwojciec/sitegen"
)

var _ sitegen.Stream = (*stream)(nil)

// stream parses the SSE body step by step. Each Next call reads frames
// until one maps to a semantic event or the stream terminates.
type stream struct {
	ctx    context.Context
	body   io.ReadCloser
	frames *frameReader
	state  sitegen.StreamState
	err    error

	blocks     map[int]*block
	usage      sitegen.Usage
	stop       sitegen.StopReason
	rawStop    string
	hasMessage bool
}

// block accumulates one content block. Thinking and other block types are
// tracked only so their deltas can be ignored.
type block struct {
	kind string
	id   string
	name string
	buf  strings.Builder
}

func newStream(ctx context.Context, body io.ReadCloser) *stream {
	return &stream{
		ctx:    ctx,
		body:   body,
		frames: newFrameReader(body),
		state:  sitegen.StreamStateNew,
		blocks: make(map[int]*block),
	}
}

// Next returns the next semantic event, or io.EOF after message_stop.
func (s *stream) Next() (sitegen.Event, error) {
	switch s.state {
	case sitegen.StreamStateComplete:
		return nil, io.EOF
	case sitegen.StreamStateError:
		return nil, s.err
	case sitegen.StreamStateClosed:
		return nil, fmt.Errorf("anthropic: %w", sitegen.ErrStreamClosed)
	}

	for {
		name, data, err := s.frames.next()
		if err != nil {
			s.fail(err)
			return nil, s.err
		}
		s.state = sitegen.StreamStateStreaming
		s.hasMessage = true

		evt, err := s.handle(name, []byte(data))
		if err != nil {
			s.fail(err)
			return nil, s.err
		}
		if s.state == sitegen.StreamStateComplete {
			return nil, io.EOF
		}
		if evt != nil {
			return evt, nil
		}
	}
}

// State returns the current stream state.
func (s *stream) State() sitegen.StreamState { return s.state }

// Message assembles the blocks seen so far in index order.
func (s *stream) Message() (sitegen.AssistantMessage, error) {
	if !s.hasMessage {
		return sitegen.AssistantMessage{}, fmt.Errorf("anthropic: no data received yet")
	}
	indexes := make([]int, 0, len(s.blocks))
	for i := range s.blocks {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	msg := sitegen.AssistantMessage{StopReason: s.stop, RawStopReason: s.rawStop, Usage: s.usage}
	for _, i := range indexes {
		b := s.blocks[i]
		switch b.kind {
		case "text":
			msg.Content = append(msg.Content, sitegen.TextBlock{Text: b.buf.String()})
		case "tool_use":
			msg.Content = append(msg.Content, b.call())
		}
	}
	return msg, nil
}

// Close releases the response body. Closing before a terminal state marks
// the message aborted.
func (s *stream) Close() error {
	if s.state != sitegen.StreamStateComplete && s.state != sitegen.StreamStateError {
		s.state = sitegen.StreamStateClosed
		s.stop, s.rawStop = sitegen.StopAborted, "aborted"
	}
	return s.body.Close()
}

func (s *stream) fail(err error) {
	s.state = sitegen.StreamStateError
	switch {
	case s.ctx.Err() != nil:
		s.err = fmt.Errorf("anthropic: %w", context.Cause(s.ctx))
		s.stop, s.rawStop = sitegen.StopAborted, "aborted"
		return
	case err == io.EOF:
		s.err = fmt.Errorf("anthropic: unexpected end of stream: %w", sitegen.ErrUpstream)
	default:
		s.err = err
	}
	s.stop, s.rawStop = sitegen.StopError, "error"
}

func (s *stream) handle(name string, data []byte) (sitegen.Event, error) {
	switch name {
	case "message_start":
		var p messageStart
		if err := decode(name, data, &p); err != nil {
			return nil, err
		}
		s.applyUsage(p.Message.Usage)
		return nil, nil
	case "content_block_start":
		var p blockStart
		if err := decode(name, data, &p); err != nil {
			return nil, err
		}
		b := &block{kind: p.Block.Type, id: p.Block.ID, name: p.Block.Name}
		s.blocks[p.Index] = b
		if b.kind == "tool_use" {
			return sitegen.EventToolCallBegin{ID: b.id, Name: b.name}, nil
		}
		return nil, nil
	case "content_block_delta":
		var p blockDelta
		if err := decode(name, data, &p); err != nil {
			return nil, err
		}
		b := s.blocks[p.Index]
		if b == nil {
			return nil, fmt.Errorf("anthropic: delta for unknown block %d: %w", p.Index, sitegen.ErrUpstream)
		}
		switch p.Delta.Type {
		case "text_delta":
			b.buf.WriteString(p.Delta.Text)
			return sitegen.EventTextDelta{Index: p.Index, Delta: p.Delta.Text}, nil
		case "input_json_delta":
			b.buf.WriteString(p.Delta.PartialJSON)
			return sitegen.EventToolCallDelta{ID: b.id, Delta: p.Delta.PartialJSON}, nil
		}
		return nil, nil
	case "content_block_stop":
		var p blockStop
		if err := decode(name, data, &p); err != nil {
			return nil, err
		}
		b := s.blocks[p.Index]
		if b == nil {
			return nil, fmt.Errorf("anthropic: stop for unknown block %d: %w", p.Index, sitegen.ErrUpstream)
		}
		if b.kind == "tool_use" {
			return sitegen.EventToolCallEnd{Call: b.call()}, nil
		}
		return nil, nil
	case "message_delta":
		var p messageDelta
		if err := decode(name, data, &p); err != nil {
			return nil, err
		}
		s.applyUsage(p.Usage)
		if p.Delta.StopReason != nil {
			s.rawStop = *p.Delta.StopReason
			s.stop = stopReason(s.rawStop)
		}
		return nil, nil
	case "message_stop":
		s.state = sitegen.StreamStateComplete
		return nil, nil
	case "error":
		var p errorPayload
		if err := decode(name, data, &p); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("anthropic: %s: %s: %w", p.Error.Type, p.Error.Message, sitegen.ErrUpstream)
	default:
		// ping and unknown event types.
		return nil, nil
	}
}

// applyUsage merges a usage payload. Absent or null counters leave the
// previous value in place.
func (s *stream) applyUsage(u usagePayload) {
	if u.InputTokens != nil {
		s.usage.InputTokens = *u.InputTokens
	}
	if u.OutputTokens > 0 {
		s.usage.OutputTokens = u.OutputTokens
	}
	if u.CacheReadInputTokens != nil {
		s.usage.CacheReadTokens = *u.CacheReadInputTokens
	}
	if u.CacheCreationInputTokens != nil {
		s.usage.CacheWriteTokens = *u.CacheCreationInputTokens
	}
}

func (b *block) call() sitegen.ToolCallBlock {
	raw := b.buf.String()
	if raw == "" {
		raw = "{}"
	}
	return sitegen.ToolCallBlock{ID: b.id, Name: b.name, Arguments: json.RawMessage(raw)}
}

func decode(name string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("anthropic: parse %s: %w: %w", name, sitegen.ErrUpstream, err)
	}
	return nil
}

func stopReason(raw string) sitegen.StopReason {
	switch raw {
	case "end_turn", "stop_sequence":
		return sitegen.StopEndTurn
	case "max_tokens":
		return sitegen.StopLength
	case "tool_use":
		return sitegen.StopToolUse
	default:
		return sitegen.StopUnknown
	}
}

// frameReader splits an SSE body into (event, data) frames.
type frameReader struct {
	scanner *bufio.Scanner
}

func newFrameReader(r io.Reader) *frameReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &frameReader{scanner: sc}
}

// next returns the next frame with data, or io.EOF when the body ends.
func (f *frameReader) next() (string, string, error) {
	var name string
	var data strings.Builder
	for f.scanner.Scan() {
		line := f.scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				return name, data.String(), nil
			}
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := f.scanner.Err(); err != nil {
		return "", "", fmt.Errorf("anthropic: read stream: %w: %w", sitegen.ErrUpstream, err)
	}
	if data.Len() > 0 {
		return name, data.String(), nil
	}
	return "", "", io.EOF
}
