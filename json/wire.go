package json

import (
	"encoding/json"
	"fmt"

	"github.com/fwojciec/sitegen"
)

// SSE event names. Data events carry no name.
const (
	EventDone  = "done"
	EventError = "error"
)

// Tool-project payload discriminators.
const (
	typeAIResponse   = "ai_response"
	typeToolRequest  = "tool_request"
	typeToolExecuted = "tool_executed"
	typeError        = "error"
)

// chunk is the simple-format payload.
type chunk struct {
	D string `json:"d"`
}

// payload is the tool-project payload, discriminated by Type.
type payload struct {
	Type    string          `json:"type"`
	Content string          `json:"content,omitempty"`
	ID      string          `json:"id,omitempty"`
	Name    string          `json:"name,omitempty"`
	Args    json.RawMessage `json:"args,omitempty"`
	Result  *string         `json:"result,omitempty"`
	Message string          `json:"message,omitempty"`
}

// EncodeWireEvent returns the SSE event name and data line for ev. Partial
// answers of SingleFile and MultiFile use the {"d":...} chunk; everything else
// is a typed payload. Done has an empty data line.
func EncodeWireEvent(format sitegen.Format, ev sitegen.WireEvent) (string, []byte, error) {
	switch e := ev.(type) {
	case sitegen.WirePartialAnswer:
		if format != sitegen.FormatToolProject {
			data, err := json.Marshal(chunk{D: e.Text})
			return "", data, err
		}
		data, err := json.Marshal(payload{Type: typeAIResponse, Content: e.Text})
		return "", data, err
	case sitegen.WireToolRequest:
		args := e.Args
		if len(args) == 0 {
			args = json.RawMessage(`{}`)
		}
		data, err := json.Marshal(payload{Type: typeToolRequest, ID: e.ID, Name: e.Name, Args: args})
		return "", data, err
	case sitegen.WireToolResult:
		out := e.Output
		data, err := json.Marshal(payload{Type: typeToolExecuted, ID: e.ID, Name: e.Name, Result: &out})
		return "", data, err
	case sitegen.WireDone:
		return EventDone, []byte{}, nil
	case sitegen.WireError:
		data, err := json.Marshal(payload{Type: typeError, Message: e.Message})
		return EventError, data, err
	default:
		return "", nil, fmt.Errorf("unknown wire event: %T", ev)
	}
}

// DecodeWireEvent parses one SSE event back into a WireEvent.
func DecodeWireEvent(event string, data []byte) (sitegen.WireEvent, error) {
	switch event {
	case EventDone:
		return sitegen.WireDone{}, nil
	case EventError:
		var p payload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode error event: %w", err)
		}
		return sitegen.WireError{Message: p.Message}, nil
	case "", "message":
	default:
		return nil, fmt.Errorf("unknown event %q", event)
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	switch p.Type {
	case "":
		var c chunk
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("decode chunk: %w", err)
		}
		return sitegen.WirePartialAnswer{Text: c.D}, nil
	case typeAIResponse:
		return sitegen.WirePartialAnswer{Text: p.Content}, nil
	case typeToolRequest:
		return sitegen.WireToolRequest{ID: p.ID, Name: p.Name, Args: p.Args}, nil
	case typeToolExecuted:
		var out string
		if p.Result != nil {
			out = *p.Result
		}
		return sitegen.WireToolResult{ID: p.ID, Name: p.Name, Output: out}, nil
	case typeError:
		return sitegen.WireError{Message: p.Message}, nil
	default:
		return nil, fmt.Errorf("unknown payload type %q", p.Type)
	}
}
