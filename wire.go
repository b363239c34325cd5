package sitegen

import "encoding/json"

// WireEvent is a sealed interface for one unit of the client-facing output
// protocol. For a single session, wire events are delivered in the order the
// generation client produced them, and the ToolResult for an id never
// precedes its ToolRequest.
type WireEvent interface {
	wireEvent()
}

// WirePartialAnswer carries a chunk of model text.
type WirePartialAnswer struct {
	Text string
}

func (WirePartialAnswer) wireEvent() {}

// WireToolRequest announces a tool invocation requested by the model.
type WireToolRequest struct {
	ID   string
	Name string
	Args json.RawMessage
}

func (WireToolRequest) wireEvent() {}

// WireToolResult reports the output of an executed tool.
type WireToolResult struct {
	ID     string
	Name   string
	Output string
}

func (WireToolResult) wireEvent() {}

// WireDone is the terminal marker of a successful generation, for every
// format.
type WireDone struct{}

func (WireDone) wireEvent() {}

// WireError is the terminal marker of an upstream failure.
type WireError struct {
	Message string
}

func (WireError) wireEvent() {}

var (
	_ WireEvent = WirePartialAnswer{}
	_ WireEvent = WireToolRequest{}
	_ WireEvent = WireToolResult{}
	_ WireEvent = WireDone{}
	_ WireEvent = WireError{}
)
