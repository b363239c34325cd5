package json

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fwojciec/sitegen"
)

// messageDTO is the JSON representation of a Message with a type discriminator.
type messageDTO struct {
	Type          string         `json:"type"`
	Content       []contentBlock `json:"content"`
	Timestamp     time.Time      `json:"timestamp"`
	StopReason    string         `json:"stop_reason,omitempty"`
	RawStopReason string         `json:"raw_stop_reason,omitempty"`
	Usage         *usageDTO      `json:"usage,omitempty"`
	ToolCallID    string         `json:"tool_call_id,omitempty"`
	ToolName      string         `json:"tool_name,omitempty"`
	IsError       bool           `json:"is_error,omitempty"`
}

// contentBlock is the JSON representation of a ContentBlock.
type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type usageDTO struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func marshalMessage(msg sitegen.Message) (messageDTO, error) {
	switch m := msg.(type) {
	case sitegen.UserMessage:
		blocks, err := marshalContentBlocks(m.Content)
		if err != nil {
			return messageDTO{}, err
		}
		return messageDTO{Type: "user", Content: blocks, Timestamp: m.Timestamp}, nil
	case sitegen.AssistantMessage:
		blocks, err := marshalContentBlocks(m.Content)
		if err != nil {
			return messageDTO{}, err
		}
		return messageDTO{
			Type:          "assistant",
			Content:       blocks,
			Timestamp:     m.Timestamp,
			StopReason:    string(m.StopReason),
			RawStopReason: m.RawStopReason,
			Usage:         &usageDTO{InputTokens: m.Usage.InputTokens, OutputTokens: m.Usage.OutputTokens},
		}, nil
	case sitegen.ToolResultMessage:
		blocks, err := marshalContentBlocks(m.Content)
		if err != nil {
			return messageDTO{}, err
		}
		return messageDTO{
			Type:       "tool_result",
			Content:    blocks,
			Timestamp:  m.Timestamp,
			ToolCallID: m.ToolCallID,
			ToolName:   m.ToolName,
			IsError:    m.IsError,
		}, nil
	default:
		return messageDTO{}, fmt.Errorf("unknown message type: %T", msg)
	}
}

func unmarshalMessage(dto messageDTO) (sitegen.Message, error) {
	blocks, err := unmarshalContentBlocks(dto.Content)
	if err != nil {
		return nil, err
	}
	switch dto.Type {
	case "user":
		return sitegen.UserMessage{Content: blocks, Timestamp: dto.Timestamp}, nil
	case "assistant":
		var usage sitegen.Usage
		if dto.Usage != nil {
			usage = sitegen.Usage{InputTokens: dto.Usage.InputTokens, OutputTokens: dto.Usage.OutputTokens}
		}
		return sitegen.AssistantMessage{
			Content:       blocks,
			StopReason:    sitegen.StopReason(dto.StopReason),
			RawStopReason: dto.RawStopReason,
			Usage:         usage,
			Timestamp:     dto.Timestamp,
		}, nil
	case "tool_result":
		return sitegen.ToolResultMessage{
			ToolCallID: dto.ToolCallID,
			ToolName:   dto.ToolName,
			Content:    blocks,
			IsError:    dto.IsError,
			Timestamp:  dto.Timestamp,
		}, nil
	default:
		return nil, fmt.Errorf("unknown message type: %q", dto.Type)
	}
}

func marshalContentBlocks(blocks []sitegen.ContentBlock) ([]contentBlock, error) {
	out := make([]contentBlock, len(blocks))
	for i, b := range blocks {
		switch v := b.(type) {
		case sitegen.TextBlock:
			out[i] = contentBlock{Type: "text", Text: v.Text}
		case sitegen.ToolCallBlock:
			out[i] = contentBlock{Type: "tool_call", ID: v.ID, Name: v.Name, Arguments: v.Arguments}
		default:
			return nil, fmt.Errorf("content block %d: unknown type %T", i, b)
		}
	}
	return out, nil
}

func unmarshalContentBlocks(dtos []contentBlock) ([]sitegen.ContentBlock, error) {
	out := make([]sitegen.ContentBlock, len(dtos))
	for i, dto := range dtos {
		switch dto.Type {
		case "text":
			out[i] = sitegen.TextBlock{Text: dto.Text}
		case "tool_call":
			out[i] = sitegen.ToolCallBlock{ID: dto.ID, Name: dto.Name, Arguments: dto.Arguments}
		default:
			return nil, fmt.Errorf("content block %d: unknown type %q", i, dto.Type)
		}
	}
	return out, nil
}
