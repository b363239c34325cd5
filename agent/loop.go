// Package agent orchestrates the conversation loop between a Provider and a ToolExecutor.
package agent

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fwojciec/sitegen"
)

// DefaultMaxTurns bounds the number of provider turns in one Run.
const DefaultMaxTurns = 20

// Loop orchestrates the conversation between a Provider and a ToolExecutor.
// A nil executor is allowed for tool-less runs; any tool call the model makes
// anyway is answered with an error result.
type Loop struct {
	provider sitegen.Provider
	executor sitegen.ToolExecutor
}

// New creates a new Loop with the given provider and tool executor.
func New(provider sitegen.Provider, executor sitegen.ToolExecutor) *Loop {
	return &Loop{provider: provider, executor: executor}
}

// RunOption configures a single Run invocation.
type RunOption func(*runConfig)

type runConfig struct {
	onEvent   func(sitegen.Event)
	model     string
	maxTokens int
	maxTurns  int
}

// WithEventHandler sets a callback that receives each streaming event during
// the run, including an EventToolResult after every tool execution.
func WithEventHandler(h func(sitegen.Event)) RunOption {
	return func(c *runConfig) {
		c.onEvent = h
	}
}

// WithModel sets the model ID for provider requests during this run.
// Empty string means the provider uses its default model.
func WithModel(model string) RunOption {
	return func(c *runConfig) {
		c.model = model
	}
}

// WithMaxTokens sets the per-turn output token limit.
func WithMaxTokens(n int) RunOption {
	return func(c *runConfig) {
		c.maxTokens = n
	}
}

// WithMaxTurns caps the number of provider turns. Zero means DefaultMaxTurns.
func WithMaxTurns(n int) RunOption {
	return func(c *runConfig) {
		c.maxTurns = n
	}
}

// Run executes the agent loop. It sends the conversation's messages to the
// provider, streams the response, executes any tool calls, and repeats until
// the assistant stops requesting tools. All messages are appended to conv.
func (l *Loop) Run(ctx context.Context, conv *sitegen.Conversation, tools []sitegen.Tool, opts ...RunOption) error {
	cfg := runConfig{maxTurns: DefaultMaxTurns}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxTurns <= 0 {
		cfg.maxTurns = DefaultMaxTurns
	}
	for i := 0; i < cfg.maxTurns; i++ {
		cont, err := l.turn(ctx, conv, tools, &cfg)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return fmt.Errorf("exceeded %d turns: %w", cfg.maxTurns, sitegen.ErrUpstream)
}

// turn executes a single turn of the conversation loop. It returns true if the
// loop should continue (tool calls were made), false if it should stop.
func (l *Loop) turn(ctx context.Context, conv *sitegen.Conversation, tools []sitegen.Tool, cfg *runConfig) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	req := sitegen.ModelRequest{
		Model:        cfg.model,
		SystemPrompt: conv.SystemPrompt,
		Messages:     conv.Messages,
		Tools:        tools,
		MaxTokens:    cfg.maxTokens,
	}

	stream, err := l.provider.Stream(ctx, req)
	if err != nil {
		return false, err
	}
	defer stream.Close()

	var streamErr error
	for {
		evt, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			streamErr = err
			break
		}
		l.emit(cfg, evt)
	}

	// Partial or complete.
	msg, msgErr := stream.Message()
	if msgErr != nil {
		if streamErr != nil {
			return false, streamErr
		}
		return false, msgErr
	}

	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = time.Now()

	if streamErr != nil {
		return false, streamErr
	}

	toolCalls := msg.ToolCalls()
	if len(toolCalls) == 0 {
		return false, nil
	}

	for _, tc := range toolCalls {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		result := l.execute(ctx, tc)
		conv.Messages = append(conv.Messages, sitegen.ToolResultMessage{
			ToolCallID: tc.ID,
			ToolName:   tc.Name,
			Content:    result.Content,
			IsError:    result.IsError,
			Timestamp:  time.Now(),
		})
		l.emit(cfg, sitegen.EventToolResult{
			ID:       tc.ID,
			ToolName: tc.Name,
			Content:  result.Text(),
			IsError:  result.IsError,
		})
	}
	conv.UpdatedAt = time.Now()

	return true, nil
}

// execute runs one tool call. Infrastructure errors become error results so
// the model can react to them.
func (l *Loop) execute(ctx context.Context, tc sitegen.ToolCallBlock) *sitegen.ToolResult {
	if l.executor == nil {
		return errorResult(fmt.Errorf("%s: %w", tc.Name, sitegen.ErrToolNotFound))
	}
	result, err := l.executor.Execute(ctx, tc.Name, tc.Arguments)
	if err != nil {
		return errorResult(err)
	}
	if result == nil {
		return &sitegen.ToolResult{}
	}
	return result
}

func (l *Loop) emit(cfg *runConfig, evt sitegen.Event) {
	if cfg.onEvent != nil {
		cfg.onEvent(evt)
	}
}

func errorResult(err error) *sitegen.ToolResult {
	return &sitegen.ToolResult{
		Content: []sitegen.ContentBlock{sitegen.TextBlock{Text: err.Error()}},
		IsError: true,
	}
}
