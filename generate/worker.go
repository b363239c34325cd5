package generate

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/sitegen"
	"github.com/fwojciec/sitegen/agent"
	"github.com/fwojciec/sitegen/log"
	"github.com/fwojciec/sitegen/session"
)

// worker owns one session from registration to the transcript write.
type worker struct {
	d      *Dispatcher
	strat  strategy
	req    sitegen.GenerationRequest
	handle *session.Handle
	log    *log.Logger
	stream *EventStream

	text   strings.Builder
	result Result
}

func newWorker(d *Dispatcher, strat strategy, req sitegen.GenerationRequest, h *session.Handle) *worker {
	w := &worker{
		d:      d,
		strat:  strat,
		req:    req,
		handle: h,
		log: d.logger.With(map[string]any{
			"session_key": h.Key,
			"session_id":  h.ID,
			"owner_id":    req.OwnerID,
			"format":      string(req.Format),
		}),
	}
	var once sync.Once
	w.stream = &EventStream{
		key:    h.Key,
		events: make(chan sitegen.WireEvent),
		done:   make(chan struct{}),
		close: func() {
			once.Do(func() {
				if !d.registry.CancelHandle(h) {
					h.Release()
				}
			})
		},
	}
	return w
}

func (w *worker) run() {
	start := time.Now()
	w.log.Info("generation started", nil)

	conv, runErr := w.generate()
	w.finish(conv, runErr)
	w.record()
	w.d.registry.Remove(w.handle)

	w.handle.Release()
	w.stream.result = w.result
	close(w.stream.events)
	close(w.stream.done)

	w.log.Info("generation finished", map[string]any{
		"state":       w.result.State.String(),
		"chars":       len(w.result.Text),
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

// generate runs the agent loop and returns the conversation it produced.
func (w *worker) generate() (*sitegen.Conversation, error) {
	ctx := w.handle.Context()
	conv := w.loadMemory(ctx)
	conv.SystemPrompt = w.strat.prompt
	conv.Messages = append(agent.Window(conv.Messages, w.d.window), sitegen.UserMessage{
		Content:   []sitegen.ContentBlock{sitegen.TextBlock{Text: w.req.Prompt}},
		Timestamp: time.Now(),
	})

	var executor sitegen.ToolExecutor
	var tools []sitegen.Tool
	opts := []agent.RunOption{
		agent.WithEventHandler(w.translate),
		agent.WithModel(w.d.model),
		agent.WithMaxTokens(w.d.maxTokens),
		agent.WithMaxTurns(1),
	}
	if w.strat.tools {
		dir := w.projectDir()
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return conv, fmt.Errorf("create project dir: %w: %w", sitegen.ErrIO, err)
		}
		executor, tools = w.d.toolset(dir)
		opts[len(opts)-1] = agent.WithMaxTurns(w.d.maxTurns)
	}

	err := agent.New(w.d.provider, executor).Run(ctx, conv, tools, opts...)
	return conv, err
}

// translate maps one low-level event to at most one wire event. Text is
// accumulated even when the session has been cancelled.
func (w *worker) translate(evt sitegen.Event) {
	switch e := evt.(type) {
	case sitegen.EventTextDelta:
		w.text.WriteString(e.Delta)
		w.emit(sitegen.WirePartialAnswer{Text: e.Delta})
	case sitegen.EventToolCallEnd:
		w.emit(sitegen.WireToolRequest{ID: e.Call.ID, Name: e.Call.Name, Args: e.Call.Arguments})
	case sitegen.EventToolResult:
		fmt.Fprintf(&w.text, "\n\n[tool %s] %s\n\n", e.ToolName, e.Content)
		w.emit(sitegen.WireToolResult{ID: e.ID, Name: e.ToolName, Output: e.Content})
	}
}

// emit delivers ev unless the session was cancelled or the consumer left.
func (w *worker) emit(ev sitegen.WireEvent) bool {
	if w.d.registry.State(w.handle) == sitegen.SessionCancelled {
		return false
	}
	select {
	case w.stream.events <- ev:
		return true
	case <-w.handle.Context().Done():
		return false
	}
}

// finish settles the session exactly once. Only the path that wins the
// registry transition may emit a terminal event or persist anything.
func (w *worker) finish(conv *sitegen.Conversation, runErr error) {
	w.result.Text = w.text.String()

	target := sitegen.SessionCompleted
	if runErr != nil {
		target = sitegen.SessionFailed
	}
	won := w.d.registry.Complete(w.handle, target)
	w.result.State = w.d.registry.State(w.handle)
	if !won {
		w.log.Info("generation cancelled", nil)
		return
	}

	if runErr != nil {
		w.result.Err = runErr
		w.log.Error("generation failed", map[string]any{"error": runErr})
		w.emit(sitegen.WireError{Message: runErr.Error()})
		return
	}

	ctx := context.WithoutCancel(w.handle.Context())
	if err := w.strat.persist(ctx, w); err != nil {
		w.result.Err = err
		w.log.Error("persist failed", map[string]any{"error": err})
		w.emit(sitegen.WireError{Message: err.Error()})
		return
	}
	w.saveMemory(ctx, conv)
	w.emit(sitegen.WireDone{})
}

// record appends the transcript. It runs once per session on every path,
// on a context that outlives cancellation.
func (w *worker) record() {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(w.handle.Context()), w.d.historyTimeout)
	defer cancel()
	if err := w.d.history.Append(ctx, w.req.OwnerID, sitegen.HistoryAI, w.result.Text); err != nil {
		w.log.Error("history append failed", map[string]any{"error": err})
	}
}

func (w *worker) memoryKey() string {
	return sitegen.TargetName(w.req.Format, w.req.OwnerID)
}

func (w *worker) projectDir() string {
	return sitegen.TargetDir(w.d.projectRoot, w.req.Format, w.req.OwnerID)
}

// loadMemory returns the remembered conversation, or a fresh one when
// memory is disabled or unreadable.
func (w *worker) loadMemory(ctx context.Context) *sitegen.Conversation {
	fresh := &sitegen.Conversation{ID: w.memoryKey(), CreatedAt: time.Now()}
	if w.d.memory == nil {
		return fresh
	}
	conv, err := w.d.memory.Load(ctx, w.memoryKey())
	if err != nil {
		w.log.Warn("memory load failed", map[string]any{"error": err})
		return fresh
	}
	if conv.ID == "" {
		conv.ID = fresh.ID
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = fresh.CreatedAt
	}
	return &conv
}

func (w *worker) saveMemory(ctx context.Context, conv *sitegen.Conversation) {
	if w.d.memory == nil || conv == nil {
		return
	}
	saved := *conv
	saved.Messages = agent.Window(conv.Messages, w.d.window)
	if err := w.d.memory.Save(ctx, w.memoryKey(), saved); err != nil {
		w.log.Warn("memory save failed", map[string]any{"error": err})
	}
}
