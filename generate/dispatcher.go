package generate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fwojciec/sitegen"
	"github.com/fwojciec/sitegen/agent"
	"github.com/fwojciec/sitegen/log"
	"github.com/fwojciec/sitegen/session"
)

// DefaultHistoryTimeout bounds the transcript write that follows every
// session.
const DefaultHistoryTimeout = 10 * time.Second

// Toolset returns the executor and tool schemas for one owner's project
// directory.
type Toolset func(dir string) (sitegen.ToolExecutor, []sitegen.Tool)

// Dispatcher starts generation sessions.
type Dispatcher struct {
	provider sitegen.Provider
	registry *session.Registry

	parser      sitegen.CodeParser
	writer      sitegen.ArtifactWriter
	builder     sitegen.ProjectBuilder
	history     sitegen.HistorySink
	memory      sitegen.MemoryStore
	toolset     Toolset
	projectRoot string
	prompts     map[sitegen.Format]string
	logger      *log.Logger

	model          string
	maxTokens      int
	maxTurns       int
	window         int
	historyTimeout time.Duration

	table map[sitegen.Format]strategy

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithParser sets the parser for text formats.
func WithParser(p sitegen.CodeParser) Option { return func(d *Dispatcher) { d.parser = p } }

// WithWriter sets the writer for text formats.
func WithWriter(w sitegen.ArtifactWriter) Option { return func(d *Dispatcher) { d.writer = w } }

// WithBuilder sets the post-process builder for tool projects. Without one
// tool projects are left unbuilt.
func WithBuilder(b sitegen.ProjectBuilder) Option { return func(d *Dispatcher) { d.builder = b } }

// WithHistory sets the transcript sink. The default discards transcripts.
func WithHistory(h sitegen.HistorySink) Option { return func(d *Dispatcher) { d.history = h } }

// WithMemory enables per-target conversation memory.
func WithMemory(m sitegen.MemoryStore) Option { return func(d *Dispatcher) { d.memory = m } }

// WithToolset enables tool projects rooted at root/<format>_<owner>.
func WithToolset(root string, ts Toolset) Option {
	return func(d *Dispatcher) {
		d.projectRoot = root
		d.toolset = ts
	}
}

// WithSystemPrompt overrides the built-in prompt for one format.
func WithSystemPrompt(f sitegen.Format, prompt string) Option {
	return func(d *Dispatcher) { d.prompts[f] = prompt }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(d *Dispatcher) { d.logger = l } }

// WithModel sets the model passed to the provider.
func WithModel(model string) Option { return func(d *Dispatcher) { d.model = model } }

// WithMaxTokens sets the per-turn output limit.
func WithMaxTokens(n int) Option { return func(d *Dispatcher) { d.maxTokens = n } }

// WithMaxTurns caps provider turns for tool projects.
func WithMaxTurns(n int) Option { return func(d *Dispatcher) { d.maxTurns = n } }

// WithWindow sets how many remembered messages are replayed.
func WithWindow(n int) Option { return func(d *Dispatcher) { d.window = n } }

// WithHistoryTimeout bounds the transcript write.
func WithHistoryTimeout(t time.Duration) Option { return func(d *Dispatcher) { d.historyTimeout = t } }

// NewDispatcher creates a Dispatcher. Text formats need a parser and a
// writer; tool projects need a toolset.
func NewDispatcher(provider sitegen.Provider, registry *session.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		provider:       provider,
		registry:       registry,
		history:        sitegen.NopHistorySink{},
		prompts:        make(map[sitegen.Format]string),
		logger:         log.Nop(),
		maxTurns:       agent.DefaultMaxTurns,
		window:         agent.DefaultWindow,
		historyTimeout: DefaultHistoryTimeout,
	}
	for _, o := range opts {
		o(d)
	}
	d.table = d.strategies()
	return d
}

// Registry returns the session registry.
func (d *Dispatcher) Registry() *session.Registry { return d.registry }

// Dispatch validates req, registers its session and starts the worker. It
// returns before any model output is produced. Configuration, validation
// and conflict errors are returned here and leave no session behind.
func (d *Dispatcher) Dispatch(ctx context.Context, req sitegen.GenerationRequest) (*EventStream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	strat, ok := d.table[req.Format]
	if !ok {
		return nil, fmt.Errorf("format %s is not enabled: %w", req.Format, sitegen.ErrConfiguration)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("dispatcher is shut down: %w", sitegen.ErrStreamClosed)
	}
	h, err := d.registry.Register(ctx, req.Key())
	if err != nil {
		return nil, err
	}

	w := newWorker(d, strat, req, h)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		w.run()
	}()
	return w.stream, nil
}

// Active returns the number of registered sessions.
func (d *Dispatcher) Active() int { return d.registry.Len() }

// Cancel stops the active session for key.
func (d *Dispatcher) Cancel(key string) error {
	return d.registry.Cancel(key)
}

// Shutdown rejects new sessions, cancels active ones and waits for every
// worker to finish its bookkeeping or for ctx to end.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	n := d.registry.Shutdown()
	d.logger.Info("dispatcher shutting down", map[string]any{"cancelled": n})

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
