// Package session tracks live generation sessions and owns their
// cancellation.
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/fwojciec/sitegen"
	"github.com/google/uuid"
)

// Handle is a worker's claim on one registered session. A handle stays
// valid after its entry is removed; operations on a stale handle never
// touch a newer session registered under the same key.
type Handle struct {
	Key string
	ID  string

	ctx   context.Context
	entry *entry
}

// Context returns the generation context. It is cancelled by Cancel,
// CancelHandle, Shutdown or Release, never by the registering caller.
func (h *Handle) Context() context.Context { return h.ctx }

// Release frees the context's resources. Workers call it once they no longer
// need the context.
func (h *Handle) Release() { h.entry.cancel(nil) }

type entry struct {
	id     string
	cancel context.CancelCauseFunc
	// Written only under Registry.mu; read without it.
	state atomic.Int32
}

func (e *entry) set(s sitegen.SessionState) { e.state.Store(int32(s)) }

func (e *entry) active() bool {
	return sitegen.SessionState(e.state.Load()) == sitegen.SessionActive
}

// Registry maps session keys to active sessions. Every check-then-act runs
// under one mutex so cancellation and completion cannot interleave.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*entry)}
}

// Register inserts an Active session for key. The returned handle's context
// keeps parent's values but not its cancellation. Registering a key that is
// still held, whether active or settled but not yet removed, fails with
// ErrConflict.
func (r *Registry) Register(parent context.Context, key string) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[key]; ok {
		return nil, fmt.Errorf("session %q still running: %w", key, sitegen.ErrConflict)
	}
	ctx, cancel := context.WithCancelCause(context.WithoutCancel(parent))
	e := &entry{id: uuid.NewString(), cancel: cancel}
	e.set(sitegen.SessionActive)
	r.sessions[key] = e
	return &Handle{Key: key, ID: e.id, ctx: ctx, entry: e}, nil
}

// Cancel transitions the session for key to Cancelled, aborts its context and
// removes it. It returns ErrNotFound when no session is active for key,
// including one that already settled and is still finishing its bookkeeping.
func (r *Registry) Cancel(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[key]
	if !ok || !e.active() {
		return fmt.Errorf("no active session %q: %w", key, sitegen.ErrNotFound)
	}
	e.set(sitegen.SessionCancelled)
	e.cancel(sitegen.ErrStreamClosed)
	delete(r.sessions, key)
	return nil
}

// CancelHandle cancels h's session if it is still the registered one. It
// reports whether anything was cancelled.
func (r *Registry) CancelHandle(h *Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.owns(h) || !h.entry.active() {
		return false
	}
	h.entry.set(sitegen.SessionCancelled)
	h.entry.cancel(sitegen.ErrStreamClosed)
	delete(r.sessions, h.Key)
	return true
}

// Complete moves h's session to the terminal state. The key stays reserved
// until Remove so persistence can finish before the owner starts again. It
// returns false when the session already left Active, which means another
// path won the race and the caller must not act on its own terminal.
func (r *Registry) Complete(h *Handle, state sitegen.SessionState) bool {
	if !state.Terminal() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.owns(h) || !h.entry.active() {
		return false
	}
	h.entry.set(state)
	return true
}

// Remove releases h's key. It is a no-op when the key was already released
// or now belongs to a newer session.
func (r *Registry) Remove(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.owns(h) {
		delete(r.sessions, h.Key)
	}
}

// State returns the current state of h's session.
func (r *Registry) State(h *Handle) sitegen.SessionState {
	return sitegen.SessionState(h.entry.state.Load())
}

// Len returns the number of held keys, settled sessions still finishing
// included.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Keys returns the held session keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.sessions))
	for k := range r.sessions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Shutdown cancels every active session and returns how many were cancelled.
// Settled sessions keep their keys until their workers call Remove.
func (r *Registry) Shutdown() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for key, e := range r.sessions {
		if !e.active() {
			continue
		}
		e.set(sitegen.SessionCancelled)
		e.cancel(sitegen.ErrStreamClosed)
		delete(r.sessions, key)
		n++
	}
	return n
}

// owns reports whether h is the registered session for its key. Callers hold mu.
func (r *Registry) owns(h *Handle) bool {
	e, ok := r.sessions[h.Key]
	return ok && e == h.entry
}
