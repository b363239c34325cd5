package session_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fwojciec/sitegen"
	"github.com/fwojciec/sitegen/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Register(t *testing.T) {
	t.Parallel()

	t.Run("registers an active session", func(t *testing.T) {
		t.Parallel()
		r := session.NewRegistry()
		h, err := r.Register(context.Background(), "42")
		require.NoError(t, err)
		assert.Equal(t, "42", h.Key)
		assert.NotEmpty(t, h.ID)
		assert.Equal(t, sitegen.SessionActive, r.State(h))
		assert.Equal(t, []string{"42"}, r.Keys())
	})

	t.Run("rejects a second session for an active key", func(t *testing.T) {
		t.Parallel()
		r := session.NewRegistry()
		_, err := r.Register(context.Background(), "42")
		require.NoError(t, err)
		_, err = r.Register(context.Background(), "42")
		assert.ErrorIs(t, err, sitegen.ErrConflict)
		assert.Equal(t, 1, r.Len())
	})

	t.Run("context survives caller cancellation", func(t *testing.T) {
		t.Parallel()
		r := session.NewRegistry()
		parent, cancel := context.WithCancel(context.Background())
		h, err := r.Register(parent, "42")
		require.NoError(t, err)
		cancel()
		assert.NoError(t, h.Context().Err())
	})

	t.Run("settled key stays reserved until removed", func(t *testing.T) {
		t.Parallel()
		r := session.NewRegistry()
		h, err := r.Register(context.Background(), "42")
		require.NoError(t, err)
		require.True(t, r.Complete(h, sitegen.SessionCompleted))

		_, err = r.Register(context.Background(), "42")
		assert.ErrorIs(t, err, sitegen.ErrConflict)
		assert.Equal(t, []string{"42"}, r.Keys())

		r.Remove(h)
		h2, err := r.Register(context.Background(), "42")
		require.NoError(t, err)
		assert.NotEqual(t, h.ID, h2.ID)
	})
}

func TestRegistry_Cancel(t *testing.T) {
	t.Parallel()

	t.Run("cancels context and removes entry", func(t *testing.T) {
		t.Parallel()
		r := session.NewRegistry()
		h, err := r.Register(context.Background(), "42")
		require.NoError(t, err)

		require.NoError(t, r.Cancel("42"))

		assert.Equal(t, sitegen.SessionCancelled, r.State(h))
		assert.ErrorIs(t, h.Context().Err(), context.Canceled)
		assert.ErrorIs(t, context.Cause(h.Context()), sitegen.ErrStreamClosed)
		assert.Zero(t, r.Len())
	})

	t.Run("unknown key is not found", func(t *testing.T) {
		t.Parallel()
		r := session.NewRegistry()
		assert.ErrorIs(t, r.Cancel("missing"), sitegen.ErrNotFound)
	})

	t.Run("second cancel is not found", func(t *testing.T) {
		t.Parallel()
		r := session.NewRegistry()
		_, err := r.Register(context.Background(), "42")
		require.NoError(t, err)
		require.NoError(t, r.Cancel("42"))
		assert.ErrorIs(t, r.Cancel("42"), sitegen.ErrNotFound)
	})

	t.Run("after completion is not found", func(t *testing.T) {
		t.Parallel()
		r := session.NewRegistry()
		h, err := r.Register(context.Background(), "42")
		require.NoError(t, err)
		require.True(t, r.Complete(h, sitegen.SessionCompleted))
		assert.ErrorIs(t, r.Cancel("42"), sitegen.ErrNotFound)
		assert.Equal(t, sitegen.SessionCompleted, r.State(h))
	})
}

func TestRegistry_CancelHandle(t *testing.T) {
	t.Parallel()

	t.Run("stale handle never cancels a newer session", func(t *testing.T) {
		t.Parallel()
		r := session.NewRegistry()
		old, err := r.Register(context.Background(), "42")
		require.NoError(t, err)
		require.True(t, r.Complete(old, sitegen.SessionFailed))
		r.Remove(old)

		current, err := r.Register(context.Background(), "42")
		require.NoError(t, err)

		assert.False(t, r.CancelHandle(old))
		assert.Equal(t, sitegen.SessionActive, r.State(current))
		assert.NoError(t, current.Context().Err())
	})

	t.Run("cancels own session", func(t *testing.T) {
		t.Parallel()
		r := session.NewRegistry()
		h, err := r.Register(context.Background(), "42")
		require.NoError(t, err)
		assert.True(t, r.CancelHandle(h))
		assert.Equal(t, sitegen.SessionCancelled, r.State(h))
	})

	t.Run("settled session is not cancelled", func(t *testing.T) {
		t.Parallel()
		r := session.NewRegistry()
		h, err := r.Register(context.Background(), "42")
		require.NoError(t, err)
		require.True(t, r.Complete(h, sitegen.SessionCompleted))
		assert.False(t, r.CancelHandle(h))
		assert.Equal(t, sitegen.SessionCompleted, r.State(h))
		assert.NoError(t, h.Context().Err())
	})
}

func TestRegistry_Remove(t *testing.T) {
	t.Parallel()

	t.Run("stale handle leaves a newer session", func(t *testing.T) {
		t.Parallel()
		r := session.NewRegistry()
		old, err := r.Register(context.Background(), "42")
		require.NoError(t, err)
		require.NoError(t, r.Cancel("42"))
		current, err := r.Register(context.Background(), "42")
		require.NoError(t, err)

		r.Remove(old)
		assert.Equal(t, []string{"42"}, r.Keys())
		r.Remove(current)
		assert.Zero(t, r.Len())
	})
}

func TestRegistry_Complete(t *testing.T) {
	t.Parallel()

	t.Run("terminal state is never left", func(t *testing.T) {
		t.Parallel()
		r := session.NewRegistry()
		h, err := r.Register(context.Background(), "42")
		require.NoError(t, err)
		require.NoError(t, r.Cancel("42"))
		assert.False(t, r.Complete(h, sitegen.SessionCompleted))
		assert.Equal(t, sitegen.SessionCancelled, r.State(h))
	})

	t.Run("rejects non-terminal target", func(t *testing.T) {
		t.Parallel()
		r := session.NewRegistry()
		h, err := r.Register(context.Background(), "42")
		require.NoError(t, err)
		assert.False(t, r.Complete(h, sitegen.SessionActive))
		assert.Equal(t, 1, r.Len())
	})

	t.Run("exactly one of concurrent cancel and complete wins", func(t *testing.T) {
		t.Parallel()
		for i := 0; i < 200; i++ {
			r := session.NewRegistry()
			h, err := r.Register(context.Background(), "42")
			require.NoError(t, err)

			var wins atomic.Int32
			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				if r.Cancel("42") == nil {
					wins.Add(1)
				}
			}()
			go func() {
				defer wg.Done()
				if r.Complete(h, sitegen.SessionCompleted) {
					wins.Add(1)
				}
			}()
			wg.Wait()

			require.Equal(t, int32(1), wins.Load())
			assert.True(t, r.State(h).Terminal())
			assert.ErrorIs(t, r.Cancel("42"), sitegen.ErrNotFound)
			r.Remove(h)
			assert.Zero(t, r.Len())
		}
	})
}

func TestRegistry_Shutdown(t *testing.T) {
	t.Parallel()
	r := session.NewRegistry()
	a, err := r.Register(context.Background(), "1")
	require.NoError(t, err)
	b, err := r.Register(context.Background(), "2")
	require.NoError(t, err)
	settled, err := r.Register(context.Background(), "3")
	require.NoError(t, err)
	require.True(t, r.Complete(settled, sitegen.SessionCompleted))

	assert.Equal(t, 2, r.Shutdown())
	assert.Error(t, a.Context().Err())
	assert.Error(t, b.Context().Err())
	assert.Equal(t, sitegen.SessionCancelled, r.State(a))
	assert.Equal(t, sitegen.SessionCompleted, r.State(settled))
	assert.Equal(t, []string{"3"}, r.Keys())

	r.Remove(settled)
	assert.Zero(t, r.Len())
}
