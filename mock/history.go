package mock

import (
	"context"

	"github.com/fwojciec/sitegen"
)

// Interface compliance checks.
var (
	_ sitegen.HistorySink = (*HistorySink)(nil)
	_ sitegen.MemoryStore = (*MemoryStore)(nil)
)

// HistorySink is a test double for sitegen.HistorySink.
type HistorySink struct {
	AppendFn func(ctx context.Context, ownerID int64, role sitegen.HistoryRole, text string) error
}

// Append delegates to AppendFn.
func (h *HistorySink) Append(ctx context.Context, ownerID int64, role sitegen.HistoryRole, text string) error {
	return h.AppendFn(ctx, ownerID, role, text)
}

// MemoryStore is a test double for sitegen.MemoryStore.
type MemoryStore struct {
	LoadFn func(ctx context.Context, key string) (sitegen.Conversation, error)
	SaveFn func(ctx context.Context, key string, conv sitegen.Conversation) error
}

// Load delegates to LoadFn.
func (m *MemoryStore) Load(ctx context.Context, key string) (sitegen.Conversation, error) {
	return m.LoadFn(ctx, key)
}

// Save delegates to SaveFn.
func (m *MemoryStore) Save(ctx context.Context, key string, conv sitegen.Conversation) error {
	return m.SaveFn(ctx, key, conv)
}
