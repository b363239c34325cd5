package sitegen

import "context"

// HistoryRole tags a transcript entry.
type HistoryRole string

const (
	HistoryUser HistoryRole = "user"
	HistoryAI   HistoryRole = "ai"
)

// HistorySink receives the final transcript of a generation. The pipeline
// calls Append exactly once per request lifecycle.
type HistorySink interface {
	Append(ctx context.Context, ownerID int64, role HistoryRole, text string) error
}

// NopHistorySink discards transcripts.
type NopHistorySink struct{}

// Append does nothing.
func (NopHistorySink) Append(context.Context, int64, HistoryRole, string) error { return nil }

var _ HistorySink = NopHistorySink{}

// MemoryStore persists per-target conversations between generations.
// Load returns a zero Conversation when none exists yet.
type MemoryStore interface {
	Load(ctx context.Context, key string) (Conversation, error)
	Save(ctx context.Context, key string, c Conversation) error
}
