package mock

import (
	"context"
	"encoding/json"

	"github.com/fwojciec/sitegen"
)

// Interface compliance check.
var _ sitegen.ToolExecutor = (*ToolExecutor)(nil)

// ToolExecutor is a test double for sitegen.ToolExecutor.
// Set ExecuteFn before calling Execute.
type ToolExecutor struct {
	ExecuteFn func(ctx context.Context, name string, args json.RawMessage) (*sitegen.ToolResult, error)
}

// Execute delegates to ExecuteFn.
func (e *ToolExecutor) Execute(ctx context.Context, name string, args json.RawMessage) (*sitegen.ToolResult, error) {
	return e.ExecuteFn(ctx, name, args)
}
