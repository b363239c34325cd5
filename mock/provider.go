// Package mock provides test doubles for sitegen interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/sitegen"
)

// Interface compliance check.
var _ sitegen.Provider = (*Provider)(nil)

// Provider is a test double for sitegen.Provider.
// Set StreamFn before calling Stream.
type Provider struct {
	StreamFn func(ctx context.Context, req sitegen.ModelRequest) (sitegen.Stream, error)
}

// Stream delegates to StreamFn.
func (p *Provider) Stream(ctx context.Context, req sitegen.ModelRequest) (sitegen.Stream, error) {
	return p.StreamFn(ctx, req)
}
