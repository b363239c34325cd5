package sitegen

import (
	"fmt"
	"strconv"
	"strings"
)

// GenerationRequest is one client-visible generation. It is not modified
// after dispatch.
type GenerationRequest struct {
	SessionKey string // empty = decimal OwnerID
	OwnerID    int64
	Prompt     string
	Format     Format
}

// Key returns the registry key for the request.
func (r GenerationRequest) Key() string {
	if r.SessionKey != "" {
		return r.SessionKey
	}
	return strconv.FormatInt(r.OwnerID, 10)
}

// Validate checks the request before any side effect. An unknown format
// yields ErrConfiguration; everything else ErrValidation.
func (r GenerationRequest) Validate() error {
	if !r.Format.Valid() {
		return fmt.Errorf("unsupported format %q: %w", r.Format, ErrConfiguration)
	}
	if r.OwnerID <= 0 {
		return fmt.Errorf("owner id must be positive, got %d: %w", r.OwnerID, ErrValidation)
	}
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("prompt must not be blank: %w", ErrValidation)
	}
	return nil
}

// ModelRequest carries model selection and generation parameters for one
// provider call. The provider uses its own defaults when fields are zero/nil.
type ModelRequest struct {
	Model        string // model ID, provider-specific; empty = provider default
	SystemPrompt string
	Messages     []Message
	Tools        []Tool
	MaxTokens    int      // 0 = provider default
	Temperature  *float64 // nil = provider default
}

// Validate checks universal constraints on ModelRequest.
func (r ModelRequest) Validate() error {
	if r.Temperature != nil {
		if *r.Temperature < 0 || *r.Temperature > 2 {
			return fmt.Errorf("temperature must be in [0, 2], got %g: %w", *r.Temperature, ErrValidation)
		}
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative, got %d: %w", r.MaxTokens, ErrValidation)
	}
	return nil
}
