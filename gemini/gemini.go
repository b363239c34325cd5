// Package gemini implements sitegen.Provider on the Google Gemini API via
// the genai SDK. The SDK's push iterator is pulled one chunk at a time and
// flattened into sitegen events.
package gemini

const (
	defaultModel     = "gemini-2.5-pro"
	defaultMaxTokens = 65536
)
