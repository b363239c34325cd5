// Package sitegen streams AI-model output to clients while turning it into
// persisted source-code artifacts.
//
// The root package holds domain types and collaborator interfaces only.
// Adapters live in subpackages named after what they wrap: anthropic and
// gemini (providers), goldmark (code parser), fs and s3 (artifact writers),
// exec (project builder), redis (history sink), json (wire encoding and
// conversation memory), http (SSE transport). The generate package wires
// them into the streaming pipeline and session tracks live generations.
package sitegen
