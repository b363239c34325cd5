// Package json implements the JSON encodings of sitegen: the client-facing
// wire payloads and the on-disk conversation memory.
package json
