// Package http exposes generation sessions over HTTP: a server that streams
// wire events as server-sent events and a client that consumes them.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fwojciec/sitegen"
)

// Route paths.
const (
	PathGenerate = "/app/chat/gen/code"
	PathStop     = "/app/chat/gen/stop"
	PathHealth   = "/healthz"
)

// Envelope codes. A non-zero code is the HTTP status times 100.
const (
	CodeOK         = 0
	CodeBadRequest = 40000
	CodeNotFound   = 40400
	CodeConflict   = 40900
	CodeInternal   = 50000
	CodeShutdown   = 50300
)

// envelope is the JSON body of every non-streaming response.
type envelope struct {
	Code    int    `json:"code"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := mapError(err)
	writeJSON(w, status, envelope{Code: code, Message: err.Error()})
}

// mapError picks the HTTP status and envelope code for a domain error.
func mapError(err error) (int, int) {
	switch {
	case errors.Is(err, sitegen.ErrConfiguration), errors.Is(err, sitegen.ErrValidation):
		return http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, sitegen.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, sitegen.ErrConflict):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, sitegen.ErrStreamClosed):
		return http.StatusServiceUnavailable, CodeShutdown
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// errorFor is the inverse of mapError, used by the client.
func errorFor(status int) error {
	switch status {
	case http.StatusBadRequest:
		return sitegen.ErrValidation
	case http.StatusNotFound:
		return sitegen.ErrNotFound
	case http.StatusConflict:
		return sitegen.ErrConflict
	case http.StatusServiceUnavailable:
		return sitegen.ErrStreamClosed
	default:
		return sitegen.ErrUpstream
	}
}
