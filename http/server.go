package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fwojciec/sitegen"
	"github.com/fwojciec/sitegen/generate"
	sitegenjson "github.com/fwojciec/sitegen/json"
	"github.com/fwojciec/sitegen/log"
)

// Generator starts and stops generation sessions.
type Generator interface {
	Dispatch(ctx context.Context, req sitegen.GenerationRequest) (*generate.EventStream, error)
	Cancel(key string) error
	Active() int
}

var _ Generator = (*generate.Dispatcher)(nil)

// Server routes generation requests to a Generator.
type Server struct {
	gen     Generator
	logger  *log.Logger
	handler http.Handler
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a Server.
func NewServer(gen Generator, opts ...ServerOption) *Server {
	s := &Server{gen: gen, logger: log.Nop()}
	for _, o := range opts {
		o(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+PathGenerate, s.handleGenerate)
	mux.HandleFunc("GET "+PathStop, s.handleStop)
	mux.HandleFunc("GET "+PathHealth, s.handleHealth)
	s.handler = requestLogging(s.logger)(mux)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ownerID, err := parseOwner(q.Get("appId"))
	if err != nil {
		writeError(w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, fmt.Errorf("streaming unsupported"))
		return
	}

	req := sitegen.GenerationRequest{
		OwnerID: ownerID,
		Prompt:  q.Get("message"),
		Format:  sitegen.Format(q.Get("format")),
	}
	stream, err := s.gen.Dispatch(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			stream.Close()
			s.logger.Info("client disconnected", map[string]any{"session_key": stream.Key()})
			return
		case ev, ok := <-stream.Events():
			if !ok {
				return
			}
			if err := writeEvent(w, req.Format, ev); err != nil {
				stream.Close()
				s.logger.Warn("write event failed", map[string]any{"session_key": stream.Key(), "error": err.Error()})
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	ownerID, err := parseOwner(r.URL.Query().Get("appId"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.gen.Cancel(strconv.FormatInt(ownerID, 10)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Code: CodeOK, Data: true, Message: "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Code: CodeOK, Data: map[string]int{"active": s.gen.Active()}, Message: "ok"})
}

func parseOwner(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid appId %q: %w", raw, sitegen.ErrValidation)
	}
	return id, nil
}

// writeEvent writes one SSE frame. Named events get an event line; done
// carries an empty data line.
func writeEvent(w http.ResponseWriter, format sitegen.Format, ev sitegen.WireEvent) error {
	name, data, err := sitegenjson.EncodeWireEvent(format, ev)
	if err != nil {
		return err
	}
	if name != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", name); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

func requestLogging(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)
			logger.Info("http request", map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"app_id":      r.URL.Query().Get("appId"),
				"status":      sw.statusCode(),
				"bytes":       sw.bytes,
				"duration_ms": time.Since(start).Milliseconds(),
			})
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

func (w *statusWriter) statusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// Flush keeps SSE working through the wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
