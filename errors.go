package sitegen

import "errors"

// Sentinel errors for common failure modes. Callers wrap them with
// fmt.Errorf("...: %w", ErrX) and test with errors.Is.
var (
	// ErrConfiguration indicates an unknown or unsupported output format.
	// It is returned before any session is registered.
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation indicates a request, message or generated artifact failed
	// validation (blank content, zero recovered files).
	ErrValidation = errors.New("validation error")

	// ErrIO indicates a storage write failed.
	ErrIO = errors.New("io error")

	// ErrUpstream indicates the generation client failed mid-stream.
	ErrUpstream = errors.New("upstream error")

	// ErrBuild indicates the post-process build failed. It is logged, never
	// returned to stream consumers.
	ErrBuild = errors.New("build error")

	// ErrConflict indicates a session is already active for the key.
	ErrConflict = errors.New("session already active")

	// ErrNotFound indicates no active session exists for the key.
	ErrNotFound = errors.New("no active session")

	// ErrStreamClosed indicates an operation on a closed stream.
	ErrStreamClosed = errors.New("stream closed")

	// ErrToolNotFound indicates the requested tool does not exist.
	ErrToolNotFound = errors.New("tool not found")
)
