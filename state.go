package sitegen

// SessionState is the lifecycle state of one stream session. A terminal state,
// once reached, is never left. Only the session registry transitions it.
type SessionState int32

const (
	SessionActive SessionState = iota
	SessionCompleted
	SessionCancelled
	SessionFailed
)

// Terminal reports whether s is Completed, Cancelled or Failed.
func (s SessionState) Terminal() bool {
	return s != SessionActive
}

func (s SessionState) String() string {
	switch s {
	case SessionActive:
		return "active"
	case SessionCompleted:
		return "completed"
	case SessionCancelled:
		return "cancelled"
	case SessionFailed:
		return "failed"
	default:
		return "unknown"
	}
}
