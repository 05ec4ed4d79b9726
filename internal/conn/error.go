package conn

import "fmt"

// FailureCause classifies why a connection attempt or an established
// connection failed.
type FailureCause int

const (
	CauseRefused FailureCause = iota
	CauseTLS
	CauseAuthRejected
	CauseHeartbeatTimeout
	CauseClosed
)

func (c FailureCause) String() string {
	switch c {
	case CauseRefused:
		return "connection refused"
	case CauseTLS:
		return "TLS handshake failed"
	case CauseAuthRejected:
		return "authentication rejected"
	case CauseHeartbeatTimeout:
		return "heartbeat timeout"
	case CauseClosed:
		return "connection closed"
	default:
		return "unknown"
	}
}

// ConnError is a connection failure. Auth rejection is fatal and ends
// the reconnect loop; every other cause is retried with backoff.
type ConnError struct {
	Cause FailureCause
	Err   error
}

func (e *ConnError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Cause, e.Err)
	}
	return e.Cause.String()
}

func (e *ConnError) Unwrap() error { return e.Err }

// Fatal reports whether reconnecting cannot help.
func (e *ConnError) Fatal() bool { return e.Cause == CauseAuthRejected }
