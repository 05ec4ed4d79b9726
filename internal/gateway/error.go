package gateway

import (
	"fmt"
	"net/http"
)

// ErrorKind classifies transport failures for retry policy.
type ErrorKind int

const (
	// KindTransient covers timeouts, connection failures and 5xx
	// responses. Safe to retry.
	KindTransient ErrorKind = iota
	// KindRejected covers auth failures and other 4xx responses. The
	// request will not succeed on retry.
	KindRejected
)

// Error is a typed transport error from the gateway.
type Error struct {
	Kind       ErrorKind
	Op         string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway %s: HTTP %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether the failure is worth retrying.
func (e *Error) Transient() bool { return e.Kind == KindTransient }

func classifyStatus(code int) ErrorKind {
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return KindRejected
	}
	if code >= 400 && code < 500 {
		return KindRejected
	}
	return KindTransient
}
