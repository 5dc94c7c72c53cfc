package datalineage

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sells-group/lineage-cli/internal/resilience"
)

// Kind classifies a failed lineage API call.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindUnavailable
	KindNotFound
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth failure"
	case KindUnavailable:
		return "remote unavailable"
	case KindNotFound:
		return "not found"
	case KindMalformed:
		return "malformed response"
	default:
		return "unknown failure"
	}
}

// Error is returned by every Client method on failure.
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	// RetryDelay is the server's Retry-After hint, 0 when absent.
	RetryDelay time.Duration
	Err        error
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrAuth        = &Error{Kind: KindAuth}
	ErrUnavailable = &Error{Kind: KindUnavailable}
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrMalformed   = &Error{Kind: KindMalformed}
)

func (e *Error) Error() string {
	msg := "datalineage: "
	if e.Op != "" {
		msg += e.Op + ": "
	}
	msg += e.Kind.String()
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.StatusCode == 0 && t.Kind == e.Kind
}

// Retryable reports whether repeating the call may succeed. Only
// unavailability qualifies; without a status the transport error decides.
func (e *Error) Retryable() bool {
	if e.Kind != KindUnavailable {
		return false
	}
	switch e.StatusCode {
	case 0:
		return resilience.IsTransient(e.Err)
	case http.StatusNotImplemented, http.StatusHTTPVersionNotSupported:
		return false
	default:
		return true
	}
}

// RetryAfter returns the server-requested wait before the next attempt.
func (e *Error) RetryAfter() time.Duration {
	return e.RetryDelay
}

func kindForStatus(code int) Kind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusNotFound:
		return KindNotFound
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500:
		return KindUnavailable
	default:
		return KindUnknown
	}
}
