// Package resilience retries transient failures of calls into managed cloud services.
package resilience

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Retryable is implemented by errors that classify themselves. API errors
// that know their status and failure kind decide here instead of IsTransient.
type Retryable interface {
	Retryable() bool
}

// Delayer is implemented by errors that carry a server-requested wait.
type Delayer interface {
	RetryAfter() time.Duration
}

// TransientError marks an arbitrary error as safe to retry, optionally after
// a minimum delay.
type TransientError struct {
	Err   error
	Delay time.Duration
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Retryable always reports true.
func (e *TransientError) Retryable() bool {
	return true
}

// RetryAfter returns the minimum wait before the next attempt.
func (e *TransientError) RetryAfter() time.Duration {
	return e.Delay
}

// NewTransientError wraps err as transient. delay is 0 when the caller has
// no server hint.
func NewTransientError(err error, delay time.Duration) *TransientError {
	return &TransientError{Err: err, Delay: delay}
}

// IsTransient reports whether another attempt of the failed call may
// succeed. A self-classifying error in the chain decides; otherwise only
// transport failures that net/http surfaces for a dropped or stalled
// connection count. Cancellation never does.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var r Retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// RequestedDelay returns the largest server-requested wait in err's chain.
func RequestedDelay(err error) time.Duration {
	var d Delayer
	if errors.As(err, &d) {
		return d.RetryAfter()
	}
	return 0
}

// ParseRetryAfter reads a Retry-After header, either delay-seconds or an
// HTTP date. Missing, malformed or past values yield 0.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	at, err := http.ParseTime(v)
	if err != nil {
		return 0
	}
	if d := at.Sub(now); d > 0 {
		return d
	}
	return 0
}
