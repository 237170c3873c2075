// Package errs holds the error kinds shared by services and mapped to
// transport status codes.
package errs

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("invalid state transition")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnavailable     = errors.New("backend unavailable")
)

// RateLimitError carries the wait hint of a denied attempt. It matches
// ErrRateLimited with errors.Is.
type RateLimitError struct {
	Class      string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: %s, retry after %s", e.Class, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// RetryAfterSec rounds the wait hint up to whole seconds, minimum one.
func (e *RateLimitError) RetryAfterSec() int64 {
	sec := int64(e.RetryAfter / time.Second)
	if e.RetryAfter%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}

func AsRateLimit(err error) (*RateLimitError, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}
