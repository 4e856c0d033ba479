package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error carries an HTTP status and a stable machine code alongside the
// wrapped cause. Handlers map it straight onto the response envelope.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// NotFound: missing resources or resources not owned by the caller.
// Never retried.
func NotFound(code string, err error) *Error {
	return New(http.StatusNotFound, code, err)
}

// Conflict: duplicate rows (alert tuple, routine-product pair).
func Conflict(code string, err error) *Error {
	return New(http.StatusConflict, code, err)
}

// Invalid: rejected before any write.
func Invalid(code string, err error) *Error {
	return New(http.StatusBadRequest, code, err)
}

// Infra: backing store unreachable. Operations fail closed and the caller
// may retry with backoff.
func Infra(code string, err error) *Error {
	return New(http.StatusServiceUnavailable, code, err)
}

// StatusOf resolves err to an HTTP status, defaulting to 500.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// CodeOf resolves err to its machine code, defaulting to "internal".
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Code != "" {
		return ae.Code
	}
	return "internal"
}
