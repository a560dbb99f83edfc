package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Type classifies a retrieval failure
type Type string

const (
	TypeNotFound    Type = "not_found"
	TypeRateLimited Type = "rate_limited"
	TypeTimeout     Type = "timeout"
	TypeUnexpected  Type = "unexpected"
)

// Error represents a classified retrieval failure
type Error struct {
	Type    Type
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// NotFound builds a NotFound error for a profile handle
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Type: TypeNotFound, Message: fmt.Sprintf(format, args...), Code: 404}
}

// RateLimited builds a RateLimited error
func RateLimited(format string, args ...interface{}) *Error {
	return &Error{Type: TypeRateLimited, Message: fmt.Sprintf(format, args...), Code: 429}
}

// Timeout builds a transient timeout error (DNS, connect, deadline)
func Timeout(format string, args ...interface{}) *Error {
	return &Error{Type: TypeTimeout, Message: fmt.Sprintf(format, args...)}
}

// Unexpected builds an error for any other failure mode
func Unexpected(format string, args ...interface{}) *Error {
	return &Error{Type: TypeUnexpected, Message: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err is a NotFound classification
func IsNotFound(err error) bool {
	return isType(err, TypeNotFound)
}

// IsRateLimited reports whether err is a RateLimited classification
func IsRateLimited(err error) bool {
	return isType(err, TypeRateLimited)
}

// IsTimeout reports whether err is a transient timeout classification
func IsTimeout(err error) bool {
	return isType(err, TypeTimeout)
}

func isType(err error, t Type) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// IsRetryable reports whether a failure of this type may succeed via
// another proxy endpoint. NotFound and RateLimited reflect server-side
// account state and are terminal.
func IsRetryable(t Type) bool {
	switch t {
	case TypeTimeout, TypeUnexpected:
		return true
	default:
		return false
	}
}

// RuntimeError is raised when every proxy attempt and the final direct
// attempt have been exhausted without producing a profile. It carries
// the per-attempt failure reasons for diagnostics.
type RuntimeError struct {
	Reasons []string
}

func (e *RuntimeError) Error() string {
	if len(e.Reasons) == 0 {
		return "profile retrieval failed: no data returned"
	}
	return "profile retrieval failed: " + strings.Join(e.Reasons, ", ")
}

// IsRuntime reports whether err is a total-exhaustion failure
func IsRuntime(err error) bool {
	var e *RuntimeError
	return errors.As(err, &e)
}
