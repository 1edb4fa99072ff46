// Package fault defines the error taxonomy the dispatcher normalizes every
// failure into. Nothing outside this taxonomy crosses the dispatch boundary.
package fault

import (
	"errors"
	"fmt"
	"time"
)

// Code identifies a failure class. Codes are stable strings because they end
// up verbatim in audit records and response envelopes.
type Code string

const (
	CodeRateLimited      Code = "rate_limited"
	CodePermissionDenied Code = "permission_denied"
	CodeUnknownTool      Code = "unknown_tool"
	CodeInvalidArgument  Code = "invalid_argument"
	CodeNotFound         Code = "not_found"
	CodeConflict         Code = "conflict"
	CodeUpstream         Code = "upstream"
)

// Fault is a classified failure. ResetAt is set only for rate_limited.
type Fault struct {
	Code    Code
	Message string
	ResetAt time.Time
	wrapped error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

func (f *Fault) Unwrap() error { return f.wrapped }

// New creates a Fault with the given code and message.
func New(code Code, format string, args ...any) *Fault {
	return &Fault{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error without losing it.
func Wrap(code Code, err error, msg string) *Fault {
	return &Fault{Code: code, Message: msg, wrapped: err}
}

// RateLimited creates a rate_limited fault carrying the window reset time.
func RateLimited(resetAt time.Time) *Fault {
	return &Fault{
		Code:    CodeRateLimited,
		Message: "rate limit exceeded",
		ResetAt: resetAt,
	}
}

// From classifies an arbitrary error. Existing faults pass through; anything
// else is treated as an upstream failure with its message surfaced.
func From(err error) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return &Fault{Code: CodeUpstream, Message: err.Error(), wrapped: err}
}

// CodeOf returns the fault code for err, or upstream for unclassified errors.
func CodeOf(err error) Code {
	return From(err).Code
}
