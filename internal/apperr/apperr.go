// Package apperr defines the typed errors returned by the bid and ownership
// workflows. Every business-rule failure is an *Error carrying a Kind that
// callers can switch on and render directly.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the machine-readable category of an error.
type Kind string

const (
	KindValidation         Kind = "VALIDATION_ERROR"
	KindConflict           Kind = "CONFLICT"
	KindExpired            Kind = "EXPIRED"
	KindInvalidTransition  Kind = "INVALID_TRANSITION"
	KindPermissionDenied   Kind = "PERMISSION_DENIED"
	KindNotFound           Kind = "NOT_FOUND"
	KindNoChange           Kind = "NO_CHANGE"
	KindPreconditionFailed Kind = "PRECONDITION_FAILED"
	KindNetwork            Kind = "NETWORK_ERROR"
	KindAuth               Kind = "AUTH_ERROR"
)

// Violation is a single field-level validation failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a typed workflow error.
type Error struct {
	Kind       Kind
	Message    string
	Violations []Violation
	// From and To are set for INVALID_TRANSITION (and PRECONDITION_FAILED
	// when the current status is known).
	From string
	To   string

	err error
}

func (e *Error) Error() string {
	if e.Kind == KindValidation && len(e.Violations) > 0 {
		msgs := make([]string, len(e.Violations))
		for i, v := range e.Violations {
			msgs[i] = v.Message
		}
		return "validation failed: " + strings.Join(msgs, "; ")
	}
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.err)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.err
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Validation builds a VALIDATION_ERROR from one or more violations.
func Validation(violations ...Violation) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Violations: violations}
}

// Conflict reports a uniqueness violation.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Expired reports an operation attempted past a validity window.
func Expired(format string, args ...any) *Error {
	return &Error{Kind: KindExpired, Message: fmt.Sprintf(format, args...)}
}

// InvalidTransition reports a state machine violation.
func InvalidTransition(from, to string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("cannot move bid from %s to %s", from, to),
		From:    from,
		To:      to,
	}
}

// PermissionDenied reports an actor lacking the required role or ownership.
func PermissionDenied(format string, args ...any) *Error {
	return &Error{Kind: KindPermissionDenied, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing entity.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// NoChange reports a write that would not change anything.
func NoChange(format string, args ...any) *Error {
	return &Error{Kind: KindNoChange, Message: fmt.Sprintf(format, args...)}
}

// PreconditionFailed reports a lost conditional write. The caller should
// re-read the entity and decide whether to try again.
func PreconditionFailed(current string, format string, args ...any) *Error {
	return &Error{Kind: KindPreconditionFailed, Message: fmt.Sprintf(format, args...), From: current}
}

// Network wraps a transport failure.
func Network(err error, format string, args ...any) *Error {
	return &Error{Kind: KindNetwork, Message: fmt.Sprintf(format, args...), err: err}
}

// Auth reports a missing or invalid credential.
func Auth(format string, args ...any) *Error {
	return &Error{Kind: KindAuth, Message: fmt.Sprintf(format, args...)}
}

// FromWire rebuilds an *Error from its JSON representation.
func FromWire(kind Kind, message string, violations []Violation, from, to string) *Error {
	return &Error{Kind: kind, Message: message, Violations: violations, From: from, To: to}
}
