// Package errdefs defines the error kinds shared by the control plane.
// Operations return *Error values so callers can branch on Kind without
// string matching, while still unwrapping to the underlying cause.
package errdefs

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure.
type Kind string

const (
	KindNotFound        Kind = "NOT_FOUND"
	KindConflict        Kind = "CONFLICT"
	KindInvalidState    Kind = "INVALID_STATE"
	KindForbidden       Kind = "FORBIDDEN"
	KindLimitExceeded   Kind = "LIMIT_EXCEEDED"
	KindBudgetExceeded  Kind = "BUDGET_EXCEEDED"
	KindDepthExceeded   Kind = "DEPTH_EXCEEDED"
	KindSelfReference   Kind = "SELF_REFERENCE"
	KindCycleDetected   Kind = "CYCLE_DETECTED"
	KindBlockerMissing  Kind = "BLOCKER_MISSING"
	KindBlockerTerminal Kind = "BLOCKER_TERMINAL"
	KindNotSubordinate  Kind = "NOT_SUBORDINATE"
	KindVersionMismatch Kind = "VERSION_MISMATCH"
	KindSchemaInvalid   Kind = "SCHEMA_INVALID"
	KindInvalidJSON     Kind = "INVALID_JSON"
	KindCorrupted       Kind = "CORRUPTED"
	KindWriteFailed     Kind = "WRITE_FAILED"
)

// Error is a classified failure. Message is safe to show to operators;
// Err, when set, holds the wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind that wraps cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the Kind carried by err, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func is(err error, kind Kind) bool { return KindOf(err) == kind }

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return New(KindConflict, format, args...)
}

func InvalidState(format string, args ...any) *Error {
	return New(KindInvalidState, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return New(KindForbidden, format, args...)
}

func LimitExceeded(format string, args ...any) *Error {
	return New(KindLimitExceeded, format, args...)
}

func BudgetExceeded(format string, args ...any) *Error {
	return New(KindBudgetExceeded, format, args...)
}

func DepthExceeded(format string, args ...any) *Error {
	return New(KindDepthExceeded, format, args...)
}

func SelfReference(format string, args ...any) *Error {
	return New(KindSelfReference, format, args...)
}

func CycleDetected(format string, args ...any) *Error {
	return New(KindCycleDetected, format, args...)
}

func BlockerMissing(format string, args ...any) *Error {
	return New(KindBlockerMissing, format, args...)
}

func BlockerTerminal(format string, args ...any) *Error {
	return New(KindBlockerTerminal, format, args...)
}

func NotSubordinate(format string, args ...any) *Error {
	return New(KindNotSubordinate, format, args...)
}

func VersionMismatch(format string, args ...any) *Error {
	return New(KindVersionMismatch, format, args...)
}

func SchemaInvalid(format string, args ...any) *Error {
	return New(KindSchemaInvalid, format, args...)
}

func InvalidJSON(format string, args ...any) *Error {
	return New(KindInvalidJSON, format, args...)
}

func Corrupted(format string, args ...any) *Error {
	return New(KindCorrupted, format, args...)
}

func WriteFailed(format string, args ...any) *Error {
	return New(KindWriteFailed, format, args...)
}

func IsNotFound(err error) bool        { return is(err, KindNotFound) }
func IsConflict(err error) bool        { return is(err, KindConflict) }
func IsInvalidState(err error) bool    { return is(err, KindInvalidState) }
func IsForbidden(err error) bool       { return is(err, KindForbidden) }
func IsLimitExceeded(err error) bool   { return is(err, KindLimitExceeded) }
func IsBudgetExceeded(err error) bool  { return is(err, KindBudgetExceeded) }
func IsDepthExceeded(err error) bool   { return is(err, KindDepthExceeded) }
func IsSelfReference(err error) bool   { return is(err, KindSelfReference) }
func IsCycleDetected(err error) bool   { return is(err, KindCycleDetected) }
func IsBlockerMissing(err error) bool  { return is(err, KindBlockerMissing) }
func IsBlockerTerminal(err error) bool { return is(err, KindBlockerTerminal) }
func IsNotSubordinate(err error) bool  { return is(err, KindNotSubordinate) }
func IsVersionMismatch(err error) bool { return is(err, KindVersionMismatch) }
func IsSchemaInvalid(err error) bool   { return is(err, KindSchemaInvalid) }
func IsInvalidJSON(err error) bool     { return is(err, KindInvalidJSON) }
func IsCorrupted(err error) bool       { return is(err, KindCorrupted) }
func IsWriteFailed(err error) bool     { return is(err, KindWriteFailed) }
