// Package apperr defines the typed error taxonomy shared by the core
// components. Handlers map a Kind to an HTTP status instead of matching
// error strings.
package apperr

import "fmt"

// Kind identifies the class of failure so callers can branch on it without
// inspecting error text.
type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindConflict             Kind = "conflict"
	KindAlreadyUsed          Kind = "already_used"
	KindExpired              Kind = "expired"
	KindInvalidState         Kind = "invalid_state"
	KindInvalidConfiguration Kind = "invalid_configuration"
	KindCollisionDetected    Kind = "collision_detected"
	KindValidation           Kind = "validation"
	KindForbidden            Kind = "forbidden"
	KindInternal             Kind = "internal"
)

// Error wraps a cause with a Kind and a user-facing message that never
// leaks store internals.
type Error struct {
	kind    Kind
	message string
	cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{kind: kind, message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{kind: kind, message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Kind() Kind { return e.kind }

// KindOf extracts the Kind of err, defaulting to KindInternal for untyped
// errors so the presenter layer always has something to switch on.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if asApperr(err, &ae) {
		return ae.kind
	}
	return KindInternal
}

func asApperr(err error, target **Error) bool {
	for err != nil {
		if ae, ok := err.(*Error); ok {
			*target = ae
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func NotFound(msg string) *Error    { return New(KindNotFound, msg) }
func Conflict(msg string) *Error    { return New(KindConflict, msg) }
func Validation(msg string) *Error  { return New(KindValidation, msg) }
func Forbidden(msg string) *Error   { return New(KindForbidden, msg) }
func Internal(msg string, cause error) *Error {
	return Wrap(KindInternal, msg, cause)
}
