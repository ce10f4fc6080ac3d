package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorKind classifies expected business failures so the HTTP boundary can
// turn them into a {success:false, message} result instead of a fault.
type ErrorKind string

const (
	ErrorKindValidation        ErrorKind = "validation"
	ErrorKindInvalidState      ErrorKind = "invalid_state"
	ErrorKindInvalidTransition ErrorKind = "invalid_transition"
	ErrorKindInsufficientStock ErrorKind = "insufficient_stock"
	ErrorKindNotFound          ErrorKind = "not_found"
	ErrorKindConflict          ErrorKind = "conflict"
	ErrorKindUnknown           ErrorKind = "unknown"
)

// DomainError is an expected business failure. Message must be safe to show
// to the end user as-is.
type DomainError struct {
	Kind    ErrorKind
	Message string
}

func (e *DomainError) Error() string { return e.Message }

func newDomainError(kind ErrorKind, format string, args ...interface{}) error {
	return &DomainError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func ValidationErrorf(format string, args ...interface{}) error {
	return newDomainError(ErrorKindValidation, format, args...)
}

func InvalidStateErrorf(format string, args ...interface{}) error {
	return newDomainError(ErrorKindInvalidState, format, args...)
}

func InvalidTransitionErrorf(format string, args ...interface{}) error {
	return newDomainError(ErrorKindInvalidTransition, format, args...)
}

func InsufficientStockErrorf(format string, args ...interface{}) error {
	return newDomainError(ErrorKindInsufficientStock, format, args...)
}

func NotFoundErrorf(format string, args ...interface{}) error {
	return newDomainError(ErrorKindNotFound, format, args...)
}

func ConflictErrorf(format string, args ...interface{}) error {
	return newDomainError(ErrorKindConflict, format, args...)
}

// KindOf reports the classification of err. Plain errors (driver faults,
// context cancellation, broken invariants) come back as unknown and must not
// be surfaced verbatim to users.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, ErrorRecordNotFound) {
		return ErrorKindNotFound
	}
	return ErrorKindUnknown
}

// IsDomainError reports whether err is safe to show to the caller.
func IsDomainError(err error) bool {
	k := KindOf(err)
	return k != ErrorKindUnknown && k != ""
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
