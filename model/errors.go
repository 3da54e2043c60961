package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies failures returned by the engine
type ErrorKind string

const (
	// ErrKindConflict duplicate username/mobile or rate contract
	ErrKindConflict ErrorKind = "conflict"
	// ErrKindNotFound missing party, admin, rate or reference
	ErrKindNotFound ErrorKind = "not_found"
	// ErrKindValidation rejected input
	ErrKindValidation ErrorKind = "validation"
	// ErrKindInternal unexpected storage or aggregation failure
	ErrKindInternal ErrorKind = "internal"
)

func (k ErrorKind) String() string {
	return string(k)
}

// Error is the typed failure carried back to the request layer
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Fields  []string  `json:"fields,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Fields) > 0 {
		msg = fmt.Sprintf("%s [%s]", msg, strings.Join(e.Fields, ","))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error of the same kind so errors.Is(err, ErrNotFound) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// sentinels for errors.Is checks
var (
	ErrConflict   = &Error{Kind: ErrKindConflict}
	ErrNotFound   = &Error{Kind: ErrKindNotFound}
	ErrValidation = &Error{Kind: ErrKindValidation}
	ErrInternal   = &Error{Kind: ErrKindInternal}
)

func NewConflictError(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrKindConflict, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrKindNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewValidationError lists the offending fields
func NewValidationError(message string, fields ...string) *Error {
	return &Error{Kind: ErrKindValidation, Message: message, Fields: fields}
}

// NewInternalError wraps an unexpected failure
func NewInternalError(cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: ErrKindInternal, Message: fmt.Sprintf(format, args...), cause: cause}
}

// ErrorKindOf resolves the kind of err through any wrapping, unknown errors are internal
func ErrorKindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindInternal
}
