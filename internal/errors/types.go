// Package errors defines the typed errors marklive uses to classify failures
// (transient source I/O, startup configuration, network binding, filesystem
// watch primitives) plus user-facing suggestions attached at the CLI
// boundary.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeWatch      ErrorType = "watch"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeSourceRead       = "ERR_SOURCE_READ"
	ErrCodeSourceMissing    = "ERR_SOURCE_MISSING"
	ErrCodeSourceConflict   = "ERR_SOURCE_CONFLICT"
	ErrCodeClipboard        = "ERR_CLIPBOARD"
	ErrCodeBind             = "ERR_BIND"
	ErrCodeServe            = "ERR_SERVE"
	ErrCodeWatchUnavailable = "ERR_WATCH_UNAVAILABLE"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeInvalidURL       = "ERR_INVALID_URL"
	ErrCodeInternalError    = "ERR_INTERNAL"
)

// Error is a structured error type with context.
type Error struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Path        string
	Context     map[string]interface{}
	Recoverable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.Path != "" {
		parts = append(parts, e.Path)
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same type and code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithPath records the filesystem path the error is about.
func (e *Error) WithPath(path string) *Error {
	e.Path = path

	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewIOError creates an I/O error. Source reads that fail while the watcher
// is running are retried on the next change, so they are recoverable.
func NewIOError(code, message string, cause error) *Error {
	return &Error{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewNetworkError creates a network error.
func NewNetworkError(code, message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeNetwork,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewWatchError creates a filesystem watch error. The watcher degrades to
// polling, so these are recoverable.
func NewWatchError(code, message string, cause error) *Error {
	return &Error{
		Type:        ErrorTypeWatch,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *Error {
	return &Error{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Recoverable
	}

	return false
}

// IsType reports whether err wraps an *Error of the given type.
func IsType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}

	return false
}
