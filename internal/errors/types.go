// Package errors provides the structured error type shared by quill's
// content, index, and HTTP layers.
//
// Errors carry a coarse Type for handling decisions (an I/O failure while
// rendering a post is request-scoped, a config error stops startup), a stable
// Code for logs, and the content file path when one is involved.
package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeFileNotFound     = "ERR_FILE_NOT_FOUND"
	ErrCodeFileRead         = "ERR_FILE_READ"
	ErrCodePermissionDenied = "ERR_PERMISSION_DENIED"
	ErrCodeDirectoryRead    = "ERR_DIRECTORY_READ"
	ErrCodePostNotFound     = "ERR_POST_NOT_FOUND"
	ErrCodeRenderFailed     = "ERR_RENDER_FAILED"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeValidationFailed = "ERR_VALIDATION_FAILED"
	ErrCodeInternalError    = "ERR_INTERNAL"
)

// QuillError is a structured error type with context.
type QuillError struct {
	Type      ErrorType
	Code      string
	Message   string
	Cause     error
	Context   map[string]interface{}
	Component string
	Path      string
}

// Error implements the error interface.
func (e *QuillError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
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
func (e *QuillError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *QuillError) Is(target error) bool {
	var t *QuillError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *QuillError) WithContext(key string, value interface{}) *QuillError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithPath records the content file the error concerns.
func (e *QuillError) WithPath(path string) *QuillError {
	e.Path = path

	return e
}

// WithComponent adds component context.
func (e *QuillError) WithComponent(component string) *QuillError {
	e.Component = component

	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *QuillError {
	return &QuillError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *QuillError {
	return &QuillError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewNotFoundError creates a not-found error.
func NewNotFoundError(code, message string) *QuillError {
	return &QuillError{
		Type:    ErrorTypeNotFound,
		Code:    code,
		Message: message,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *QuillError {
	return &QuillError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *QuillError {
	return &QuillError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsIOError checks if an error is I/O related.
func IsIOError(err error) bool {
	var qe *QuillError
	if errors.As(err, &qe) {
		return qe.Type == ErrorTypeIO
	}

	return false
}

// IsNotFound reports whether err is a quill not-found error or wraps a
// missing-file error from the filesystem.
func IsNotFound(err error) bool {
	var qe *QuillError
	if errors.As(err, &qe) {
		if qe.Type == ErrorTypeNotFound || qe.Code == ErrCodeFileNotFound {
			return true
		}
	}

	return errors.Is(err, fs.ErrNotExist)
}

// IsConfigError checks if an error is configuration related.
func IsConfigError(err error) bool {
	var qe *QuillError
	if errors.As(err, &qe) {
		return qe.Type == ErrorTypeConfig
	}

	return false
}
