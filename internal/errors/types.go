package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeUsage      ErrorType = "usage"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeBuild      ErrorType = "build"
	ErrorTypeConfig     ErrorType = "config"
)

// BundlekitError is a structured error type with context.
type BundlekitError struct {
	Type     ErrorType
	Code     string
	Message  string
	Cause    error
	FilePath string
	Line     int
	Column   int
}

// Error implements the error interface.
func (e *BundlekitError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.FilePath != "" {
		location := e.FilePath
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
			if e.Column > 0 {
				location += fmt.Sprintf(":%d", e.Column)
			}
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *BundlekitError) Unwrap() error {
	return e.Cause
}

// Is matches on type and code.
func (e *BundlekitError) Is(target error) bool {
	var t *BundlekitError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithLocation adds file location information.
func (e *BundlekitError) WithLocation(filePath string, line, column int) *BundlekitError {
	e.FilePath = filePath
	e.Line = line
	e.Column = column

	return e
}

// NewUsageError creates an error for a caller that invoked an operation incorrectly.
func NewUsageError(code, message string) *BundlekitError {
	return &BundlekitError{
		Type:    ErrorTypeUsage,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *BundlekitError {
	return &BundlekitError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewBuildError creates a build error.
func NewBuildError(code, message string, cause error) *BundlekitError {
	return &BundlekitError{
		Type:    ErrorTypeBuild,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsType reports whether err is, or wraps, a BundlekitError of the given type.
func IsType(err error, errType ErrorType) bool {
	var e *BundlekitError
	if errors.As(err, &e) {
		return e.Type == errType
	}

	return false
}

// IsUsage reports whether err is a usage error.
func IsUsage(err error) bool {
	return IsType(err, ErrorTypeUsage)
}

// Common error codes.
const (
	CodeEntryRequired = "ENTRY_REQUIRED"
	CodeSassCompile   = "SASS_COMPILE"
	CodeBundleFailed  = "BUNDLE_FAILED"
	CodeInvalidPath   = "INVALID_PATH"
	CodePathTraversal = "PATH_TRAVERSAL"
	CodeInvalidConfig = "INVALID_CONFIG"
)

// ErrInvalidPath creates an invalid path error.
func ErrInvalidPath(path string) *BundlekitError {
	if path == "" {
		return NewValidationError(CodeInvalidPath, "empty path")
	}
	return NewValidationError(CodeInvalidPath, "invalid path: "+path)
}

// ErrPathTraversal creates a path traversal error.
func ErrPathTraversal(path string) *BundlekitError {
	return NewValidationError(CodePathTraversal, "path contains traversal: "+path)
}
