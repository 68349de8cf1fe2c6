// Package errors defines the stable error codes for snapshot builds.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// InvalidInput indicates a malformed request or raw scan
	InvalidInput ErrorCode = "INVALID_INPUT"
	// MissingScan indicates a requested service/commit pair has no stored scan
	MissingScan ErrorCode = "MISSING_SCAN"
	// CyclicDependency indicates a dependency cycle among the requested services
	CyclicDependency ErrorCode = "CYCLIC_DEPENDENCY"
	// ScanParseError indicates stored or uploaded scan data could not be decoded
	ScanParseError ErrorCode = "SCAN_PARSE_ERROR"
	// StorageError indicates a database failure
	StorageError ErrorCode = "STORAGE_ERROR"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// BuildError is the error type surfaced by the scan and snapshot services.
// The code is stable; the message is for humans.
type BuildError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	cause   error
}

// New creates a BuildError with the given code and message.
func New(code ErrorCode, message string) *BuildError {
	return &BuildError{Code: code, Message: message}
}

// Newf creates a BuildError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *BuildError {
	return &BuildError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a BuildError that wraps an underlying cause.
func Wrap(code ErrorCode, message string, cause error) *BuildError {
	return &BuildError{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *BuildError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *BuildError) Unwrap() error {
	return e.cause
}

// IsCode reports whether err is (or wraps) a BuildError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var be *BuildError
	if stderrors.As(err, &be) {
		return be.Code == code
	}
	return false
}

// CodeOf extracts the error code from err, or InternalError when err carries none.
func CodeOf(err error) ErrorCode {
	var be *BuildError
	if stderrors.As(err, &be) {
		return be.Code
	}
	return InternalError
}
