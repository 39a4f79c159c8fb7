// Package errors provides structured error types for cargo2hf.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the pipeline and the CLI
//   - Machine-readable error codes for the extraction report
//   - A single place that decides which failures abort a run
//
// # Error Codes
//
// The extraction taxonomy maps onto five codes:
//   - CONFIGURATION_ERROR: fatal, raised before anything is written
//   - RESOLUTION_ERROR: recorded, a dependency could not be located or parsed
//   - EXTRACTION_ERROR: recorded, one (phase, target) extractor failed
//   - SCHEMA_VIOLATION: fatal, an extractor broke its output contract
//   - WRITE_ERROR: fatal, the output sink could not be created or flushed
//
// # Usage
//
//	err := errors.New(errors.ErrCodeConfiguration, "no valid phases specified")
//	if errors.Fatal(err) {
//	    return err
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeWrite, origErr, "flush %s", file)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Extraction taxonomy
	ErrCodeConfiguration   Code = "CONFIGURATION_ERROR"
	ErrCodeResolution      Code = "RESOLUTION_ERROR"
	ErrCodeExtraction      Code = "EXTRACTION_ERROR"
	ErrCodeSchemaViolation Code = "SCHEMA_VIOLATION"
	ErrCodeWrite           Code = "WRITE_ERROR"
	ErrCodeNoOutput        Code = "NO_OUTPUT"

	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidPackage  Code = "INVALID_PACKAGE"
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"
	ErrCodeInvalidPath     Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodePackageNotFound Code = "PACKAGE_NOT_FOUND"

	// Network errors
	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeRateLimited Code = "RATE_LIMITED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

// Fatal reports whether err must abort an extraction run.
//
// Configuration, schema and write errors are fatal, as is anything that is
// not a structured *Error (context cancellation, programming errors).
// Resolution and extraction errors are absorbed into the run report.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	switch GetCode(err) {
	case ErrCodeResolution, ErrCodeExtraction:
		return false
	default:
		return true
	}
}

// RateLimitedError provides additional information for rate-limited responses.
type RateLimitedError struct {
	RetryAfter int // Seconds to wait before retrying
	Message    string
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: retry after %d seconds", e.RetryAfter)
	}
	return "rate limited"
}

// Code returns the error code for this error type.
func (e *RateLimitedError) Code() Code {
	return ErrCodeRateLimited
}
