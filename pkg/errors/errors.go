// Package errors provides structured error handling for the ingestor.
//
// Every failure crossing a package boundary is an *Error carrying an ErrorType.
// The type drives retry classification (see IsTransient) and shows up in the
// run report, so adapters should wrap driver errors as close to the call site
// as possible.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeConnection represents a destination that is unreachable or rejected authentication
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeIngestion represents a write, merge or insert that failed after retries
	ErrorTypeIngestion ErrorType = "ingestion"
	// ErrorTypeConfig represents malformed addresses or invalid rule definitions
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeDatabase represents a destination rejecting an operation
	ErrorTypeDatabase ErrorType = "database"
	// ErrorTypeData represents errors passed through from the content reader
	ErrorTypeData ErrorType = "data"
	// ErrorTypeIO represents local file errors
	ErrorTypeIO ErrorType = "io"
	// ErrorTypeInternal represents everything else
	ErrorTypeInternal ErrorType = "internal"
)

// transientMarkers are the message fragments that make a database error worth retrying.
var transientMarkers = []string{
	"timeout",
	"connection",
	"too many clients",
	"busy",
	"server selection",
	"connection reset",
	"service unavailable",
}

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf is New with a format string.
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsTransient reports whether err is expected to succeed if retried.
//
// Connection errors are always transient. Database errors are transient when
// their message mentions one of the well-known overload or network symptoms.
// Everything else, including errors that are not an *Error, is permanent.
func IsTransient(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	switch e.Type {
	case ErrorTypeConnection:
		return true
	case ErrorTypeDatabase:
		return hasTransientMarker(e.Error())
	default:
		return false
	}
}

func hasTransientMarker(msg string) bool {
	m := strings.ToLower(msg)
	for _, marker := range transientMarkers {
		if strings.Contains(m, marker) {
			return true
		}
	}
	return false
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// Is and As re-export the standard helpers so callers need a single import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target interface{}) bool { return errors.As(err, target) }

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
