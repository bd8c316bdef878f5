package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Standard error types that can be used throughout the application
var (
	// Standard error sentinel values
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInternalError     = errors.New("internal error")
	ErrTimeout           = errors.New("operation timed out")
	ErrUnavailable       = errors.New("service unavailable")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrCanceled          = errors.New("operation canceled")

	// Domain-specific error sentinel values
	ErrInvalidSession     = errors.New("invalid recording session")
	ErrScriptGeneration   = errors.New("script generation failed")
	ErrSynthesisFailed    = errors.New("speech synthesis failed")
	ErrSynthesisTimeout   = errors.New("speech synthesis timed out")
	ErrSynthesisTransport = errors.New("speech synthesis connection failed")
	ErrAudioTooSmall      = errors.New("audio response implausibly small")
	ErrNetworkFailure     = errors.New("network failure")
)

// Error represents a structured error with caller location and additional context
type Error struct {
	// original is the underlying error
	original error

	// message is the error message
	message string

	// fields contains contextual information
	fields map[string]interface{}

	// file and line record where the error was created
	file string
	line int

	// Code is an optional error code for categorization
	Code string
}

// New creates a new structured error with the given message
func New(message string, fields ...map[string]interface{}) *Error {
	_, file, line, _ := runtime.Caller(1)

	var fieldMap map[string]interface{}
	if len(fields) > 0 && fields[0] != nil {
		fieldMap = fields[0]
	} else {
		fieldMap = make(map[string]interface{})
	}

	return &Error{
		original: errors.New(message),
		message:  message,
		fields:   fieldMap,
		file:     file,
		line:     line,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, message string, fields ...map[string]interface{}) *Error {
	if err == nil {
		return nil
	}

	_, file, line, _ := runtime.Caller(1)

	var fieldMap map[string]interface{}
	if len(fields) > 0 && fields[0] != nil {
		fieldMap = fields[0]
	} else {
		fieldMap = make(map[string]interface{})
	}

	return &Error{
		original: err,
		message:  message,
		fields:   fieldMap,
		file:     file,
		line:     line,
	}
}

// WithField adds a single field to the error context
func (e *Error) WithField(key string, value interface{}) *Error {
	if e == nil {
		return nil
	}

	// Create a copy to avoid modifying the original
	result := &Error{
		original: e.original,
		message:  e.message,
		fields:   make(map[string]interface{}, len(e.fields)+1),
		file:     e.file,
		line:     e.line,
		Code:     e.Code,
	}

	for k, v := range e.fields {
		result.fields[k] = v
	}
	result.fields[key] = value

	return result
}

// WithFields adds multiple fields to the error context
func (e *Error) WithFields(fields map[string]interface{}) *Error {
	if e == nil {
		return nil
	}

	result := &Error{
		original: e.original,
		message:  e.message,
		fields:   make(map[string]interface{}, len(e.fields)+len(fields)),
		file:     e.file,
		line:     e.line,
		Code:     e.Code,
	}

	for k, v := range e.fields {
		result.fields[k] = v
	}
	for k, v := range fields {
		result.fields[k] = v
	}

	return result
}

// WithCode adds an error code to the error
func (e *Error) WithCode(code string) *Error {
	if e == nil {
		return nil
	}

	return &Error{
		original: e.original,
		message:  e.message,
		fields:   e.fields,
		file:     e.file,
		line:     e.line,
		Code:     code,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil || e.original == nil {
		return ""
	}

	if e.message == "" {
		return e.original.Error()
	}

	// Include both our message and the original error
	return fmt.Sprintf("%s: %v", e.message, e.original)
}

// Unwrap implements the errors.Unwrap interface
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.original
}

// Location returns the file:line where the error was created
func (e *Error) Location() string {
	if e == nil {
		return ""
	}

	parts := strings.Split(e.file, "/")
	filename := parts[len(parts)-1]

	return fmt.Sprintf("%s:%d", filename, e.line)
}

// GetFields returns the error's context fields
func (e *Error) GetFields() map[string]interface{} {
	if e == nil {
		return nil
	}
	return e.fields
}

// GetCode returns the error's code
func (e *Error) GetCode() string {
	if e == nil {
		return ""
	}
	return e.Code
}

// Is reports whether any error in err's tree matches target.
// Implements the errors.Is interface.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	return errors.Is(e.original, target)
}

// AsJSON returns a map representation of the error suitable for JSON responses
func (e *Error) AsJSON() map[string]interface{} {
	if e == nil {
		return nil
	}

	result := map[string]interface{}{
		"error": e.Error(),
	}
	if e.Code != "" {
		result["code"] = e.Code
	}
	for k, v := range e.fields {
		result[k] = v
	}
	return result
}

// Is is a convenience passthrough to the standard library
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience passthrough to the standard library
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
