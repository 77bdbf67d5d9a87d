package domain

import (
	"errors"
	"fmt"
)

// ErrorType classifies a conversion failure
type ErrorType string

const (
	ErrorTypeMalformedInput  ErrorType = "malformed_input"
	ErrorTypeSchemaMissing   ErrorType = "schema_missing"
	ErrorTypeTypeMismatch    ErrorType = "type_mismatch"
	ErrorTypeIndexOutOfRange ErrorType = "index_out_of_range"
	ErrorTypeExportFailure   ErrorType = "export_failure"
	ErrorTypeSessionNotFound ErrorType = "session_not_found"
)

// ConversionError is returned by every stage of the extraction pipeline.
// All conversion errors are recoverable: callers report them and keep the session.
type ConversionError struct {
	Type    ErrorType              `json:"type"`
	Op      string                 `json:"op,omitempty"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Sentinels for errors.Is; matching is by Type only.
var (
	ErrMalformedInput  = &ConversionError{Type: ErrorTypeMalformedInput, Message: "malformed recognition result"}
	ErrSchemaMissing   = &ConversionError{Type: ErrorTypeSchemaMissing, Message: "schema missing"}
	ErrTypeMismatch    = &ConversionError{Type: ErrorTypeTypeMismatch, Message: "type mismatch"}
	ErrIndexOutOfRange = &ConversionError{Type: ErrorTypeIndexOutOfRange, Message: "index out of range"}
	ErrExportFailure   = &ConversionError{Type: ErrorTypeExportFailure, Message: "export failed"}
	ErrSessionNotFound = &ConversionError{Type: ErrorTypeSessionNotFound, Message: "session not found"}
)

// Error implements the error interface
func (e *ConversionError) Error() string {
	if e == nil {
		return "unknown conversion error"
	}
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, msg)
}

// Unwrap returns the underlying error
func (e *ConversionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is a ConversionError of the same type
func (e *ConversionError) Is(target error) bool {
	t, ok := target.(*ConversionError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Type == t.Type
}

// WithContext adds context to the error
func (e *ConversionError) WithContext(key string, value interface{}) *ConversionError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func newError(t ErrorType, op, message string) *ConversionError {
	return &ConversionError{Type: t, Op: op, Message: message}
}

// NewMalformedInputError reports an unrecognized or inconsistent raw result shape
func NewMalformedInputError(op, message string) *ConversionError {
	return newError(ErrorTypeMalformedInput, op, message)
}

// NewSchemaMissingError reports a schema-based strategy used without column names
func NewSchemaMissingError(op, message string) *ConversionError {
	return newError(ErrorTypeSchemaMissing, op, message)
}

// NewTypeMismatchError reports a value that cannot be coerced to its column kind
func NewTypeMismatchError(op, column, kind, value string) *ConversionError {
	return newError(ErrorTypeTypeMismatch, op,
		fmt.Sprintf("value %q is not a valid %s for column %q", value, kind, column)).
		WithContext("column", column).
		WithContext("kind", kind).
		WithContext("value", value)
}

// NewIndexOutOfRangeError reports an invalid row or column index
func NewIndexOutOfRangeError(op, what string, index, limit int) *ConversionError {
	return newError(ErrorTypeIndexOutOfRange, op,
		fmt.Sprintf("%s index %d out of range [0, %d]", what, index, limit)).
		WithContext("index", index).
		WithContext("limit", limit)
}

// NewExportFailureError reports a document that could not be produced
func NewExportFailureError(op, message string, cause error) *ConversionError {
	e := newError(ErrorTypeExportFailure, op, message)
	e.Cause = cause
	return e
}

// NewSessionNotFoundError reports an unknown session id
func NewSessionNotFoundError(id string) *ConversionError {
	return newError(ErrorTypeSessionNotFound, "session", fmt.Sprintf("session %s not found", id)).
		WithContext("session_id", id)
}

// GetErrorType returns the type of a conversion error, or "" for other errors
func GetErrorType(err error) ErrorType {
	var cErr *ConversionError
	if errors.As(err, &cErr) {
		return cErr.Type
	}
	return ""
}
