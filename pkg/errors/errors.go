// Package errors provides structured error handling for battkit
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeSchema represents column schema errors
	ErrorTypeSchema ErrorType = "schema"
	// ErrorTypeMetadata represents metadata document errors
	ErrorTypeMetadata ErrorType = "metadata"
	// ErrorTypeDataset represents dataset structure errors
	ErrorTypeDataset ErrorType = "dataset"
	// ErrorTypeContainer represents on-disk container errors
	ErrorTypeContainer ErrorType = "container"
	// ErrorTypeStreaming represents streaming writer/reader errors
	ErrorTypeStreaming ErrorType = "streaming"
	// ErrorTypeCapability represents operations a format does not support
	ErrorTypeCapability ErrorType = "capability"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeFile represents file operation errors
	ErrorTypeFile ErrorType = "file"
)

// Code identifies the specific condition within an error type.
type Code string

// Schema codes
const (
	CodeMissingColumn         Code = "missing_column"
	CodeTypeMismatch          Code = "type_mismatch"
	CodeMonotonicityViolation Code = "monotonicity_violation"
	CodeDuplicateColumn       Code = "duplicate_column"
	CodeSchemaConflict        Code = "schema_conflict"
	CodeUndocumentedColumn    Code = "undocumented_column"
	CodeRaggedArray           Code = "ragged_array"
)

// Metadata codes
const (
	CodeInvalidMetadataField     Code = "invalid_metadata_field"
	CodeUnsupportedSchemaVersion Code = "unsupported_schema_version"
	CodeMetadataConflict         Code = "metadata_conflict"
)

// Dataset codes
const (
	CodeUnknownTable           Code = "unknown_table"
	CodeOrphanSchema           Code = "orphan_schema"
	CodeMissingSchema          Code = "missing_schema"
	CodeTemplateColumnMismatch Code = "template_column_mismatch"
)

// Container codes
const (
	CodeContainerExists    Code = "container_exists"
	CodeCorruptContainer   Code = "corrupt_container"
	CodeSchemaDataMismatch Code = "schema_data_mismatch"
	CodeUnknownKeyPrefix   Code = "unknown_key_prefix"
)

// Streaming codes
const (
	CodeWriterClosed   Code = "writer_closed"
	CodeSchemaMismatch Code = "schema_mismatch"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Code    Code
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
	switch {
	case e.Cause != nil && e.Code != "":
		return fmt.Sprintf("%s/%s: %s: %v", e.Type, e.Code, e.Message, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	case e.Code != "":
		return fmt.Sprintf("%s/%s: %s", e.Type, e.Code, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
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

// New creates a new error with the given type, code and message
func New(errType ErrorType, code Code, message string) *Error {
	return &Error{
		Type:    errType,
		Code:    code,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, code Code, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, code Code, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Code:    code,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// IsCode checks if the error carries the given condition code
func IsCode(err error, code Code) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

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
