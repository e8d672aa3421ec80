package tablepad

import (
	"errors"
	"fmt"
	"strings"
)

// Standard error messages and error creation functions for consistency
var (
	// ErrNoFile indicates that no file was chosen for upload
	ErrNoFile = errors.New("tablepad: no file chosen")

	// ErrNoExtension indicates that the file name contains no '.'
	ErrNoExtension = errors.New("tablepad: file name has no extension")

	// ErrUnrecognizedExtension indicates an extension outside .csv, .jsonl and .parquet
	ErrUnrecognizedExtension = errors.New("tablepad: unrecognized file extension")

	// ErrRead indicates that an uploaded file could not be read into memory
	ErrRead = errors.New("tablepad: failed to read file")

	// ErrEngine indicates a failure inside the engine (open, connect, query, copy)
	ErrEngine = errors.New("tablepad: engine failure")

	// ErrStorage indicates the persistent store could not be cleared
	ErrStorage = errors.New("tablepad: storage failure")

	// ErrActionFailed is the generic failure reported to the user for a workbench action
	ErrActionFailed = errors.New("tablepad: action failed")

	// ErrArtifactNotFound indicates an unknown or revoked export artifact
	ErrArtifactNotFound = errors.New("tablepad: artifact not found")
)

// ReadError is returned by the byte loader when a file cannot be read.
type ReadError struct {
	Name string
	Err  error
}

// Error implements error.
func (e *ReadError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: %v", ErrRead, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", ErrRead, e.Name, e.Err)
}

// Unwrap returns the underlying read failure.
func (e *ReadError) Unwrap() error {
	return e.Err
}

// Is reports ErrRead so callers can match the category.
func (e *ReadError) Is(target error) bool {
	return target == ErrRead
}

// IsInputRejected reports whether err means the upload was rejected before
// any engine session was opened.
func IsInputRejected(err error) bool {
	return errors.Is(err, ErrNoFile) ||
		errors.Is(err, ErrNoExtension) ||
		errors.Is(err, ErrUnrecognizedExtension)
}

// ErrorContext provides context for where an error occurred
type ErrorContext struct {
	Operation string
	FileName  string
	TableName string
	Details   string
}

// NewErrorContext creates a new error context
func NewErrorContext(operation, fileName string) *ErrorContext {
	return &ErrorContext{
		Operation: operation,
		FileName:  fileName,
	}
}

// WithTable adds table context to the error
func (ec *ErrorContext) WithTable(tableName string) *ErrorContext {
	ec.TableName = tableName
	return ec
}

// WithDetails adds details to the error context
func (ec *ErrorContext) WithDetails(details string) *ErrorContext {
	ec.Details = details
	return ec
}

// Error creates a formatted error with context
func (ec *ErrorContext) Error(baseErr error) error {
	var parts []string
	parts = append(parts, fmt.Sprintf("tablepad: %s failed", ec.Operation))

	if ec.FileName != "" {
		parts = append(parts, "file: "+ec.FileName)
	}

	if ec.TableName != "" {
		parts = append(parts, "table: "+ec.TableName)
	}

	if ec.Details != "" {
		parts = append(parts, "details: "+ec.Details)
	}

	context := strings.Join(parts, ", ")
	if baseErr != nil {
		return fmt.Errorf("%s: %w", context, baseErr)
	}
	return fmt.Errorf("%s", context)
}

// engineError tags err as an engine failure.
func engineError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrEngine, op, err)
}
