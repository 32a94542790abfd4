package errors

import (
	"fmt"
)

// Error is the structured error type for grist.
// It carries a stable code, a category derived from the code, and the
// underlying cause for error chain support.
type Error struct {
	// Code is the unique error code (e.g., "ERR_201_STORE_IO").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Store, Embedder, ...).
	Category Category

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, enabling errors.Is with sentinel values
// created via New.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with the given code and message.
// The category is derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Cause:    cause,
	}
}

// Newf creates a new Error with a formatted message and no cause.
func Newf(code string, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Wrap creates an Error from an existing error.
// The error's message becomes the Error message. Returns nil for nil input.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// StoreError creates a store I/O error.
func StoreError(message string, cause error) *Error {
	return New(ErrCodeStoreIO, message, cause)
}

// EmbeddingError creates an embedding failure error.
func EmbeddingError(message string, cause error) *Error {
	return New(ErrCodeEmbeddingFailed, message, cause)
}

// ValidationError creates an input validation error.
func ValidationError(message string, cause error) *Error {
	return New(ErrCodeInvalidInput, message, cause)
}

// GetCode extracts the error code. Returns empty string for non-Error values.
func GetCode(err error) string {
	if ge, ok := err.(*Error); ok {
		return ge.Code
	}
	return ""
}

// GetCategory extracts the category. Returns empty string for non-Error values.
func GetCategory(err error) Category {
	if ge, ok := err.(*Error); ok {
		return ge.Category
	}
	return ""
}

// IsValidation reports whether err is a validation error. Callers use this
// to distinguish rejected input from backend failures.
func IsValidation(err error) bool {
	return GetCategory(err) == CategoryValidation
}
