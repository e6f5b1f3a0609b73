// Package errors provides structured error types for the registry join and
// aggregation pipeline. All errors carry a category, code, message, and
// retryable flag so the CLI and HTTP surfaces can report them consistently.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCategory classifies errors by pipeline stage.
type ErrorCategory string

const (
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategoryDataset    ErrorCategory = "DATASET"
	ErrCategoryStorage    ErrorCategory = "STORAGE"
	ErrCategoryIndex      ErrorCategory = "INDEX"
	ErrCategoryView       ErrorCategory = "VIEW"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Validation codes
	CodeInvalidConfig    = "INVALID_CONFIG"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeUnknownView      = "UNKNOWN_VIEW"
	CodeUnknownIndicator = "UNKNOWN_INDICATOR"

	// Dataset codes
	CodeDecodeFailed = "DECODE_FAILED"
	CodeEncodeFailed = "ENCODE_FAILED"

	// Storage codes
	CodeUploadFailed   = "UPLOAD_FAILED"
	CodeDownloadFailed = "DOWNLOAD_FAILED"
	CodeObjectNotFound = "OBJECT_NOT_FOUND"
	CodeUnavailable    = "STORAGE_UNAVAILABLE"

	// Index codes
	CodeSnapshotCorrupt  = "SNAPSHOT_CORRUPT"
	CodeSnapshotWrite    = "SNAPSHOT_WRITE_FAILED"
	CodeGeometryNotFound = "GEOMETRY_NOT_FOUND"

	// View codes
	CodeDatasetMissing = "DATASET_MISSING"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// Error is the structured error type used throughout the module.
type Error struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new Error.
func New(category ErrorCategory, code, message string) *Error {
	return &Error{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *Error {
	return &Error{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not an *Error.
func GetCategory(err error) ErrorCategory {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not an *Error.
func GetCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HTTPStatus maps an error chain to the status code the HTTP API answers with.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch {
	case e.Category == ErrCategoryValidation:
		return http.StatusBadRequest
	case e.Code == CodeGeometryNotFound, e.Code == CodeObjectNotFound:
		return http.StatusNotFound
	case e.Code == CodeDatasetMissing:
		return http.StatusServiceUnavailable
	case e.Retryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryStorage && code == CodeUploadFailed:
		return true
	case category == ErrCategoryStorage && code == CodeDownloadFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewValidationError(code, message string) *Error {
	return New(ErrCategoryValidation, code, message)
}

func NewDatasetError(code, message string, cause error) *Error {
	return Wrap(ErrCategoryDataset, code, message, cause)
}

func NewStorageError(code, message string, cause error) *Error {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewIndexError(code, message string, cause error) *Error {
	return Wrap(ErrCategoryIndex, code, message, cause)
}

func NewViewError(code, message string) *Error {
	return New(ErrCategoryView, code, message)
}

func NewInternalError(message string, cause error) *Error {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
