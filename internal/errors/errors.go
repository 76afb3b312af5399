// Package errors defines structured error types for the API and maps table
// errors to them.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/maruel/csvdb/internal/csvdb"
)

// ErrorCode defines specific error types for the API.
type ErrorCode string

const (
	// ErrValidationFailed is returned when input data fails validation
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrInvalidKey is returned when an identifier is empty or not numeric
	ErrInvalidKey ErrorCode = "INVALID_KEY"
	// ErrEmptyRecord is returned when a record holds no value
	ErrEmptyRecord ErrorCode = "EMPTY_RECORD"
	// ErrNoColumns is returned when writing to a table without header
	ErrNoColumns ErrorCode = "NO_COLUMNS"

	// ErrNotFound is returned when a record is not found
	ErrNotFound ErrorCode = "NOT_FOUND"
	// ErrIDExhausted is returned when no identifier can be allocated
	ErrIDExhausted ErrorCode = "ID_EXHAUSTED"

	// ErrTableUnusable is returned when the table file could not be loaded
	ErrTableUnusable ErrorCode = "TABLE_UNUSABLE"
	// ErrStorageError is returned when persisting the table failed
	ErrStorageError ErrorCode = "STORAGE_ERROR"

	// ErrInternal is returned when an unexpected server error occurs
	ErrInternal ErrorCode = "INTERNAL_ERROR"
	// ErrUnauthorized is returned when authentication is missing or invalid
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrRateLimited is returned when a client exceeded its request budget
	ErrRateLimited ErrorCode = "RATE_LIMITED"
)

// ErrorWithStatus is an error that includes an HTTP status code and error code.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
}

// APIError is a concrete error type with status code, code, and optional details.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// NewAPIError creates a new APIError with the given status code and message.
func NewAPIError(statusCode int, code ErrorCode, message string) *APIError {
	return &APIError{statusCode: statusCode, code: code, message: message}
}

// WithDetail adds a single detail to the error.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *APIError) Wrap(err error) *APIError {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Details returns additional error details.
func (e *APIError) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// NotFound creates a 404 Not Found error.
func NotFound(resource string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrNotFound, fmt.Sprintf("%s not found", resource))
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrValidationFailed, message)
}

// Unauthorized returns a 401 Unauthorized error.
func Unauthorized(message string) *APIError {
	return NewAPIError(http.StatusUnauthorized, ErrUnauthorized, message)
}

// Internal returns a 500 Internal Server Error.
func Internal(message string) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrInternal, message)
}

// FromTable converts an error returned by a csvdb.Table into an APIError.
//
// Validation errors map to 400, a missing record to 404, an exhausted key space
// to 409, and an unusable table or a failed write to 500. nil stays nil.
func FromTable(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var perr *csvdb.PersistError
	switch {
	case errors.Is(err, csvdb.ErrInvalidKey):
		return NewAPIError(http.StatusBadRequest, ErrInvalidKey, "invalid key").Wrap(err)
	case errors.Is(err, csvdb.ErrEmptyRecord):
		return NewAPIError(http.StatusBadRequest, ErrEmptyRecord, "empty record").Wrap(err)
	case errors.Is(err, csvdb.ErrNoColumns):
		return NewAPIError(http.StatusBadRequest, ErrNoColumns, "table has no columns").Wrap(err)
	case errors.Is(err, csvdb.ErrNotFound):
		return NotFound("record").Wrap(err)
	case errors.Is(err, csvdb.ErrIDExhausted):
		return NewAPIError(http.StatusConflict, ErrIDExhausted, "no identifier left").Wrap(err)
	case errors.Is(err, csvdb.ErrUnusable):
		return NewAPIError(http.StatusInternalServerError, ErrTableUnusable, "table unusable").Wrap(err)
	case errors.As(err, &perr):
		return NewAPIError(http.StatusInternalServerError, ErrStorageError, "failed to persist table").
			WithDetail("op", perr.Op).Wrap(err)
	default:
		return Internal("internal error").Wrap(err)
	}
}
