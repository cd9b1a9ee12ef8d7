// Package errors provides categorized errors with HTTP status mapping.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Category represents the broad class of an error
type Category string

const (
	// CategorySource represents failures reaching the Globus source
	CategorySource Category = "source"
	// CategoryStore represents local store (Postgres/ClickHouse/Redis) failures
	CategoryStore Category = "store"
	// CategoryValidation represents bad request input
	CategoryValidation Category = "validation"
	// CategoryNotFound represents missing resources
	CategoryNotFound Category = "not_found"
	// CategorySystem represents everything else (5xx)
	CategorySystem Category = "system"
)

// Error carries a category, a stable code and an HTTP status alongside the message.
type Error struct {
	Category   Category
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewSourceUnavailable marks the external source as unreachable or failing.
// Callers must not conflate this with an empty result.
func NewSourceUnavailable(cause error) *Error {
	return &Error{
		Category:   CategorySource,
		StatusCode: http.StatusBadGateway,
		Code:       "SOURCE_UNAVAILABLE",
		Message:    "globus source unreachable or query failed",
		Cause:      cause,
	}
}

// NewRowUpsertFailed wraps a single-row write failure. These are counted and
// logged during a sync run, never propagated to the caller.
func NewRowUpsertFailed(key string, cause error) *Error {
	return &Error{
		Category:   CategoryStore,
		StatusCode: http.StatusInternalServerError,
		Code:       "ROW_UPSERT_FAILED",
		Message:    fmt.Sprintf("failed to upsert fine %s", key),
		Details:    map[string]interface{}{"key": key},
		Cause:      cause,
	}
}

// NewStoreUnavailable marks the local store as fully unavailable.
func NewStoreUnavailable(operation string, cause error) *Error {
	return &Error{
		Category:   CategoryStore,
		StatusCode: http.StatusInternalServerError,
		Code:       "STORE_UNAVAILABLE",
		Message:    fmt.Sprintf("local store error during %s", operation),
		Details:    map[string]interface{}{"operation": operation},
		Cause:      cause,
	}
}

// NewInvalidParameter creates a bad-request error for a named parameter.
func NewInvalidParameter(param, reason string) *Error {
	return &Error{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_PARAMETER",
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details:    map[string]interface{}{"parameter": param, "reason": reason},
	}
}

// NewNotFound creates a not-found error.
func NewNotFound(resource, id string) *Error {
	return &Error{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found: %s", resource, id),
		Details:    map[string]interface{}{"resource": resource, "id": id},
	}
}

// NewInternal creates a generic internal error.
func NewInternal(message string, cause error) *Error {
	return &Error{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Cause:      cause,
	}
}

// IsSourceUnavailable reports whether err is (or wraps) a SOURCE_UNAVAILABLE error.
func IsSourceUnavailable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == "SOURCE_UNAVAILABLE"
}

// Categorize returns err as an *Error, wrapping unknown errors as internal.
func Categorize(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewInternal("unexpected error", err)
}
