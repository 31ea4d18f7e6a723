package utils

import (
	"errors"
	"strings"
)

// Standardized APIError shape handed to collaborators (UI, receipt templating,
// export). Code is stable and machine-readable; Message is human-readable.
type APIError struct {
	Code    string `json:"code,omitempty"` // Application-specific error code
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// NewAPIError creates a new APIError instance
func NewAPIError(code string, message string, details string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Common Error Codes
const (
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeStateConflict    = "STATE_CONFLICT"
	ErrCodeIntegrityError   = "INTEGRITY_ERROR"
)

// Classification roots. Each service sentinel wraps exactly one of these so
// that ClassifyError can map any wrapped error chain to its code.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("state conflict")
	ErrIntegrity  = errors.New("integrity error")
)

// ClassifyError maps an error chain to the APIError collaborators consume.
// Errors that carry no classification root are treated as storage integrity
// failures.
func ClassifyError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return NewAPIError(ErrCodeNotFound, "requested record not found", err.Error())
	case errors.Is(err, ErrValidation):
		return NewAPIError(ErrCodeValidationFailed, "input validation failed", err.Error())
	case errors.Is(err, ErrConflict):
		return NewAPIError(ErrCodeStateConflict, "operation conflicts with current state", err.Error())
	default:
		return NewAPIError(ErrCodeIntegrityError, "storage integrity error", err.Error())
	}
}

// IsEmpty checks if a string is empty after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}
