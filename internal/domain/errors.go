package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Missing   []string  `json:"missing,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput     = "INVALID_INPUT"
	ErrValidation       = "VALIDATION_ERROR"
	ErrIncompleteCase   = "INCOMPLETE_CASE"
	ErrNotFoundCode     = "NOT_FOUND"
	ErrInvalidStateCode = "INVALID_STATE"
	ErrNotification     = "NOTIFICATION_ERROR"
	ErrStorage          = "STORAGE_ERROR"
	ErrInternalServer   = "INTERNAL_SERVER_ERROR"
)

// Sentinel errors
var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidState         = errors.New("invalid clock state transition")
	ErrCaseAlreadyFinalized = errors.New("case already finalized for the active code")
	ErrDuplicateCase        = errors.New("case already recorded")
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Missing finalize preconditions, in report order
const (
	MissingNihss     = "nihss"
	MissingChecklist = "checklist"
	MissingAge       = "age"
	MissingWeight    = "weight"
)

// IncompleteCaseError is returned by finalize when the completeness gate fails.
// It is always recoverable by further data entry.
type IncompleteCaseError struct {
	Missing []string `json:"missing"`
}

// Error implements the error interface
func (e *IncompleteCaseError) Error() string {
	return fmt.Sprintf("case is incomplete, missing: %s", strings.Join(e.Missing, ", "))
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
