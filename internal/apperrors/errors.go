// Package apperrors provides structured application errors with HTTP status mapping.
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for classification via errors.Is().
var (
	ErrConfig     = errors.New("configuration error")
	ErrNoJob      = errors.New("no job available")
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrInternal   = errors.New("internal error")
)

// Error provides structured error with context.
type Error struct {
	Sentinel error  // Wrapped sentinel for errors.Is() classification
	Message  string // Human-readable message
	Field    string // For validation errors (e.g., "evalFrequency")
	Resource string // For not found (e.g., "player")
	Op       string // Operation that failed (e.g., "league.getJobInfo")
	Cause    error  // Underlying error
}

// Error returns the human-readable error message.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the sentinel error for errors.Is() classification.
func (e *Error) Unwrap() error {
	return e.Sentinel
}

// Config creates a fatal configuration error. Configuration faults are not
// retried: training cannot proceed meaningfully until the operator fixes them.
func Config(message string) error {
	return &Error{
		Sentinel: ErrConfig,
		Message:  message,
	}
}

// NoJob creates an error for a league that produced no job for a greeting.
// The greeting is considered failed and the actor receives no dispatch.
func NoJob(playerID string, cause error) error {
	msg := fmt.Sprintf("league produced no job for player %s", playerID)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &Error{
		Sentinel: ErrNoJob,
		Message:  msg,
		Cause:    cause,
	}
}

// Validation creates a validation error for a specific field.
func Validation(field, message string) error {
	return &Error{
		Sentinel: ErrValidation,
		Message:  message,
		Field:    field,
	}
}

// NotFound creates a not found error for a resource.
func NotFound(resource, id string) error {
	return &Error{
		Sentinel: ErrNotFound,
		Message:  fmt.Sprintf("%s %s not found", resource, id),
		Resource: resource,
	}
}

// Internal creates an internal error wrapping an underlying cause.
func Internal(op string, cause error) error {
	return &Error{
		Sentinel: ErrInternal,
		Message:  fmt.Sprintf("%s: %v", op, cause),
		Op:       op,
		Cause:    cause,
	}
}
