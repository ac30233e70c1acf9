package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnauthorized is returned when a request carries no valid credentials
var ErrUnauthorized = errors.New("unauthorized")

// ValidationError represents an error that occurs due to invalid input or parameters
type ValidationError struct {
	Message string
	// Fields holds per property failures when the input was a block edit
	Fields map[string]string
}

// Error implements the error interface
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NewValidationError creates a new validation error with the given message
func NewValidationError(message string) error {
	return ValidationError{
		Message: message,
	}
}

// PermissionError is returned when a user acts on a template owned by someone else
type PermissionError struct {
	Message string `json:"message"`
}

func (e *PermissionError) Error() string {
	return e.Message
}

func NewPermissionError(message string) *PermissionError {
	return &PermissionError{Message: message}
}

// RateLimitError is returned when a user exceeds a per user quota
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return e.Message
}
