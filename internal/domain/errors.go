package domain

import (
	"fmt"
)

// ErrTemplateNotFound is returned when no live template matches an id and version
type ErrTemplateNotFound struct {
	ID      string
	Version int64
}

func (e *ErrTemplateNotFound) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("template not found: %s (version %d)", e.ID, e.Version)
	}
	return fmt.Sprintf("template not found: %s", e.ID)
}

// ErrSessionNotFound is returned for unknown or evicted editor sessions
type ErrSessionNotFound struct {
	SessionID string
}

func (e *ErrSessionNotFound) Error() string {
	return fmt.Sprintf("editor session not found: %s", e.SessionID)
}

// ErrBlockNotFound is returned when an operation targets a block the document does not hold
type ErrBlockNotFound struct {
	BlockID string
}

func (e *ErrBlockNotFound) Error() string {
	return fmt.Sprintf("block not found: %s", e.BlockID)
}

// ValidationError represents an error that occurs due to invalid input or parameters
type ValidationError struct {
	Message string
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

// ErrRateLimited is returned when a caller exceeded a rate limit
type ErrRateLimited struct {
	Action     string
	RetryAfter int // seconds
}

func (e *ErrRateLimited) Error() string {
	return fmt.Sprintf("too many %s requests, retry in %d seconds", e.Action, e.RetryAfter)
}

// ErrFeatureDisabled is returned when an optional feature is not configured
type ErrFeatureDisabled struct {
	Feature string
}

func (e *ErrFeatureDisabled) Error() string {
	return fmt.Sprintf("%s is not configured", e.Feature)
}
