// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Classifier failure taxonomy. Callers branch on these with errors.Is to pick
// a fallback path.
var (
	// ErrRateLimit means the provider refused the call due to rate limiting.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrNotConfigured means the capability has no usable credentials.
	ErrNotConfigured = errors.New("classifier not configured")
	// ErrTransient means the call failed but a retry may succeed.
	ErrTransient = errors.New("transient classifier error")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
