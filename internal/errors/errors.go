package errors

import (
	"errors"
	"fmt"
)

// Common error types for the RFI service
var (
	// Startup errors
	ErrConfiguration = errors.New("configuration error")

	// Authentication errors
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrStateMismatch          = errors.New("oauth state does not match a pending session")
	ErrInvalidTransition      = errors.New("invalid authentication state transition")

	// Storage errors
	ErrStoreUnavailable = errors.New("backing store unavailable")
	ErrNotFound         = errors.New("not found")

	// Request errors
	ErrInvalidRequest = errors.New("invalid request")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
