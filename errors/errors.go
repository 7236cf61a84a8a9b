// Package errors provides standardized error handling patterns for SpoolKit.
// It includes error classification, standard error variables, and helper
// functions for consistent error wrapping across the bootstrapper.
package errors

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorInvalid represents errors due to invalid input or configuration
	ErrorInvalid ErrorClass = iota
	// ErrorAccess represents rejected operations, such as writes to a frozen store
	ErrorAccess
	// ErrorFatal represents unrecoverable errors that abort the boot sequence
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorInvalid:
		return "invalid"
	case ErrorAccess:
		return "access"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Configuration store errors
	ErrImmutableConfig  = errors.New("configuration is immutable")
	ErrInvalidResources = errors.New("main.resources must be an ordered list")
	ErrMissingSection   = errors.New("missing required configuration section")

	// Spool binding errors
	ErrDuplicateSpool     = errors.New("spool name already registered")
	ErrSpoolNotFound      = errors.New("spool factory not found")
	ErrMissingApplication = errors.New("spool requires a backing application")
	ErrUnknownResource    = errors.New("unknown resource bucket")

	// Application lifecycle errors
	ErrAlreadyBooted = errors.New("application already booted")
	ErrNotBooted     = errors.New("application not booted")
	ErrStopped       = errors.New("application stopped")
	ErrBootFailed    = errors.New("boot sequence failed")
	ErrBootTimeout   = errors.New("boot sequence timed out")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsInvalid checks if an error is due to invalid input or configuration
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	return errors.Is(err, ErrInvalidResources) ||
		errors.Is(err, ErrMissingSection) ||
		errors.Is(err, ErrDuplicateSpool) ||
		errors.Is(err, ErrSpoolNotFound) ||
		errors.Is(err, ErrUnknownResource)
}

// IsAccess checks if an error is a rejected operation
func IsAccess(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorAccess
	}

	return errors.Is(err, ErrImmutableConfig)
}

// IsFatal checks if an error aborts the boot sequence
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}

	return errors.Is(err, ErrBootFailed) ||
		errors.Is(err, ErrBootTimeout) ||
		errors.Is(err, ErrMissingApplication)
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	if IsFatal(err) {
		return ErrorFatal
	}
	if IsAccess(err) {
		return ErrorAccess
	}
	return ErrorInvalid
}

// newClassified creates a new classified error.
// This is an internal helper - use WrapInvalid(), WrapAccess(), or WrapFatal() instead.
func newClassified(class ErrorClass, err error, component, operation string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapInvalid wraps an error as invalid input with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return newClassified(ErrorInvalid, Wrap(err, component, method, action), component, method)
}

// WrapAccess wraps an error as a rejected operation with context
func WrapAccess(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return newClassified(ErrorAccess, Wrap(err, component, method, action), component, method)
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return newClassified(ErrorFatal, Wrap(err, component, method, action), component, method)
}
