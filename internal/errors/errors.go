// Package errors consolidates error definitions for the entire project.
//
// This file provides:
// - Sentinel errors for all task-terminal and transient conditions
// - Error category checking functions
// - Error wrapping utilities
package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	// Remote source errors
	ErrNotFound         = errors.New("remote archive not found")
	ErrTimeout          = errors.New("timeout")
	ErrConnectionFailed = errors.New("connection failed")
	ErrServerError      = errors.New("server error")

	// Transfer/verification errors
	ErrIncompleteDownload = errors.New("incomplete download")
	ErrRowCountMismatch   = errors.New("row count mismatch")

	// Resource errors
	ErrDiskFull       = errors.New("not enough disk space")
	ErrWriterClosed   = errors.New("writer is closed")
	ErrEmptyArchive   = errors.New("archive contains no entries")
	ErrRetryExhausted = errors.New("retry budget exhausted")

	// Configuration errors
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrMissingField   = errors.New("missing required field")
	ErrInvalidDate    = errors.New("invalid date")
	ErrUnknownDataset = errors.New("unknown dataset")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// New is a convenience wrapper for errors.New
var New = errors.New

// IsNotFound returns true if err means the remote resource is absent.
// Not-found is terminal for a task and is never retried.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetriable returns true if the error is transient and the attempt
// may be retried within the task's retry budget.
func IsRetriable(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConnectionFailed) ||
		errors.Is(err, ErrServerError) ||
		errors.Is(err, ErrIncompleteDownload) ||
		errors.Is(err, ErrRowCountMismatch)
}

// IsTimeout returns true if err is a timeout. Timeouts back off longer
// than other transient errors before the next attempt.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsValidation returns true if err is a configuration error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrUnknownDataset)
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}
