package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across callers.
type ErrorCode string

const (
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeInvalid         ErrorCode = "INVALID"
	ErrCodeConflict        ErrorCode = "CONFLICT"
	ErrCodeUnauthenticated ErrorCode = "UNAUTHENTICATED"
	ErrCodeImmutable       ErrorCode = "IMMUTABLE"
	ErrCodeInternal        ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// StoreFailure tags an underlying store read/write error, preserving its message.
// Errors that already carry a domain classification pass through unchanged.
func StoreFailure(message string, err error) error {
	var dErr *Error
	if errors.As(err, &dErr) {
		return err
	}
	return WrapError(ErrCodeInternal, message, err)
}

// Common domain errors.
var (
	ErrInvalidPrice          = NewError(ErrCodeInvalid, "price must not be negative")
	ErrMissingIdentifier     = NewError(ErrCodeInvalid, "identifier is required")
	ErrInvalidVersion        = NewError(ErrCodeInvalid, "snapshot version must be at least 1")
	ErrUnauthenticated       = NewError(ErrCodeUnauthenticated, "acting identity could not be resolved")
	ErrOrganizationNotFound  = NewError(ErrCodeNotFound, "organization not found")
	ErrSnapshotNotFound      = NewError(ErrCodeNotFound, "snapshot not found")
	ErrPriceNotFound         = NewError(ErrCodeNotFound, "no price recorded for product")
	ErrVersionConflict       = NewError(ErrCodeConflict, "snapshot version already claimed")
	ErrImmutabilityViolation = NewError(ErrCodeImmutable, "append-only table rejected mutation")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
