package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors used by the repositories and the dispatch pipeline.
var (
	// ErrAlreadyRecorded is returned when a send-log insert loses the race
	// for its idempotency key. Callers treat it as "already handled".
	ErrAlreadyRecorded = errors.New("send attempt already recorded")

	// ErrNotFound is returned when an entity lookup matches nothing.
	ErrNotFound = errors.New("not found")
)

// AppError represents an application error
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new validation error
func NewValidationError(message string, err error) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: message, Err: err}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: message, Err: err}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, err error) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: message, Err: err}
}

// TransportError is a transport send failure classified for retry handling
type TransportError struct {
	Permanent bool
	Status    int
	Message   string
	Err       error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	if e.Err != nil {
		return fmt.Sprintf("transport %s error (status %d): %s: %v", kind, e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("transport %s error (status %d): %s", kind, e.Status, e.Message)
}

// Unwrap exposes the wrapped cause
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsPermanent reports whether err is a non-retryable transport failure
func IsPermanent(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Permanent
}
