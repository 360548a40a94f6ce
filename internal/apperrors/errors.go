package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrStateGuard indicates that an operation is not permitted in the resource's current status.
var ErrStateGuard = errors.New("operation not permitted in current state")

// ErrConsistency indicates that a derived value no longer matches its invariant after a write.
var ErrConsistency = errors.New("consistency check failed")

// ErrInternal is returned when an unexpected failure is hidden from the caller.
var ErrInternal = errors.New("internal error")

// ErrUnauthorized indicates that no valid actor could be established for the request.
var ErrUnauthorized = errors.New("unauthorized")

// AppError wraps an underlying error with an HTTP-style status code and a message.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError builds an AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError returns an error that matches ErrNotFound.
func NewNotFoundError(message string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, message)
}

// NewValidationError returns an error that matches ErrValidation.
func NewValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// StateGuardError describes a rejected state transition. It carries the current
// status so callers can refresh before resubmitting.
type StateGuardError struct {
	Entity        string
	EntityID      string
	CurrentStatus string
	Operation     string
	Reason        string
}

// NewStateGuardError builds a StateGuardError.
func NewStateGuardError(entity, entityID, currentStatus, operation, reason string) *StateGuardError {
	return &StateGuardError{
		Entity:        entity,
		EntityID:      entityID,
		CurrentStatus: currentStatus,
		Operation:     operation,
		Reason:        reason,
	}
}

func (e *StateGuardError) Error() string {
	msg := fmt.Sprintf("cannot %s %s %s in status %s", e.Operation, e.Entity, e.EntityID, e.CurrentStatus)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is lets errors.Is(err, ErrStateGuard) match any StateGuardError.
func (e *StateGuardError) Is(target error) bool {
	return target == ErrStateGuard
}

// ConsistencyError reports a statement whose stored net due disagrees with its components.
type ConsistencyError struct {
	StatementID string
	Expected    string
	Actual      string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("statement %s net due is %s, expected %s", e.StatementID, e.Actual, e.Expected)
}

// Is lets errors.Is(err, ErrConsistency) match any ConsistencyError.
func (e *ConsistencyError) Is(target error) bool {
	return target == ErrConsistency
}
