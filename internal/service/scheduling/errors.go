package scheduling

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidRecurrence = fmt.Errorf("%w: invalid recurrence", ErrValidation)
	ErrNotFound          = errors.New("referenced entity not found")
	ErrDuplicateBooking  = errors.New("booking with the same identity already exists")
	ErrPersistence       = errors.New("persistence failure")
)

// ValidationError reports a single rejected input field.
type ValidationError struct {
	Field   string
	Message string

	kind error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.kind == nil {
		return ErrValidation
	}
	return e.kind
}

func invalidField(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

func invalidRecurrence(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg, kind: ErrInvalidRecurrence}
}

// NotFoundError reports a referenced entity that does not exist in the tenant
// or does not satisfy the relation the request assumes.
type NotFoundError struct {
	Entity string
	Field  string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// PersistenceError wraps a storage failure that aborted the whole operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func persistenceErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
