package booking

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

type (
	// ValidationError rejects malformed input before any state mutation
	ValidationError struct {
		Reason string
	}

	// ConflictError rejects an operation whose preconditions do not hold,
	// with an enumerated reason
	ConflictError struct {
		Reason string
	}

	// NotFoundError rejects an operation referencing a booking that does
	// not exist
	NotFoundError struct {
		Reason string
	}

	// ExternalServiceError reports a failed collaborator call; booking
	// state is untouched
	ExternalServiceError struct {
		cause error
	}

	// PersistenceError reports a failed aggregate append; booking state is
	// unknown and the caller should re-read before retrying
	PersistenceError struct {
		cause error
	}
)

func NewValidationError(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func NewConflictError(format string, args ...any) error {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...any) error {
	return &NotFoundError{Reason: fmt.Sprintf(format, args...)}
}

func NewExternalServiceError(cause error) error {
	return &ExternalServiceError{cause: cause}
}

func NewPersistenceError(cause error) error {
	return &PersistenceError{cause: cause}
}

func (e *ValidationError) Error() string { return e.Reason }
func (e *ConflictError) Error() string   { return e.Reason }
func (e *NotFoundError) Error() string   { return e.Reason }

func (e *ExternalServiceError) Error() string {
	return "external service failure: " + e.cause.Error()
}

func (e *ExternalServiceError) Unwrap() error { return e.cause }

func (e *PersistenceError) Error() string {
	return "persistence failure: " + e.cause.Error()
}

func (e *PersistenceError) Unwrap() error { return e.cause }

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsExternalService(err error) bool {
	var e *ExternalServiceError
	return errors.As(err, &e)
}

func IsPersistence(err error) bool {
	var e *PersistenceError
	return errors.As(err, &e)
}
