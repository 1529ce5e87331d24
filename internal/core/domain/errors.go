package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrService    = errors.New("service error")
	ErrBusy       = errors.New("operation already in progress")
	ErrDegraded   = errors.New("backend unavailable")
	ErrCancelled  = errors.New("cancelled by user")
	ErrNotFound   = errors.New("not found")
	ErrTemporary  = errors.New("temporary failure")
)

// ValidationError is a local, pre-network rejection.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ServiceError is a normalized remote failure. Message is always human readable.
type ServiceError struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	switch target {
	case ErrService:
		return true
	case ErrNotFound:
		return e.StatusCode == 404
	case ErrTemporary:
		return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
	default:
		return false
	}
}

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// UserMessage reduces err to the text shown to the user, using fallback when
// err carries no normalized message.
func UserMessage(err error, fallback string) string {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.Message != "" {
		return svcErr.Message
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) && valErr.Message != "" {
		return valErr.Message
	}
	if err != nil && fallback == "" {
		return err.Error()
	}
	return fallback
}
