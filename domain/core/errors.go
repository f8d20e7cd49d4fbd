package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrJobNotFound      = fmt.Errorf("%w: job", ErrNotFound)
	ErrArtifactNotFound = fmt.Errorf("%w: artifact", ErrNotFound)

	// Validation errors
	ErrInvalidParameters = errors.New("invalid job parameters")
)

// NewNotFoundError builds a not-found error for a resource
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// NewValidationError builds a parameter validation error
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidParameters, field, reason)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidParameters)
}
