package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks caller input that fails a precondition.
	ErrValidation = errors.New("validation failed")

	// ErrConstraint is the parent of every storage constraint violation.
	ErrConstraint = errors.New("constraint violation")

	// ErrDuplicate is returned when a uniqueness rule would be broken.
	ErrDuplicate = fmt.Errorf("%w: duplicate", ErrConstraint)

	// ErrReferential is returned when a delete would orphan dependent records.
	ErrReferential = fmt.Errorf("%w: referenced", ErrConstraint)

	ErrNotFound = errors.New("not found")

	// ErrBackendUnavailable wraps transport and storage failures.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

var (
	ErrInvalidAmount        = fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	ErrDuplicateTaxID       = fmt.Errorf("%w: customer tax id already registered", ErrDuplicate)
	ErrCustomerHasPurchases = fmt.Errorf("%w: customer has purchases", ErrReferential)
	ErrCustomerNotFound     = fmt.Errorf("customer %w", ErrNotFound)
	ErrPurchaseNotFound     = fmt.Errorf("purchase %w", ErrNotFound)
)

// ValidationError describes a single rejected field. The message is meant to
// be shown to the end user as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Unavailable wraps a storage or transport failure so that callers can match
// ErrBackendUnavailable while the original cause stays reachable.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrBackendUnavailable, op, err)
}
