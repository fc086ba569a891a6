package models

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by services and repositories. Handlers map
// these to HTTP statuses; everything else is a 500.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrSlotUnavailable   = errors.New("venue is not available for the selected date and time")
	ErrInvalidTransition = errors.New("invalid booking status transition")
	ErrTooLateToCancel   = errors.New("bookings can only be cancelled at least 24 hours before the event")
	ErrNotEligible       = errors.New("not eligible to review this venue")
	ErrAlreadyReviewed   = errors.New("review already submitted for this booking")
	ErrAlreadyMarked     = errors.New("review already marked as helpful")
	ErrEmailTaken        = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidSignature  = errors.New("invalid webhook signature")
	ErrDuplicateEvent    = errors.New("event already processed")
	ErrPaymentRequired   = errors.New("booking has no payment to refund")
	ErrExternalService   = errors.New("payment provider unavailable")
)

// ValidationError reports a field-level validation failure
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError checks whether err is a field validation failure
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
