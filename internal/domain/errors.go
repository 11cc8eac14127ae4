package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by the store, the ledger and the HTTP layer.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrGiftNotFound        = fmt.Errorf("gift %w", ErrNotFound)
	ErrGuestNotFound       = fmt.Errorf("guest %w", ErrNotFound)
	ErrInviteNotFound      = fmt.Errorf("invite %w", ErrNotFound)
	ErrGuestNotApproved    = errors.New("guest not approved")
	ErrGiftAtCapacity      = errors.New("gift at capacity")
	ErrAlreadyReserved     = errors.New("gift already reserved by guest")
	ErrNotReserved         = errors.New("gift not reserved by guest")
	ErrGiftClaimed         = errors.New("gift has claimants")
	ErrCapacityBelowClaims = errors.New("capacity below current claimants")
	ErrGuestLimitReached   = errors.New("guest reservation limit reached")
	ErrInviteUsed          = errors.New("invite already used by another guest")
	ErrInviteNotRedeemed   = errors.New("invite not redeemed yet")

	// ErrOutcomeUnknown means the store round trip did not finish before the
	// deadline. The write may still have been applied.
	ErrOutcomeUnknown = errors.New("outcome unknown")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}
