package apperr

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every component. Handlers map these to HTTP
// responses in one place (internal/httpapi).
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrNotVerified   = errors.New("phone number not registered or verified")
	ErrConfiguration = errors.New("not configured")
	ErrInvalidCode   = errors.New("invalid verification code")
	ErrCarrier       = errors.New("carrier request failed")

	// ErrDuplicate is a store-level unique key conflict (e.g. carrier call sid already recorded).
	ErrDuplicate = errors.New("duplicate record")
)

// Validation wraps ErrValidation with a field-level message.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Configuration wraps ErrConfiguration naming what is missing.
func Configuration(what string) error {
	return fmt.Errorf("%s %w", what, ErrConfiguration)
}

// CarrierError is returned when the external telephony capability fails.
// Message is the carrier's own text and is safe to show to the principal.
type CarrierError struct {
	Op      string
	Message string
	Err     error
}

func (e *CarrierError) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return e.Op + ": " + e.Message
}

func (e *CarrierError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCarrier}
	}
	return []error{ErrCarrier, e.Err}
}

// Carrier re-labels a carrier failure with a user facing operation,
// keeping the carrier's own message.
func Carrier(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CarrierError{Op: op, Message: CarrierMessage(err), Err: err}
}

// CarrierMessage returns the carrier's text when err is a CarrierError.
func CarrierMessage(err error) string {
	var ce *CarrierError
	if errors.As(err, &ce) {
		return ce.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
