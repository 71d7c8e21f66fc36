package models

import "fmt"

// ValidationError reports bad input shape or gateway-reported field errors.
// Surfaced synchronously, before any network call when raised locally.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Fields)
}

// NewFieldError builds a single-field validation error
func NewFieldError(field, message string) *ValidationError {
	return &ValidationError{
		Message: "validation failed",
		Fields:  map[string]string{field: message},
	}
}

// DuplicateReferenceError means the order reference is already in use.
// Recoverable: the caller is expected to fetch the existing record.
type DuplicateReferenceError struct {
	Reference string
}

func (e *DuplicateReferenceError) Error() string {
	return fmt.Sprintf("order reference %q already exists", e.Reference)
}

// AuthenticationError means credential acquisition or use failed after retry
type AuthenticationError struct {
	Message    string
	StatusCode int
}

func (e *AuthenticationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("authentication failed (status %d): %s", e.StatusCode, e.Message)
	}
	return "authentication failed: " + e.Message
}

// GatewayUnavailableError covers transport failures and gateway 5xx
// responses. Retryable for reads, never for writes.
type GatewayUnavailableError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *GatewayUnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway unavailable (status %d): %s", e.StatusCode, e.Message)
	}
	return "gateway unavailable: " + e.Message
}

func (e *GatewayUnavailableError) Unwrap() error { return e.Err }

// InsufficientBalanceError means the merchant account cannot cover a payout
type InsufficientBalanceError struct {
	Required  string
	Available string
}

func (e *InsufficientBalanceError) Error() string {
	if e.Required != "" {
		return fmt.Sprintf("insufficient balance: need %s, have %s", e.Required, e.Available)
	}
	return "insufficient balance for payout"
}

// PaymentMethodUnavailableError means the preview reported no usable
// collection method for the customer's phone number.
type PaymentMethodUnavailableError struct {
	Reference string
}

func (e *PaymentMethodUnavailableError) Error() string {
	return fmt.Sprintf("no payment method available for order %q", e.Reference)
}

// InconsistentStateError flags an illegal terminal-state transition observed
// during reconciliation. The stored record is left unchanged.
type InconsistentStateError struct {
	Kind      Kind
	Reference string
	From      Status
	To        Status
	Reason    string
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("illegal %s status transition %s -> %s for %q: %s",
		e.Kind, e.From, e.To, e.Reference, e.Reason)
}
