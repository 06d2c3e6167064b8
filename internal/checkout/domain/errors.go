package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrUpstreamPayment = errors.New("payment provider error")
	ErrUpstreamOrder   = errors.New("order backend error")
	ErrNotYetConfirmed = errors.New("payment not yet confirmed")
	ErrInProgress      = errors.New("request already in progress")
	ErrNotFound        = errors.New("not found")
)

// ValidationError names the offending field. errors.Is(err, ErrValidation) holds.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// UpstreamError keeps what the remote side said. It unwraps to Kind, which is
// ErrUpstreamPayment or ErrUpstreamOrder.
type UpstreamError struct {
	Kind       error
	Service    string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Service, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s API error: %d - %s", e.Service, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s API error: %d", e.Service, e.StatusCode)
	}
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Retriable reports whether repeating the same call may succeed: transport
// failures, timeouts, throttling and 5xx.
func (e *UpstreamError) Retriable() bool {
	return e.Err != nil || e.StatusCode == 429 || e.StatusCode >= 500
}

// PendingPaymentError carries the provider status of a payment that is not
// PAID yet. errors.Is(err, ErrNotYetConfirmed) holds.
type PendingPaymentError struct {
	Status string
}

func (e *PendingPaymentError) Error() string {
	return fmt.Sprintf("payment not yet confirmed: %s", e.Status)
}

func (e *PendingPaymentError) Is(target error) bool { return target == ErrNotYetConfirmed }

// UnrecordedPaymentError means the payment is PAID but the order could not be
// moved to paid. Retrying the order update is safe; retrying the payment is not.
type UnrecordedPaymentError struct {
	PaymentID string
	OrderID   int64
	Err       error
}

func (e *UnrecordedPaymentError) Error() string {
	return fmt.Sprintf("payment %s confirmed but order %d not updated: %v", e.PaymentID, e.OrderID, e.Err)
}

func (e *UnrecordedPaymentError) Unwrap() error { return e.Err }
