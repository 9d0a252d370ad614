package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeTerminalState        = "TERMINAL_STATE"
	ErrCodeNotRefundable        = "NOT_REFUNDABLE"
	ErrCodeRefundExceedsAmount  = "REFUND_EXCEEDS_AMOUNT"
	ErrCodePaymentNotFound      = "PAYMENT_NOT_FOUND"
	ErrCodeInvalidAmount        = "INVALID_AMOUNT"
	ErrCodeMissingRequiredField = "MISSING_REQUIRED_FIELD"
)

func NewInvalidTransitionError(from, to PaymentStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

func NewTerminalStateError(status PaymentStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeTerminalState,
		Message: fmt.Sprintf("payment is already in terminal state %s", status),
	}
}

func NewNotRefundableError(status PaymentStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeNotRefundable,
		Message: fmt.Sprintf("payment is not refundable: status is %s, expected %s", status, StatusCompleted),
	}
}

func NewRefundExceedsAmountError(requested, original int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeRefundExceedsAmount,
		Message: fmt.Sprintf("refund amount %d exceeds payment amount %d", requested, original),
	}
}

func NewPaymentNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodePaymentNotFound,
		Message: fmt.Sprintf("payment with ID %s not found", id),
	}
}

func NewInvalidAmountError(amount int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("invalid amount %d", amount),
	}
}

func NewMissingRequiredFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingRequiredField,
		Message: fmt.Sprintf("%s is required", field),
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
