package application

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/docbook/docbook-payments/internal/domain"
)

// APPLICATION-LEVEL ERRORS (Orchestration)

type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInvalidSignature = "INVALID_SIGNATURE"
	ErrCodeGatewayFailure   = "GATEWAY_FAILURE"
	ErrCodeStateConflict    = "STATE_CONFLICT"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

func NewValidationError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeValidation,
		Message:    "Invalid input",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewUnauthorizedError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeUnauthorized,
		Message:    "Caller is not authorized for this resource",
		HTTPStatus: http.StatusForbidden,
	}
}

// NewSignatureError carries no detail about which part of the signature
// check failed.
func NewSignatureError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidSignature,
		Message:    "invalid signature",
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewGatewayError marks a gateway call that failed or timed out; local state
// is unchanged and the caller may retry.
func NewGatewayError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeGatewayFailure,
		Message:    "Payment gateway request failed",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewStateConflictError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeStateConflict,
		Message:    "Operation conflicts with the payment's current state",
		HTTPStatus: http.StatusConflict,
		Err:        err,
	}
}

func NewNotFoundError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeNotFound,
		Message:    "Resource not found",
		HTTPStatus: http.StatusNotFound,
		Err:        err,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}

// ToHTTPStatus maps any error to a response status.
func ToHTTPStatus(err error) int {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case domain.ErrCodePaymentNotFound:
			return http.StatusNotFound
		case domain.ErrCodeMissingRequiredField, domain.ErrCodeInvalidAmount:
			return http.StatusBadRequest
		default:
			return http.StatusConflict
		}
	}
	return http.StatusInternalServerError
}

// ToErrorCode maps any error to a stable machine-readable code.
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ErrCodeInternal
}
