package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// GatewayError is a structured rejection from the payment gateway.
type GatewayError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error [%s]: %s (status %d)", e.Code, e.Message, e.StatusCode)
}

type gatewayErrorResponse struct {
	Err     string `json:"error"`
	Message string `json:"message"`
}

// IsTransient reports whether the error is worth retrying: network errors,
// timeouts, and gateway 5xx responses. Context cancellation and gateway
// rejections (4xx) are permanent from the caller's point of view.
func IsTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.StatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}
