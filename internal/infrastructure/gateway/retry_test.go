package gateway_test

import (
	"context"
	"errors"
	"testing"

	"github.com/docbook/docbook-payments/internal/application"
	"github.com/docbook/docbook-payments/internal/config"
	"github.com/docbook/docbook-payments/internal/infrastructure/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	// errs are returned in order; a nil entry means success.
	errs       []error
	calls      int
	refundKeys []string
}

func (c *scriptedClient) next() error {
	var err error
	if c.calls < len(c.errs) {
		err = c.errs[c.calls]
	}
	c.calls++
	return err
}

func (c *scriptedClient) CreateOrder(ctx context.Context, req application.GatewayOrderRequest) (*application.GatewayOrderResponse, error) {
	if err := c.next(); err != nil {
		return nil, err
	}
	return &application.GatewayOrderResponse{OrderID: "order_abc"}, nil
}

func (c *scriptedClient) IssueRefund(ctx context.Context, req application.GatewayRefundRequest) (*application.GatewayRefundResponse, error) {
	c.refundKeys = append(c.refundKeys, req.IdempotencyKey)
	if err := c.next(); err != nil {
		return nil, err
	}
	return &application.GatewayRefundResponse{RefundID: "rfnd_001"}, nil
}

func retryConfig() config.RetryConfig {
	return config.RetryConfig{BaseDelay: 0, MaxRetries: 3}
}

func TestRetryGatewayClient_CreateOrder(t *testing.T) {
	t.Run("no retry on first success", func(t *testing.T) {
		inner := &scriptedClient{}
		client := gateway.NewRetryGatewayClient(inner, retryConfig())

		resp, err := client.CreateOrder(context.Background(), application.GatewayOrderRequest{})

		require.NoError(t, err)
		assert.Equal(t, "order_abc", resp.OrderID)
		assert.Equal(t, 1, inner.calls)
	})

	t.Run("retries transient 5xx failures", func(t *testing.T) {
		inner := &scriptedClient{errs: []error{
			&gateway.GatewayError{Code: "SERVER_ERROR", StatusCode: 503},
			&gateway.GatewayError{Code: "SERVER_ERROR", StatusCode: 503},
			nil,
		}}
		client := gateway.NewRetryGatewayClient(inner, retryConfig())

		resp, err := client.CreateOrder(context.Background(), application.GatewayOrderRequest{})

		require.NoError(t, err)
		assert.Equal(t, "order_abc", resp.OrderID)
		assert.Equal(t, 3, inner.calls)
	})

	t.Run("stops immediately on a 4xx rejection", func(t *testing.T) {
		rejection := &gateway.GatewayError{Code: "BAD_REQUEST_ERROR", StatusCode: 400}
		inner := &scriptedClient{errs: []error{rejection}}
		client := gateway.NewRetryGatewayClient(inner, retryConfig())

		_, err := client.CreateOrder(context.Background(), application.GatewayOrderRequest{})

		assert.ErrorIs(t, err, rejection)
		assert.Equal(t, 1, inner.calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		transient := &gateway.GatewayError{Code: "SERVER_ERROR", StatusCode: 500}
		inner := &scriptedClient{errs: []error{transient, transient, transient, transient}}
		client := gateway.NewRetryGatewayClient(inner, retryConfig())

		_, err := client.CreateOrder(context.Background(), application.GatewayOrderRequest{})

		assert.Error(t, err)
		assert.Equal(t, 4, inner.calls)
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		inner := &scriptedClient{errs: []error{context.Canceled}}
		client := gateway.NewRetryGatewayClient(inner, retryConfig())

		_, err := client.CreateOrder(context.Background(), application.GatewayOrderRequest{})

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, inner.calls)
	})
}

func TestRetryGatewayClient_IssueRefund(t *testing.T) {
	inner := &scriptedClient{errs: []error{
		&gateway.GatewayError{Code: "SERVER_ERROR", StatusCode: 502},
		nil,
	}}
	client := gateway.NewRetryGatewayClient(inner, retryConfig())

	resp, err := client.IssueRefund(context.Background(), application.GatewayRefundRequest{
		GatewayPaymentID: "gwpay_001",
		IdempotencyKey:   "idem-refund-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "rfnd_001", resp.RefundID)
	assert.Equal(t, 2, inner.calls)

	// The retried attempt must present the same key so the gateway can
	// dedupe a refund whose first response was lost.
	require.Len(t, inner.refundKeys, 2)
	assert.Equal(t, "idem-refund-1", inner.refundKeys[0])
	assert.Equal(t, "idem-refund-1", inner.refundKeys[1])
}

func TestIsTransient(t *testing.T) {
	assert.True(t, gateway.IsTransient(&gateway.GatewayError{StatusCode: 500}))
	assert.False(t, gateway.IsTransient(&gateway.GatewayError{StatusCode: 422}))
	assert.False(t, gateway.IsTransient(context.Canceled))
	assert.False(t, gateway.IsTransient(context.DeadlineExceeded))
	assert.False(t, gateway.IsTransient(errors.New("plain error")))
}
