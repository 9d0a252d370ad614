package gateway

import (
	"context"
	"math/rand"
	"time"

	"github.com/docbook/docbook-payments/internal/application"
	"github.com/docbook/docbook-payments/internal/config"
)

// RetryGatewayClient retries transient failures with jittered exponential
// backoff. Both wrapped calls carry an idempotency key (orders via the
// receipt, refunds via a per-command key), so a retry never double-charges.
type RetryGatewayClient struct {
	inner      application.GatewayClient
	baseDelay  time.Duration
	maxRetries int
}

func NewRetryGatewayClient(inner application.GatewayClient, cfg config.RetryConfig) application.GatewayClient {
	return &RetryGatewayClient{
		inner:      inner,
		baseDelay:  time.Duration(cfg.BaseDelay) * time.Second,
		maxRetries: int(cfg.MaxRetries),
	}
}

func (r *RetryGatewayClient) CreateOrder(ctx context.Context, req application.GatewayOrderRequest) (*application.GatewayOrderResponse, error) {
	return retry(
		r,
		ctx,
		func(ctx context.Context) (*application.GatewayOrderResponse, error) {
			return r.inner.CreateOrder(ctx, req)
		},
	)
}

func (r *RetryGatewayClient) IssueRefund(ctx context.Context, req application.GatewayRefundRequest) (*application.GatewayRefundResponse, error) {
	return retry(
		r,
		ctx,
		func(ctx context.Context) (*application.GatewayRefundResponse, error) {
			return r.inner.IssueRefund(ctx, req)
		},
	)
}

func retry[Resp any](r *RetryGatewayClient, ctx context.Context, fn func(ctx context.Context) (*Resp, error)) (*Resp, error) {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := r.baseDelay << (attempt - 1)
			jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay + jitter):
			}
		}

		resp, err := fn(ctx)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !IsTransient(err) {
			return nil, err
		}
	}

	return nil, lastErr
}
