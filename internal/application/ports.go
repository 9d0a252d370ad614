// Package application defines the orchestration layer: the ports the
// services depend on and the error taxonomy surfaced to transports.
package application

import (
	"context"
	"time"

	"github.com/docbook/docbook-payments/internal/domain"
	"github.com/shopspring/decimal"
)

// PaymentRepository is the persistence port for payment records. The
// *IfPending / *IfCompleted methods are single atomic conditional updates:
// they apply their full field set only if the record is still in the guarded
// status, and report whether the transition happened. Two concurrent callers
// can both invoke them; exactly one observes applied == true.
type PaymentRepository interface {
	Create(ctx context.Context, record *domain.PaymentRecord) error
	FindByID(ctx context.Context, id string) (*domain.PaymentRecord, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.PaymentRecord, error)
	FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.PaymentRecord, error)
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*domain.PaymentRecord, error)

	CompleteIfPending(ctx context.Context, id string, capture domain.Capture) (applied bool, err error)
	FailIfPending(ctx context.Context, id string, reason string) (applied bool, err error)
	RefundIfCompleted(ctx context.Context, id string, refund domain.Refund) (applied bool, err error)

	// AttachRefundTransaction reconciles a gateway-reported refund id with a
	// locally initiated refund on an already-refunded record.
	AttachRefundTransaction(ctx context.Context, id string, transactionID string, processedAt time.Time) error
}

// GatewayClient talks to the external payment gateway. Calls are bounded by
// the configured timeout; a timeout is a gateway failure and local state is
// reconciled later through the webhook channel.
type GatewayClient interface {
	CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrderResponse, error)
	IssueRefund(ctx context.Context, req GatewayRefundRequest) (*GatewayRefundResponse, error)
}

type GatewayOrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
}

type GatewayOrderResponse struct {
	OrderID     string
	AmountMinor int64
	Currency    string
	Status      string
	CreatedAt   time.Time
}

type GatewayRefundRequest struct {
	GatewayPaymentID string
	Amount           decimal.Decimal
	Notes            string

	// IdempotencyKey dedupes the refund at the gateway across retries.
	// Partial refunds mean the payment id alone cannot serve as the key.
	IdempotencyKey string
}

type GatewayRefundResponse struct {
	RefundID         string
	GatewayPaymentID string
	Status           string
	CreatedAt        time.Time
}

// Notifier is informed of terminal state changes. Implementations are
// fire-and-forget; a notification failure never affects the transition that
// triggered it.
type Notifier interface {
	PaymentCompleted(ctx context.Context, record *domain.PaymentRecord)
	PaymentFailed(ctx context.Context, record *domain.PaymentRecord)
	PaymentRefunded(ctx context.Context, record *domain.PaymentRecord)
}
