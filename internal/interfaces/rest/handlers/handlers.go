// Package handlers wires the payment services to HTTP.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/docbook/docbook-payments/internal/application/services"
	"github.com/docbook/docbook-payments/internal/domain"
	"github.com/docbook/docbook-payments/internal/security"
)

type OrderCreator interface {
	CreateOrder(ctx context.Context, cmd services.CreateOrderCommand) (*domain.PaymentRecord, error)
}

type Confirmer interface {
	Confirm(ctx context.Context, cmd services.ConfirmCommand) (*domain.PaymentRecord, error)
}

type Refunder interface {
	Refund(ctx context.Context, cmd services.RefundCommand) (*domain.PaymentRecord, error)
}

type WebhookApplier interface {
	Apply(ctx context.Context, event services.Event) error
}

type PaymentQuery interface {
	GetPayment(ctx context.Context, id string) (*domain.PaymentRecord, error)
	ListPatientPayments(ctx context.Context, patientID string, limit, offset int) ([]*domain.PaymentRecord, error)
}

type Handlers struct {
	orderService   OrderCreator
	confirmService Confirmer
	refundService  Refunder
	reconciler     WebhookApplier
	queryService   PaymentQuery
	verifier       *security.SignatureVerifier

	// publishableKey is handed to clients so they can open the gateway's
	// checkout for a created order.
	publishableKey string
	logger         *slog.Logger
}

func NewHandlers(
	orderService OrderCreator,
	confirmService Confirmer,
	refundService Refunder,
	reconciler WebhookApplier,
	queryService PaymentQuery,
	verifier *security.SignatureVerifier,
	publishableKey string,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		orderService:   orderService,
		confirmService: confirmService,
		refundService:  refundService,
		reconciler:     reconciler,
		queryService:   queryService,
		verifier:       verifier,
		publishableKey: publishableKey,
		logger:         logger,
	}
}

// RegisterRoutes attaches all payment endpoints to mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/payments/orders", h.CreateOrder)
	mux.HandleFunc("POST /api/v1/payments/confirm", h.ConfirmPayment)
	mux.HandleFunc("POST /api/v1/payments/webhook", h.HandleWebhook)
	mux.HandleFunc("POST /api/v1/payments/{id}/refund", h.RefundPayment)
	mux.HandleFunc("GET /api/v1/payments/{id}", h.GetPayment)
	mux.HandleFunc("GET /api/v1/patients/{patientId}/payments", h.ListPatientPayments)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// actorFromRequest reads the identity established by the upstream auth
// layer. Authentication itself lives outside this service.
func actorFromRequest(r *http.Request) services.Actor {
	return services.Actor{
		ID:        r.Header.Get("X-Actor-Id"),
		Name:      r.Header.Get("X-Actor-Name"),
		Role:      r.Header.Get("X-Actor-Role"),
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
}
