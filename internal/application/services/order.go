package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/docbook/docbook-payments/internal/application"
	"github.com/docbook/docbook-payments/internal/audit"
	"github.com/docbook/docbook-payments/internal/domain"
	"github.com/google/uuid"
)

// OrderService creates the gateway order that starts a payment's lifecycle.
type OrderService struct {
	paymentRepo application.PaymentRepository
	gateway     application.GatewayClient
	auditSink   audit.Sink
	logger      *slog.Logger
}

func NewOrderService(
	paymentRepo application.PaymentRepository,
	gateway application.GatewayClient,
	auditSink audit.Sink,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		paymentRepo: paymentRepo,
		gateway:     gateway,
		auditSink:   auditSink,
		logger:      logger,
	}
}

// CreateOrder creates a remote gateway order and persists the local pending
// record. On gateway failure nothing is persisted. If persistence fails
// after the remote order succeeded, the gap is logged and audited as
// critical so it can be reconciled; it is never swallowed.
func (s *OrderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*domain.PaymentRecord, error) {
	// Everything the local record needs is checked up front; once the
	// gateway call goes out, a validation failure would leave a remote
	// order with no local record.
	if cmd.AppointmentID == "" {
		return nil, application.NewValidationError(domain.NewMissingRequiredFieldError("appointment ID"))
	}
	if cmd.PatientID == "" {
		return nil, application.NewValidationError(domain.NewMissingRequiredFieldError("patient ID"))
	}
	if cmd.DoctorID == "" {
		return nil, application.NewValidationError(domain.NewMissingRequiredFieldError("doctor ID"))
	}
	amount, err := domain.NewMoney(cmd.AmountMinor, cmd.Currency)
	if err != nil {
		return nil, application.NewValidationError(err)
	}

	paymentID := uuid.New().String()

	gatewayResp, err := s.gateway.CreateOrder(ctx, application.GatewayOrderRequest{
		AmountMinor: amount.Amount,
		Currency:    amount.Currency,
		Receipt:     paymentID,
	})
	if err != nil {
		return nil, application.NewGatewayError(err)
	}

	record, err := domain.NewPaymentRecord(
		paymentID,
		cmd.AppointmentID,
		cmd.PatientID,
		cmd.DoctorID,
		amount,
		gatewayResp.OrderID,
	)
	if err != nil {
		return nil, application.NewValidationError(err)
	}

	if err := s.paymentRepo.Create(ctx, record); err != nil {
		// The remote order exists but the local record does not. Surface
		// loudly: the webhook channel cannot reconcile an order we never
		// stored.
		s.logger.Error("gateway order created but local record not persisted",
			"payment_id", paymentID,
			"gateway_order_id", gatewayResp.OrderID,
			"error", err,
		)
		s.auditSink.Record(audit.Entry{
			ActorID:     cmd.Actor.ID,
			ActorName:   cmd.Actor.Name,
			ActorRole:   cmd.Actor.Role,
			Action:      "payment.order.orphaned",
			Module:      audit.ModulePayment,
			Severity:    audit.SeverityCritical,
			Description: "gateway order " + gatewayResp.OrderID + " has no local payment record",
			TargetID:    paymentID,
			TargetModel: "payment",
			IPAddress:   cmd.Actor.IPAddress,
			UserAgent:   cmd.Actor.UserAgent,
		})
		return nil, application.NewInternalError(err)
	}

	newData, _ := json.Marshal(map[string]any{
		"status":           record.Status,
		"gateway_order_id": record.GatewayOrderID,
		"amount_minor":     record.AmountMinor,
		"currency":         record.Currency,
	})
	s.auditSink.Record(audit.Entry{
		ActorID:     cmd.Actor.ID,
		ActorName:   cmd.Actor.Name,
		ActorRole:   cmd.Actor.Role,
		Action:      "payment.order.created",
		Module:      audit.ModulePayment,
		Description: "payment order created for appointment " + cmd.AppointmentID,
		TargetID:    record.ID,
		TargetModel: "payment",
		NewData:     newData,
		IPAddress:   cmd.Actor.IPAddress,
		UserAgent:   cmd.Actor.UserAgent,
	})

	return record, nil
}
