package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/docbook/docbook-payments/internal/application"
	"github.com/docbook/docbook-payments/internal/audit"
	"github.com/docbook/docbook-payments/internal/domain"
	"github.com/google/uuid"
)

// RefundProcessor issues gateway refunds against completed payments.
type RefundProcessor struct {
	paymentRepo application.PaymentRepository
	gateway     application.GatewayClient
	notifier    application.Notifier
	auditSink   audit.Sink
	logger      *slog.Logger
}

func NewRefundProcessor(
	paymentRepo application.PaymentRepository,
	gateway application.GatewayClient,
	notifier application.Notifier,
	auditSink audit.Sink,
	logger *slog.Logger,
) *RefundProcessor {
	return &RefundProcessor{
		paymentRepo: paymentRepo,
		gateway:     gateway,
		notifier:    notifier,
		auditSink:   auditSink,
		logger:      logger,
	}
}

// Refund validates the refund invariants, issues the remote refund, and only
// on gateway success applies the completed -> refunded transition. Gateway
// failure leaves local state untouched.
func (s *RefundProcessor) Refund(ctx context.Context, cmd RefundCommand) (*domain.PaymentRecord, error) {
	if cmd.PaymentID == "" {
		return nil, application.NewValidationError(domain.NewMissingRequiredFieldError("payment ID"))
	}
	if cmd.Actor.ID == "" {
		return nil, application.NewValidationError(domain.NewMissingRequiredFieldError("actor ID"))
	}

	record, err := s.paymentRepo.FindByID(ctx, cmd.PaymentID)
	if err != nil {
		if domain.IsErrorCode(err, domain.ErrCodePaymentNotFound) {
			return nil, application.NewNotFoundError(err)
		}
		return nil, application.NewInternalError(err)
	}

	// Invariants checked before any gateway contact.
	if err := record.CanRefund(cmd.AmountMinor); err != nil {
		return nil, application.NewStateConflictError(err)
	}
	if record.GatewayPaymentID == nil {
		return nil, application.NewStateConflictError(domain.NewNotRefundableError(record.Status))
	}

	gatewayResp, err := s.gateway.IssueRefund(ctx, application.GatewayRefundRequest{
		GatewayPaymentID: *record.GatewayPaymentID,
		Amount:           domain.MinorToDecimal(cmd.AmountMinor),
		Notes:            cmd.Reason,
		IdempotencyKey:   uuid.New().String(),
	})
	if err != nil {
		return nil, application.NewGatewayError(err)
	}

	refund := domain.Refund{
		AmountMinor:   cmd.AmountMinor,
		Reason:        cmd.Reason,
		TransactionID: gatewayResp.RefundID,
		RefundedAt:    time.Now(),
		RefundedBy:    cmd.Actor.ID,
	}

	applied, err := s.paymentRepo.RefundIfCompleted(ctx, record.ID, refund)
	if err != nil {
		return nil, application.NewInternalError(err)
	}
	if !applied {
		// The record left completed between the check and the update, e.g.
		// a concurrent refund. The gateway refund succeeded, so surface the
		// conflict rather than pretending nothing happened.
		s.logger.Error("gateway refund succeeded but record was no longer completed",
			"payment_id", record.ID,
			"gateway_refund_id", gatewayResp.RefundID,
		)
		return nil, application.NewStateConflictError(domain.NewNotRefundableError(record.Status))
	}

	updated, err := s.paymentRepo.FindByID(ctx, record.ID)
	if err != nil {
		return nil, application.NewInternalError(err)
	}

	newData, _ := json.Marshal(map[string]any{
		"status":                domain.StatusRefunded,
		"refund_amount_minor":   refund.AmountMinor,
		"refund_transaction_id": refund.TransactionID,
	})
	s.auditSink.Record(audit.Entry{
		ActorID:     cmd.Actor.ID,
		ActorName:   cmd.Actor.Name,
		ActorRole:   cmd.Actor.Role,
		Action:      "payment.refunded",
		Module:      audit.ModuleRefund,
		Severity:    audit.SeverityWarning,
		Description: "refund issued: " + cmd.Reason,
		TargetID:    record.ID,
		TargetModel: "payment",
		NewData:     newData,
		IPAddress:   cmd.Actor.IPAddress,
		UserAgent:   cmd.Actor.UserAgent,
	})
	s.notifier.PaymentRefunded(ctx, updated)

	return updated, nil
}
