package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/docbook/docbook-payments/internal/application"
	"github.com/docbook/docbook-payments/internal/audit"
	"github.com/docbook/docbook-payments/internal/domain"
	"github.com/docbook/docbook-payments/internal/security"
)

// ConfirmService handles the client-reported confirmation path. It races
// the webhook capture path for the pending -> completed transition; whoever
// loses treats its arrival as a no-op and still reports success.
type ConfirmService struct {
	paymentRepo application.PaymentRepository
	verifier    *security.SignatureVerifier
	notifier    application.Notifier
	auditSink   audit.Sink
	logger      *slog.Logger
}

func NewConfirmService(
	paymentRepo application.PaymentRepository,
	verifier *security.SignatureVerifier,
	notifier application.Notifier,
	auditSink audit.Sink,
	logger *slog.Logger,
) *ConfirmService {
	return &ConfirmService{
		paymentRepo: paymentRepo,
		verifier:    verifier,
		notifier:    notifier,
		auditSink:   auditSink,
		logger:      logger,
	}
}

func (s *ConfirmService) Confirm(ctx context.Context, cmd ConfirmCommand) (*domain.PaymentRecord, error) {
	if cmd.GatewayOrderID == "" {
		return nil, application.NewValidationError(domain.NewMissingRequiredFieldError("gateway order ID"))
	}
	if cmd.GatewayPaymentID == "" {
		return nil, application.NewValidationError(domain.NewMissingRequiredFieldError("gateway payment ID"))
	}
	if cmd.Signature == "" {
		return nil, application.NewValidationError(domain.NewMissingRequiredFieldError("signature"))
	}

	if err := s.verifier.VerifyClientConfirmation(cmd.GatewayOrderID, cmd.GatewayPaymentID, cmd.Signature); err != nil {
		s.auditSink.Record(audit.Entry{
			ActorID:     cmd.Actor.ID,
			ActorName:   cmd.Actor.Name,
			ActorRole:   cmd.Actor.Role,
			Action:      "payment.confirm.signature_rejected",
			Module:      audit.ModuleSecurity,
			Severity:    audit.SeverityWarning,
			Description: "client confirmation rejected for gateway order " + cmd.GatewayOrderID,
			IPAddress:   cmd.Actor.IPAddress,
			UserAgent:   cmd.Actor.UserAgent,
		})
		return nil, application.NewSignatureError()
	}

	record, err := s.paymentRepo.FindByGatewayOrderID(ctx, cmd.GatewayOrderID)
	if err != nil {
		if domain.IsErrorCode(err, domain.ErrCodePaymentNotFound) {
			return nil, application.NewNotFoundError(err)
		}
		return nil, application.NewInternalError(err)
	}

	switch record.Status {
	case domain.StatusCompleted:
		// Webhook capture won the race. The payment is confirmed either way.
		return record, nil
	case domain.StatusFailed, domain.StatusRefunded:
		return nil, application.NewStateConflictError(domain.NewTerminalStateError(record.Status))
	}

	applied, err := s.paymentRepo.CompleteIfPending(ctx, record.ID, domain.Capture{
		GatewayPaymentID: cmd.GatewayPaymentID,
		PaidAt:           time.Now(),
	})
	if err != nil {
		return nil, application.NewInternalError(err)
	}

	updated, err := s.paymentRepo.FindByID(ctx, record.ID)
	if err != nil {
		return nil, application.NewInternalError(err)
	}

	if !applied {
		// Lost the race after the status read; the record left pending in
		// the meantime. A concurrent completion is still a confirmed
		// payment, anything else is a conflict.
		if updated.Status != domain.StatusCompleted {
			return nil, application.NewStateConflictError(domain.NewTerminalStateError(updated.Status))
		}
		return updated, nil
	}

	s.auditSink.Record(audit.Entry{
		ActorID:     cmd.Actor.ID,
		ActorName:   cmd.Actor.Name,
		ActorRole:   cmd.Actor.Role,
		Action:      "payment.completed",
		Module:      audit.ModulePayment,
		Description: "payment confirmed by client for gateway order " + cmd.GatewayOrderID,
		TargetID:    record.ID,
		TargetModel: "payment",
		IPAddress:   cmd.Actor.IPAddress,
		UserAgent:   cmd.Actor.UserAgent,
	})
	s.notifier.PaymentCompleted(ctx, updated)

	return updated, nil
}
