package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/docbook/docbook-payments/internal/application"
	"github.com/docbook/docbook-payments/internal/audit"
	"github.com/docbook/docbook-payments/internal/domain"
)

// Webhook event kinds pushed by the gateway.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventRefundProcessed = "refund.processed"
)

// Event is a gateway webhook event after signature verification and JSON
// parsing. Capture and failure events carry the gateway order id; refund
// events carry the gateway payment id, the only key that exists for them.
type Event struct {
	Kind             string
	GatewayOrderID   string
	GatewayPaymentID string
	PaymentMethod    string
	TransactionID    string
	FailureReason    string
	RefundID         string
	OccurredAt       time.Time
}

// WebhookReconciler applies gateway-pushed events idempotently. Replayed or
// unknown events are acknowledged so the gateway stops retrying; every
// anomaly leaves an audit trace.
type WebhookReconciler struct {
	paymentRepo application.PaymentRepository
	notifier    application.Notifier
	auditSink   audit.Sink
	logger      *slog.Logger
}

func NewWebhookReconciler(
	paymentRepo application.PaymentRepository,
	notifier application.Notifier,
	auditSink audit.Sink,
	logger *slog.Logger,
) *WebhookReconciler {
	return &WebhookReconciler{
		paymentRepo: paymentRepo,
		notifier:    notifier,
		auditSink:   auditSink,
		logger:      logger,
	}
}

// Apply dispatches one event. A nil return means the event is settled from
// the gateway's point of view; only infrastructure failures (which the
// gateway should retry) return an error.
func (r *WebhookReconciler) Apply(ctx context.Context, event Event) error {
	switch event.Kind {
	case EventPaymentCaptured:
		return r.applyCapture(ctx, event)
	case EventPaymentFailed:
		return r.applyFailure(ctx, event)
	case EventRefundProcessed:
		return r.applyRefundProcessed(ctx, event)
	default:
		r.logger.Warn("ignoring unknown webhook event kind", "kind", event.Kind)
		r.recordAnomaly(event, "unknown webhook event kind: "+event.Kind)
		return nil
	}
}

func (r *WebhookReconciler) applyCapture(ctx context.Context, event Event) error {
	record, ok, err := r.lookupByOrderID(ctx, event)
	if err != nil || !ok {
		return err
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	applied, err := r.paymentRepo.CompleteIfPending(ctx, record.ID, domain.Capture{
		GatewayPaymentID: event.GatewayPaymentID,
		PaymentMethod:    event.PaymentMethod,
		TransactionID:    event.TransactionID,
		PaidAt:           occurredAt,
	})
	if err != nil {
		return err
	}
	if !applied {
		// Replay, or the client confirmation path got there first. Either
		// way the event is settled; do not re-run side effects.
		r.logger.Debug("capture event was a no-op",
			"payment_id", record.ID,
			"gateway_order_id", event.GatewayOrderID,
		)
		return nil
	}

	updated, err := r.paymentRepo.FindByID(ctx, record.ID)
	if err != nil {
		return err
	}

	newData, _ := json.Marshal(map[string]any{
		"status":             domain.StatusCompleted,
		"gateway_payment_id": event.GatewayPaymentID,
	})
	r.auditSink.Record(audit.Entry{
		ActorName:   "gateway",
		ActorRole:   "system",
		Action:      "payment.completed",
		Module:      audit.ModuleWebhook,
		Description: "payment captured via webhook for gateway order " + event.GatewayOrderID,
		TargetID:    record.ID,
		TargetModel: "payment",
		NewData:     newData,
	})
	r.notifier.PaymentCompleted(ctx, updated)

	return nil
}

func (r *WebhookReconciler) applyFailure(ctx context.Context, event Event) error {
	record, ok, err := r.lookupByOrderID(ctx, event)
	if err != nil || !ok {
		return err
	}

	reason := event.FailureReason
	if reason == "" {
		reason = "payment failed at gateway"
	}

	applied, err := r.paymentRepo.FailIfPending(ctx, record.ID, reason)
	if err != nil {
		return err
	}
	if !applied {
		r.logger.Debug("failure event was a no-op",
			"payment_id", record.ID,
			"status", record.Status,
		)
		return nil
	}

	updated, err := r.paymentRepo.FindByID(ctx, record.ID)
	if err != nil {
		return err
	}

	r.auditSink.Record(audit.Entry{
		ActorName:   "gateway",
		ActorRole:   "system",
		Action:      "payment.failed",
		Module:      audit.ModuleWebhook,
		Severity:    audit.SeverityWarning,
		Description: "payment failed at gateway: " + reason,
		TargetID:    record.ID,
		TargetModel: "payment",
	})
	r.notifier.PaymentFailed(ctx, updated)

	return nil
}

func (r *WebhookReconciler) applyRefundProcessed(ctx context.Context, event Event) error {
	record, err := r.paymentRepo.FindByGatewayPaymentID(ctx, event.GatewayPaymentID)
	if err != nil {
		if domain.IsErrorCode(err, domain.ErrCodePaymentNotFound) {
			r.logger.Warn("refund event for unknown payment",
				"gateway_payment_id", event.GatewayPaymentID,
			)
			r.recordAnomaly(event, "refund event for unknown gateway payment "+event.GatewayPaymentID)
			return nil
		}
		return err
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	if err := r.paymentRepo.AttachRefundTransaction(ctx, record.ID, event.RefundID, occurredAt); err != nil {
		return err
	}

	r.auditSink.Record(audit.Entry{
		ActorName:   "gateway",
		ActorRole:   "system",
		Action:      "payment.refund.reconciled",
		Module:      audit.ModuleWebhook,
		Description: "gateway refund " + event.RefundID + " reconciled",
		TargetID:    record.ID,
		TargetModel: "payment",
	})

	return nil
}

func (r *WebhookReconciler) lookupByOrderID(ctx context.Context, event Event) (*domain.PaymentRecord, bool, error) {
	record, err := r.paymentRepo.FindByGatewayOrderID(ctx, event.GatewayOrderID)
	if err != nil {
		if domain.IsErrorCode(err, domain.ErrCodePaymentNotFound) {
			r.logger.Warn("webhook event for unknown order",
				"kind", event.Kind,
				"gateway_order_id", event.GatewayOrderID,
			)
			r.recordAnomaly(event, "event for unknown gateway order "+event.GatewayOrderID)
			return nil, false, nil
		}
		return nil, false, err
	}
	return record, true, nil
}

func (r *WebhookReconciler) recordAnomaly(event Event, description string) {
	r.auditSink.Record(audit.Entry{
		ActorName:   "gateway",
		ActorRole:   "system",
		Action:      "webhook.anomaly",
		Module:      audit.ModuleWebhook,
		Severity:    audit.SeverityWarning,
		Description: description,
		TargetModel: "payment",
		TargetID:    event.GatewayOrderID,
	})
}
