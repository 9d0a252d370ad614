package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/docbook/docbook-payments/internal/application"
	"github.com/docbook/docbook-payments/internal/application/services"
	"github.com/docbook/docbook-payments/internal/interfaces/rest"
)

const (
	webhookSignatureHeader = "X-Gateway-Signature"
	maxWebhookBodyBytes    = 1 << 20
)

type webhookEnvelope struct {
	Event string       `json:"event"`
	Data  webhookEvent `json:"data"`
}

type webhookEvent struct {
	OrderID       string `json:"order_id"`
	PaymentID     string `json:"payment_id"`
	Method        string `json:"method"`
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
	RefundID      string `json:"refund_id"`
	CreatedAt     int64  `json:"created_at"`
}

// HandleWebhook verifies the signature over the exact transmitted bytes
// before any parsing, then hands the event to the reconciler. Unparseable
// but signature-valid bodies are acknowledged so the gateway does not retry
// them forever.
func (h *Handlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		rest.WriteError(w, application.NewValidationError(err))
		return
	}

	signature := r.Header.Get(webhookSignatureHeader)
	if err := h.verifier.VerifyWebhook(rawBody, signature); err != nil {
		h.logger.Warn("rejected webhook with invalid signature",
			"remote_addr", r.RemoteAddr,
			"body_bytes", len(rawBody),
		)
		rest.WriteError(w, application.NewSignatureError())
		return
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		h.logger.Warn("acknowledging unparseable webhook body", "error", err)
		rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	var occurredAt time.Time
	if envelope.Data.CreatedAt > 0 {
		occurredAt = time.Unix(envelope.Data.CreatedAt, 0)
	}

	event := services.Event{
		Kind:             envelope.Event,
		GatewayOrderID:   envelope.Data.OrderID,
		GatewayPaymentID: envelope.Data.PaymentID,
		PaymentMethod:    envelope.Data.Method,
		TransactionID:    envelope.Data.TransactionID,
		FailureReason:    envelope.Data.Reason,
		RefundID:         envelope.Data.RefundID,
		OccurredAt:       occurredAt,
	}

	if err := h.reconciler.Apply(r.Context(), event); err != nil {
		// Infrastructure failure: let the gateway retry.
		h.logger.Error("failed to apply webhook event",
			"kind", event.Kind,
			"gateway_order_id", event.GatewayOrderID,
			"error", err,
		)
		rest.WriteError(w, application.NewInternalError(err))
		return
	}

	rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
