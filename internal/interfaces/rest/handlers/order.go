package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/docbook/docbook-payments/internal/application"
	"github.com/docbook/docbook-payments/internal/application/services"
	"github.com/docbook/docbook-payments/internal/interfaces/rest"
)

type createOrderRequest struct {
	AppointmentID string `json:"appointment_id"`
	PatientID     string `json:"patient_id"`
	DoctorID      string `json:"doctor_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

type createOrderResponse struct {
	Payment        rest.Payment `json:"payment"`
	GatewayOrderID string       `json:"gateway_order_id"`
	PublishableKey string       `json:"publishable_key"`
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, application.NewValidationError(err))
		return
	}

	record, err := h.orderService.CreateOrder(r.Context(), services.CreateOrderCommand{
		AppointmentID: req.AppointmentID,
		PatientID:     req.PatientID,
		DoctorID:      req.DoctorID,
		AmountMinor:   req.Amount,
		Currency:      req.Currency,
		Actor:         actorFromRequest(r),
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, createOrderResponse{
		Payment:        rest.ToAPIPayment(record),
		GatewayOrderID: record.GatewayOrderID,
		PublishableKey: h.publishableKey,
	})
}

type confirmRequest struct {
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
}

func (h *Handlers) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, application.NewValidationError(err))
		return
	}

	record, err := h.confirmService.Confirm(r.Context(), services.ConfirmCommand{
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
		Actor:            actorFromRequest(r),
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.ToAPIPayment(record))
}

type refundRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

func (h *Handlers) RefundPayment(w http.ResponseWriter, r *http.Request) {
	paymentID := r.PathValue("id")

	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, application.NewValidationError(err))
		return
	}

	record, err := h.refundService.Refund(r.Context(), services.RefundCommand{
		PaymentID:   paymentID,
		AmountMinor: req.Amount,
		Reason:      req.Reason,
		Actor:       actorFromRequest(r),
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.ToAPIPayment(record))
}

func (h *Handlers) GetPayment(w http.ResponseWriter, r *http.Request) {
	record, err := h.queryService.GetPayment(r.Context(), r.PathValue("id"))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, rest.ToAPIPayment(record))
}

func (h *Handlers) ListPatientPayments(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	records, err := h.queryService.ListPatientPayments(r.Context(), r.PathValue("patientId"), limit, offset)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	payments := make([]rest.Payment, 0, len(records))
	for _, rec := range records {
		payments = append(payments, rest.ToAPIPayment(rec))
	}
	rest.WriteJSON(w, http.StatusOK, payments)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
