package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/docbook/docbook-payments/internal/application"
	"github.com/docbook/docbook-payments/internal/domain"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// WriteError maps application errors to HTTP responses
func WriteError(w http.ResponseWriter, err error) {
	statusCode := application.ToHTTPStatus(err)
	errorCode := application.ToErrorCode(err)

	response := ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    errorCode,
			Message: err.Error(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Data:    data,
	})
}

// Payment is the API projection of a payment record.
type Payment struct {
	ID               string          `json:"id"`
	AppointmentID    string          `json:"appointment_id"`
	PatientID        string          `json:"patient_id"`
	DoctorID         string          `json:"doctor_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	GatewayOrderID   string          `json:"gateway_order_id"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty"`
	PaymentMethod    string          `json:"payment_method,omitempty"`
	FailureReason    string          `json:"failure_reason,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	Refund           *PaymentRefund  `json:"refund,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type PaymentRefund struct {
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason,omitempty"`
	RefundedAt time.Time       `json:"refunded_at"`
	RefundedBy string          `json:"refunded_by"`
}

func ToAPIPayment(p *domain.PaymentRecord) Payment {
	out := Payment{
		ID:             p.ID,
		AppointmentID:  p.AppointmentID,
		PatientID:      p.PatientID,
		DoctorID:       p.DoctorID,
		Amount:         domain.MinorToDecimal(p.AmountMinor),
		Currency:       p.Currency,
		Status:         string(p.Status),
		GatewayOrderID: p.GatewayOrderID,
		PaidAt:         p.PaidAt,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.GatewayPaymentID != nil {
		out.GatewayPaymentID = *p.GatewayPaymentID
	}
	if p.PaymentMethod != nil {
		out.PaymentMethod = *p.PaymentMethod
	}
	if p.FailureReason != nil {
		out.FailureReason = *p.FailureReason
	}
	if p.Refund != nil {
		out.Refund = &PaymentRefund{
			Amount:     domain.MinorToDecimal(p.Refund.AmountMinor),
			Reason:     p.Refund.Reason,
			RefundedAt: p.Refund.RefundedAt,
			RefundedBy: p.Refund.RefundedBy,
		}
	}
	return out
}
