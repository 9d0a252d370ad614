package postgres

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/docbook/docbook-payments/internal/domain"
	"github.com/docbook/docbook-payments/internal/security"
)

//go:embed schema.sql
var Schema string

// PaymentModel mirrors the payments table. Transaction ids are stored as
// cipher envelopes; everything queried by equality stays plaintext.
type PaymentModel struct {
	ID            string
	AppointmentID string
	PatientID     string
	DoctorID      string
	AmountMinor   int64
	Currency      string
	Status        string

	GatewayOrderID   string
	GatewayPaymentID *string
	PaymentMethod    *string
	TransactionID    *string
	FailureReason    *string
	PaidAt           *time.Time

	RefundAmountMinor   *int64
	RefundReason        *string
	RefundTransactionID *string
	RefundedAt          *time.Time
	RefundedBy          *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func toDBModel(p *domain.PaymentRecord, cipher *security.FieldCipher) (*PaymentModel, error) {
	m := &PaymentModel{
		ID:               p.ID,
		AppointmentID:    p.AppointmentID,
		PatientID:        p.PatientID,
		DoctorID:         p.DoctorID,
		AmountMinor:      p.AmountMinor,
		Currency:         p.Currency,
		Status:           string(p.Status),
		GatewayOrderID:   p.GatewayOrderID,
		GatewayPaymentID: p.GatewayPaymentID,
		PaymentMethod:    p.PaymentMethod,
		FailureReason:    p.FailureReason,
		PaidAt:           p.PaidAt,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}

	if p.TransactionID != nil {
		enc, err := cipher.Encrypt(*p.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("encrypt transaction id: %w", err)
		}
		m.TransactionID = &enc
	}

	if p.Refund != nil {
		m.RefundAmountMinor = &p.Refund.AmountMinor
		m.RefundReason = &p.Refund.Reason
		refundedAt := p.Refund.RefundedAt
		m.RefundedAt = &refundedAt
		m.RefundedBy = &p.Refund.RefundedBy
		if p.Refund.TransactionID != "" {
			enc, err := cipher.Encrypt(p.Refund.TransactionID)
			if err != nil {
				return nil, fmt.Errorf("encrypt refund transaction id: %w", err)
			}
			m.RefundTransactionID = &enc
		}
	}

	return m, nil
}

func toDomainModel(m PaymentModel, cipher *security.FieldCipher) (*domain.PaymentRecord, error) {
	var transactionID *string
	if m.TransactionID != nil {
		dec, err := cipher.Decrypt(*m.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("decrypt transaction id for payment %s: %w", m.ID, err)
		}
		transactionID = &dec
	}

	// A refund sub-record exists if anything refund-related is set. A
	// gateway-reconciled transaction id can land before any locally
	// initiated refund, leaving the amount NULL; it must still be visible.
	var refund *domain.Refund
	if m.RefundAmountMinor != nil || m.RefundTransactionID != nil {
		refund = &domain.Refund{}
		if m.RefundAmountMinor != nil {
			refund.AmountMinor = *m.RefundAmountMinor
		}
		if m.RefundReason != nil {
			refund.Reason = *m.RefundReason
		}
		if m.RefundTransactionID != nil {
			dec, err := cipher.Decrypt(*m.RefundTransactionID)
			if err != nil {
				return nil, fmt.Errorf("decrypt refund transaction id for payment %s: %w", m.ID, err)
			}
			refund.TransactionID = dec
		}
		if m.RefundedAt != nil {
			refund.RefundedAt = *m.RefundedAt
		}
		if m.RefundedBy != nil {
			refund.RefundedBy = *m.RefundedBy
		}
	}

	return domain.Reconstitute(
		m.ID, m.AppointmentID, m.PatientID, m.DoctorID,
		m.AmountMinor, m.Currency,
		domain.PaymentStatus(m.Status),
		m.GatewayOrderID,
		m.GatewayPaymentID, m.PaymentMethod, transactionID, m.FailureReason,
		m.PaidAt,
		refund,
		m.CreatedAt, m.UpdatedAt,
	), nil
}
