// Package domain encodes the payment record entity and its lifecycle rules
package domain

import (
	"time"
)

// PaymentStatus represents the current state of a payment in its lifecycle
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusCompleted PaymentStatus = "completed"
	StatusFailed    PaymentStatus = "failed"
	StatusRefunded  PaymentStatus = "refunded"
)

// Capture holds the field set applied when a payment transitions to completed.
// A completion either applies all of these or none.
type Capture struct {
	GatewayPaymentID string
	PaymentMethod    string
	TransactionID    string
	PaidAt           time.Time
}

// Refund is the sub-record populated when a completed payment is refunded.
type Refund struct {
	AmountMinor   int64
	Reason        string
	TransactionID string
	RefundedAt    time.Time
	RefundedBy    string
}

type PaymentRecord struct {
	ID            string
	AppointmentID string
	PatientID     string
	DoctorID      string
	AmountMinor   int64
	Currency      string
	Status        PaymentStatus

	// Assigned exactly once, at creation; the lookup key for capture and
	// failure events which arrive before a gateway payment ID exists.
	GatewayOrderID string

	GatewayPaymentID *string
	PaymentMethod    *string
	TransactionID    *string
	FailureReason    *string
	PaidAt           *time.Time

	Refund *Refund

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewPaymentRecord(
	id string,
	appointmentID string,
	patientID string,
	doctorID string,
	amount Money,
	gatewayOrderID string,
) (*PaymentRecord, error) {
	if id == "" {
		return nil, NewMissingRequiredFieldError("payment ID")
	}
	if appointmentID == "" {
		return nil, NewMissingRequiredFieldError("appointment ID")
	}
	if patientID == "" {
		return nil, NewMissingRequiredFieldError("patient ID")
	}
	if doctorID == "" {
		return nil, NewMissingRequiredFieldError("doctor ID")
	}
	if gatewayOrderID == "" {
		return nil, NewMissingRequiredFieldError("gateway order ID")
	}

	now := time.Now()
	return &PaymentRecord{
		ID:             id,
		AppointmentID:  appointmentID,
		PatientID:      patientID,
		DoctorID:       doctorID,
		AmountMinor:    amount.Amount,
		Currency:       amount.Currency,
		Status:         StatusPending,
		GatewayOrderID: gatewayOrderID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Complete applies the pending -> completed transition and records the
// capture details. The persistent equivalent is a single conditional update;
// this method encodes the same rule for in-memory records.
func (p *PaymentRecord) Complete(c Capture) error {
	if err := p.canTransitionTo(StatusCompleted); err != nil {
		return err
	}
	p.Status = StatusCompleted
	p.GatewayPaymentID = &c.GatewayPaymentID
	if c.PaymentMethod != "" {
		p.PaymentMethod = &c.PaymentMethod
	}
	if c.TransactionID != "" {
		p.TransactionID = &c.TransactionID
	}
	paidAt := c.PaidAt
	p.PaidAt = &paidAt
	p.UpdatedAt = time.Now()
	return nil
}

// Fail applies the pending -> failed transition and records the reason.
func (p *PaymentRecord) Fail(reason string) error {
	if err := p.canTransitionTo(StatusFailed); err != nil {
		return err
	}
	p.Status = StatusFailed
	p.FailureReason = &reason
	p.UpdatedAt = time.Now()
	return nil
}

// ApplyRefund applies the completed -> refunded transition and records the
// refund sub-record.
func (p *PaymentRecord) ApplyRefund(r Refund) error {
	if err := p.CanRefund(r.AmountMinor); err != nil {
		return err
	}
	p.Status = StatusRefunded
	refund := r
	p.Refund = &refund
	p.UpdatedAt = time.Now()
	return nil
}

// CanRefund reports whether a refund of the given amount is permitted
// without mutating the record. It is checked before the gateway is contacted.
func (p *PaymentRecord) CanRefund(amountMinor int64) error {
	if p.Status != StatusCompleted {
		return NewNotRefundableError(p.Status)
	}
	if amountMinor <= 0 {
		return NewInvalidAmountError(amountMinor)
	}
	if amountMinor > p.AmountMinor {
		return NewRefundExceedsAmountError(amountMinor, p.AmountMinor)
	}
	return nil
}

func (p *PaymentRecord) canTransitionTo(target PaymentStatus) error {
	if p.IsTerminal() {
		return NewTerminalStateError(p.Status)
	}
	switch p.Status {
	case StatusPending:
		return p.allow(target, StatusCompleted, StatusFailed)
	case StatusCompleted:
		return p.allow(target, StatusRefunded)
	}
	return NewInvalidTransitionError(p.Status, target)
}

func (p *PaymentRecord) allow(target PaymentStatus, allowed ...PaymentStatus) error {
	for _, s := range allowed {
		if s == target {
			return nil
		}
	}
	return NewInvalidTransitionError(p.Status, target)
}

// IsTerminal reports whether the payment is in an absorbing state.
func (p *PaymentRecord) IsTerminal() bool {
	switch p.Status {
	case StatusFailed, StatusRefunded:
		return true
	default:
		return false
	}
}

// Reconstitute - special constructor for loading from the store
func Reconstitute(
	id, appointmentID, patientID, doctorID string,
	amountMinor int64, currency string,
	status PaymentStatus,
	gatewayOrderID string,
	gatewayPaymentID, paymentMethod, transactionID, failureReason *string,
	paidAt *time.Time,
	refund *Refund,
	createdAt, updatedAt time.Time,
) *PaymentRecord {
	return &PaymentRecord{
		ID:               id,
		AppointmentID:    appointmentID,
		PatientID:        patientID,
		DoctorID:         doctorID,
		AmountMinor:      amountMinor,
		Currency:         currency,
		Status:           status,
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: gatewayPaymentID,
		PaymentMethod:    paymentMethod,
		TransactionID:    transactionID,
		FailureReason:    failureReason,
		PaidAt:           paidAt,
		Refund:           refund,
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}
}
