package services

// Actor identifies who triggered an operation, denormalized for the audit
// trail.
type Actor struct {
	ID        string
	Name      string
	Role      string
	IPAddress string
	UserAgent string
}

type CreateOrderCommand struct {
	AppointmentID string
	PatientID     string
	DoctorID      string
	AmountMinor   int64
	Currency      string
	Actor         Actor
}

type ConfirmCommand struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	Actor            Actor
}

type RefundCommand struct {
	PaymentID   string
	AmountMinor int64
	Reason      string
	Actor       Actor
}
