package testhelpers

import (
	"testing"
	"time"

	"github.com/docbook/docbook-payments/internal/domain"
	"github.com/docbook/docbook-payments/internal/security"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// NewFieldCipher returns a cipher with a fixed test key.
func NewFieldCipher(t *testing.T) *security.FieldCipher {
	t.Helper()
	cipher, err := security.NewFieldCipher([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	return cipher
}

// PendingPayment builds a pending record with unique identifiers.
func PendingPayment(t *testing.T) *domain.PaymentRecord {
	t.Helper()
	money, err := domain.NewMoney(50000, "INR")
	require.NoError(t, err)

	record, err := domain.NewPaymentRecord(
		uuid.New().String(),
		uuid.New().String(),
		uuid.New().String(),
		uuid.New().String(),
		money,
		"order_"+uuid.New().String(),
	)
	require.NoError(t, err)
	return record
}

// CompletedPayment builds a completed record with unique identifiers.
func CompletedPayment(t *testing.T) *domain.PaymentRecord {
	t.Helper()
	record := PendingPayment(t)
	require.NoError(t, record.Complete(domain.Capture{
		GatewayPaymentID: "gwpay_" + uuid.New().String(),
		PaymentMethod:    "upi",
		TransactionID:    "txn_" + uuid.New().String(),
		PaidAt:           time.Now(),
	}))
	return record
}
