package services_test

import (
	"context"
	"testing"

	"github.com/docbook/docbook-payments/internal/application"
	"github.com/docbook/docbook-payments/internal/application/services"
	"github.com/docbook/docbook-payments/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryService_GetPayment(t *testing.T) {
	t.Run("returns the record", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		record := pendingRecord(t, repo)
		svc := services.NewQueryService(repo)

		got, err := svc.GetPayment(context.Background(), record.ID)

		require.NoError(t, err)
		assert.Equal(t, record.ID, got.ID)
	})

	t.Run("unknown id returns not found", func(t *testing.T) {
		svc := services.NewQueryService(services.NewMockPaymentRepository())

		_, err := svc.GetPayment(context.Background(), "pay-missing")

		svcErr, ok := application.IsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, application.ErrCodeNotFound, svcErr.Code)
	})

	t.Run("rejects empty id", func(t *testing.T) {
		svc := services.NewQueryService(services.NewMockPaymentRepository())

		_, err := svc.GetPayment(context.Background(), "")

		svcErr, ok := application.IsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, application.ErrCodeValidation, svcErr.Code)
	})
}

func TestQueryService_ListPatientPayments(t *testing.T) {
	t.Run("lists payments for the patient only", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		record := pendingRecord(t, repo)

		money, err := domain.NewMoney(30000, "INR")
		require.NoError(t, err)
		other, err := domain.NewPaymentRecord("pay-999", "appt-999", "patient-999", "doctor-012", money, "order_zzz")
		require.NoError(t, err)
		repo.Seed(other)

		svc := services.NewQueryService(repo)

		records, err := svc.ListPatientPayments(context.Background(), record.PatientID, 10, 0)

		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, record.ID, records[0].ID)
	})

	t.Run("clamps an out-of-range limit", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		record := pendingRecord(t, repo)
		svc := services.NewQueryService(repo)

		records, err := svc.ListPatientPayments(context.Background(), record.PatientID, -5, -3)

		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("rejects empty patient id", func(t *testing.T) {
		svc := services.NewQueryService(services.NewMockPaymentRepository())

		_, err := svc.ListPatientPayments(context.Background(), "", 10, 0)

		svcErr, ok := application.IsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, application.ErrCodeValidation, svcErr.Code)
	})
}
