package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/docbook/docbook-payments/internal/application"
	"github.com/docbook/docbook-payments/internal/application/services"
	"github.com/docbook/docbook-payments/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testActor() services.Actor {
	return services.Actor{
		ID:        "admin-1",
		Name:      "Asha Rao",
		Role:      "admin",
		IPAddress: "10.0.0.1",
		UserAgent: "test-client",
	}
}

// pendingRecord builds a pending record and seeds it into the repository.
func pendingRecord(t *testing.T, repo *services.MockPaymentRepository) *domain.PaymentRecord {
	t.Helper()
	money, err := domain.NewMoney(50000, "INR")
	require.NoError(t, err)
	record, err := domain.NewPaymentRecord("pay-123", "appt-456", "patient-789", "doctor-012", money, "order_abc")
	require.NoError(t, err)
	repo.Seed(record)
	return record
}

// completedRecord builds a completed record and seeds it into the repository.
func completedRecord(t *testing.T, repo *services.MockPaymentRepository) *domain.PaymentRecord {
	t.Helper()
	record := pendingRecord(t, repo)
	require.NoError(t, record.Complete(domain.Capture{
		GatewayPaymentID: "gwpay_001",
		PaymentMethod:    "upi",
		TransactionID:    "txn_001",
		PaidAt:           time.Now(),
	}))
	repo.Seed(record)
	return record
}

func TestOrderService_CreateOrder(t *testing.T) {
	cmd := services.CreateOrderCommand{
		AppointmentID: "appt-456",
		PatientID:     "patient-789",
		DoctorID:      "doctor-012",
		AmountMinor:   50000,
		Currency:      "INR",
		Actor:         testActor(),
	}

	t.Run("creates gateway order and pending record", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		gateway := &services.MockGatewayClient{}
		sink := &services.CollectingSink{}
		svc := services.NewOrderService(repo, gateway, sink, testLogger())

		record, err := svc.CreateOrder(context.Background(), cmd)

		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, record.Status)
		assert.Equal(t, "order_mock", record.GatewayOrderID)
		assert.Equal(t, int64(50000), record.AmountMinor)
		assert.Equal(t, 1, gateway.CreateOrderCalls)

		stored, err := repo.FindByID(context.Background(), record.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, stored.Status)

		require.Len(t, sink.ByAction("payment.order.created"), 1)
	})

	t.Run("rejects missing identifiers without calling gateway", func(t *testing.T) {
		blank := map[string]func(c *services.CreateOrderCommand){
			"appointment ID": func(c *services.CreateOrderCommand) { c.AppointmentID = "" },
			"patient ID":     func(c *services.CreateOrderCommand) { c.PatientID = "" },
			"doctor ID":      func(c *services.CreateOrderCommand) { c.DoctorID = "" },
		}

		for field, clear := range blank {
			repo := services.NewMockPaymentRepository()
			gateway := &services.MockGatewayClient{}
			svc := services.NewOrderService(repo, gateway, &services.CollectingSink{}, testLogger())

			bad := cmd
			clear(&bad)
			_, err := svc.CreateOrder(context.Background(), bad)

			svcErr, ok := application.IsServiceError(err)
			require.True(t, ok, field)
			assert.Equal(t, application.ErrCodeValidation, svcErr.Code, field)
			assert.Contains(t, err.Error(), field+" is required")
			assert.Equal(t, 0, gateway.CreateOrderCalls, field)
		}
	})

	t.Run("rejects invalid amount without calling gateway", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		gateway := &services.MockGatewayClient{}
		svc := services.NewOrderService(repo, gateway, &services.CollectingSink{}, testLogger())

		bad := cmd
		bad.AmountMinor = 0
		_, err := svc.CreateOrder(context.Background(), bad)

		svcErr, ok := application.IsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, application.ErrCodeValidation, svcErr.Code)
		assert.Equal(t, 0, gateway.CreateOrderCalls)
	})

	t.Run("gateway failure persists nothing", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		gateway := &services.MockGatewayClient{
			CreateOrderFn: func(ctx context.Context, req application.GatewayOrderRequest) (*application.GatewayOrderResponse, error) {
				return nil, errors.New("gateway unavailable")
			},
		}
		svc := services.NewOrderService(repo, gateway, &services.CollectingSink{}, testLogger())

		_, err := svc.CreateOrder(context.Background(), cmd)

		svcErr, ok := application.IsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, application.ErrCodeGatewayFailure, svcErr.Code)

		records, err := repo.ListByPatient(context.Background(), "patient-789", 10, 0)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("persistence failure after gateway success is audited as critical", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		repo.CreateFn = func(ctx context.Context, record *domain.PaymentRecord) error {
			return errors.New("connection reset")
		}
		sink := &services.CollectingSink{}
		svc := services.NewOrderService(repo, &services.MockGatewayClient{}, sink, testLogger())

		_, err := svc.CreateOrder(context.Background(), cmd)

		svcErr, ok := application.IsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, application.ErrCodeInternal, svcErr.Code)

		orphaned := sink.ByAction("payment.order.orphaned")
		require.Len(t, orphaned, 1)
		assert.Contains(t, orphaned[0].Description, "order_mock")
	})
}
