package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/docbook/docbook-payments/internal/application"
	"github.com/docbook/docbook-payments/internal/application/services"
	"github.com/docbook/docbook-payments/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefundProcessor_Refund(t *testing.T) {
	cmd := services.RefundCommand{
		PaymentID:   "pay-123",
		AmountMinor: 50000,
		Reason:      "appointment cancelled",
		Actor:       testActor(),
	}

	t.Run("refunds a completed payment", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		completedRecord(t, repo)
		gateway := &services.MockGatewayClient{}
		notifier := &services.MockNotifier{}
		sink := &services.CollectingSink{}
		processor := services.NewRefundProcessor(repo, gateway, notifier, sink, testLogger())

		updated, err := processor.Refund(context.Background(), cmd)

		require.NoError(t, err)
		assert.Equal(t, domain.StatusRefunded, updated.Status)
		require.NotNil(t, updated.Refund)
		assert.Equal(t, int64(50000), updated.Refund.AmountMinor)
		assert.Equal(t, "rfnd_mock", updated.Refund.TransactionID)
		assert.Equal(t, "admin-1", updated.Refund.RefundedBy)
		assert.Equal(t, 1, gateway.IssueRefundCalls)
		assert.Equal(t, 1, notifier.RefundedCalls)
		require.Len(t, sink.ByAction("payment.refunded"), 1)
	})

	t.Run("each refund carries a fresh idempotency key", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		completedRecord(t, repo)
		var keys []string
		gateway := &services.MockGatewayClient{
			IssueRefundFn: func(ctx context.Context, req application.GatewayRefundRequest) (*application.GatewayRefundResponse, error) {
				keys = append(keys, req.IdempotencyKey)
				return nil, errors.New("gateway timeout")
			},
		}
		processor := services.NewRefundProcessor(repo, gateway, &services.MockNotifier{}, &services.CollectingSink{}, testLogger())

		_, _ = processor.Refund(context.Background(), cmd)
		_, _ = processor.Refund(context.Background(), cmd)

		require.Len(t, keys, 2)
		assert.NotEmpty(t, keys[0])
		assert.NotEmpty(t, keys[1])
		assert.NotEqual(t, keys[0], keys[1])
	})

	t.Run("partial refund keeps the original amount intact", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		completedRecord(t, repo)
		processor := services.NewRefundProcessor(repo, &services.MockGatewayClient{}, &services.MockNotifier{}, &services.CollectingSink{}, testLogger())

		partial := cmd
		partial.AmountMinor = 20000
		updated, err := processor.Refund(context.Background(), partial)

		require.NoError(t, err)
		assert.Equal(t, domain.StatusRefunded, updated.Status)
		assert.Equal(t, int64(20000), updated.Refund.AmountMinor)
		assert.Equal(t, int64(50000), updated.AmountMinor)
	})

	t.Run("rejects refunding a pending payment without calling gateway", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		pendingRecord(t, repo)
		gateway := &services.MockGatewayClient{}
		processor := services.NewRefundProcessor(repo, gateway, &services.MockNotifier{}, &services.CollectingSink{}, testLogger())

		_, err := processor.Refund(context.Background(), cmd)

		svcErr, ok := application.IsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, application.ErrCodeStateConflict, svcErr.Code)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeNotRefundable))
		assert.Equal(t, 0, gateway.IssueRefundCalls)
	})

	t.Run("rejects refund above the paid amount without calling gateway", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		completedRecord(t, repo)
		gateway := &services.MockGatewayClient{}
		processor := services.NewRefundProcessor(repo, gateway, &services.MockNotifier{}, &services.CollectingSink{}, testLogger())

		excessive := cmd
		excessive.AmountMinor = 60000
		_, err := processor.Refund(context.Background(), excessive)

		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeRefundExceedsAmount))
		assert.Equal(t, 0, gateway.IssueRefundCalls)
	})

	t.Run("rejects refunding twice", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		completedRecord(t, repo)
		gateway := &services.MockGatewayClient{}
		processor := services.NewRefundProcessor(repo, gateway, &services.MockNotifier{}, &services.CollectingSink{}, testLogger())

		_, err := processor.Refund(context.Background(), cmd)
		require.NoError(t, err)

		_, err = processor.Refund(context.Background(), cmd)

		svcErr, ok := application.IsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, application.ErrCodeStateConflict, svcErr.Code)
		assert.Equal(t, 1, gateway.IssueRefundCalls)
	})

	t.Run("gateway failure leaves the payment completed", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		record := completedRecord(t, repo)
		gateway := &services.MockGatewayClient{
			IssueRefundFn: func(ctx context.Context, req application.GatewayRefundRequest) (*application.GatewayRefundResponse, error) {
				return nil, errors.New("gateway timeout")
			},
		}
		notifier := &services.MockNotifier{}
		processor := services.NewRefundProcessor(repo, gateway, notifier, &services.CollectingSink{}, testLogger())

		_, err := processor.Refund(context.Background(), cmd)

		svcErr, ok := application.IsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, application.ErrCodeGatewayFailure, svcErr.Code)

		stored, err := repo.FindByID(context.Background(), record.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, stored.Status)
		assert.Nil(t, stored.Refund)
		assert.Equal(t, 0, notifier.RefundedCalls)
	})

	t.Run("rejects unknown payment", func(t *testing.T) {
		processor := services.NewRefundProcessor(services.NewMockPaymentRepository(), &services.MockGatewayClient{}, &services.MockNotifier{}, &services.CollectingSink{}, testLogger())

		_, err := processor.Refund(context.Background(), cmd)

		svcErr, ok := application.IsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, application.ErrCodeNotFound, svcErr.Code)
	})

	t.Run("rejects missing actor", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		completedRecord(t, repo)
		processor := services.NewRefundProcessor(repo, &services.MockGatewayClient{}, &services.MockNotifier{}, &services.CollectingSink{}, testLogger())

		anonymous := cmd
		anonymous.Actor = services.Actor{}
		_, err := processor.Refund(context.Background(), anonymous)

		svcErr, ok := application.IsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, application.ErrCodeValidation, svcErr.Code)
	})
}
