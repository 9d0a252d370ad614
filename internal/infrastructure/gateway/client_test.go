package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/docbook/docbook-payments/internal/application"
	"github.com/docbook/docbook-payments/internal/config"
	"github.com/docbook/docbook-payments/internal/infrastructure/gateway"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGatewayClient(baseURL string) application.GatewayClient {
	return gateway.NewGatewayClient(config.GatewayConfig{
		BaseURL:   baseURL,
		KeyID:     "pk_test_123",
		KeySecret: "key-secret",
		Timeout:   5 * time.Second,
	})
}

func TestHTTPGatewayClient_CreateOrder(t *testing.T) {
	var gotIdempotencyKey, gotUser, gotPass string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/orders", r.URL.Path)
		gotIdempotencyKey = r.Header.Get("Idempotency-Key")
		gotUser, gotPass, _ = r.BasicAuth()

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 50000, body["amount"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"id":         "order_abc",
			"amount":     50000,
			"currency":   "INR",
			"status":     "created",
			"created_at": 1756600000,
		})
	}))
	defer server.Close()

	client := newGatewayClient(server.URL)
	resp, err := client.CreateOrder(context.Background(), application.GatewayOrderRequest{
		AmountMinor: 50000,
		Currency:    "INR",
		Receipt:     "pay-123",
	})

	require.NoError(t, err)
	assert.Equal(t, "order_abc", resp.OrderID)
	assert.Equal(t, "pay-123", gotIdempotencyKey)
	assert.Equal(t, "pk_test_123", gotUser)
	assert.Equal(t, "key-secret", gotPass)
}

func TestHTTPGatewayClient_IssueRefund(t *testing.T) {
	t.Run("sends the idempotency key header", func(t *testing.T) {
		var gotIdempotencyKey string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/payments/gwpay_001/refund", r.URL.Path)
			gotIdempotencyKey = r.Header.Get("Idempotency-Key")

			json.NewEncoder(w).Encode(map[string]any{
				"id":         "rfnd_001",
				"payment_id": "gwpay_001",
				"amount":     "500.00",
				"status":     "processed",
				"created_at": 1756600000,
			})
		}))
		defer server.Close()

		client := newGatewayClient(server.URL)
		resp, err := client.IssueRefund(context.Background(), application.GatewayRefundRequest{
			GatewayPaymentID: "gwpay_001",
			Amount:           decimal.New(50000, -2),
			Notes:            "appointment cancelled",
			IdempotencyKey:   "idem-refund-1",
		})

		require.NoError(t, err)
		assert.Equal(t, "rfnd_001", resp.RefundID)
		assert.Equal(t, "idem-refund-1", gotIdempotencyKey)
	})

	t.Run("maps a gateway rejection to a structured error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{
				"error":   "BAD_REQUEST_ERROR",
				"message": "refund amount exceeds captured amount",
			})
		}))
		defer server.Close()

		client := newGatewayClient(server.URL)
		_, err := client.IssueRefund(context.Background(), application.GatewayRefundRequest{
			GatewayPaymentID: "gwpay_001",
			Amount:           decimal.New(50000, -2),
			IdempotencyKey:   "idem-refund-1",
		})

		var gwErr *gateway.GatewayError
		require.ErrorAs(t, err, &gwErr)
		assert.Equal(t, "BAD_REQUEST_ERROR", gwErr.Code)
		assert.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
		assert.False(t, gateway.IsTransient(err))
	})
}
