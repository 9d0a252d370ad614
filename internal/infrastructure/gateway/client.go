// Package gateway implements the HTTP client for the payment gateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/docbook/docbook-payments/internal/application"
	"github.com/docbook/docbook-payments/internal/config"
	"github.com/shopspring/decimal"
)

type HTTPGatewayClient struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
}

func NewGatewayClient(cfg config.GatewayConfig) application.GatewayClient {
	return &HTTPGatewayClient{
		baseURL:   cfg.BaseURL,
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type orderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type orderResponse struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

type refundRequest struct {
	Amount string `json:"amount"`
	Notes  string `json:"notes,omitempty"`
}

type refundResponse struct {
	ID        string          `json:"id"`
	PaymentID string          `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	CreatedAt int64           `json:"created_at"`
}

func (c *HTTPGatewayClient) CreateOrder(ctx context.Context, req application.GatewayOrderRequest) (*application.GatewayOrderResponse, error) {
	url := fmt.Sprintf("%s/v1/orders", c.baseURL)
	body := orderRequest{
		Amount:   req.AmountMinor,
		Currency: req.Currency,
		Receipt:  req.Receipt,
	}

	resp, err := sendRequest[orderRequest, orderResponse](c, ctx, http.MethodPost, url, &body, req.Receipt)
	if err != nil {
		return nil, err
	}

	return &application.GatewayOrderResponse{
		OrderID:     resp.ID,
		AmountMinor: resp.Amount,
		Currency:    resp.Currency,
		Status:      resp.Status,
		CreatedAt:   time.Unix(resp.CreatedAt, 0),
	}, nil
}

func (c *HTTPGatewayClient) IssueRefund(ctx context.Context, req application.GatewayRefundRequest) (*application.GatewayRefundResponse, error) {
	url := fmt.Sprintf("%s/v1/payments/%s/refund", c.baseURL, req.GatewayPaymentID)
	body := refundRequest{
		Amount: req.Amount.StringFixed(2),
		Notes:  req.Notes,
	}

	resp, err := sendRequest[refundRequest, refundResponse](c, ctx, http.MethodPost, url, &body, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	return &application.GatewayRefundResponse{
		RefundID:         resp.ID,
		GatewayPaymentID: resp.PaymentID,
		Status:           resp.Status,
		CreatedAt:        time.Unix(resp.CreatedAt, 0),
	}, nil
}

func sendRequest[Req any, Resp any](c *HTTPGatewayClient, ctx context.Context, method, url string, reqBody *Req, idempotencyKey string) (*Resp, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("error marshalling json: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.SetBasicAuth(c.keyID, c.keySecret)
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		var gwErrResp gatewayErrorResponse
		if err := json.Unmarshal(body, &gwErrResp); err != nil {
			return nil, &GatewayError{
				Code:       "unparseable_response",
				Message:    string(body),
				StatusCode: resp.StatusCode,
			}
		}
		return nil, &GatewayError{
			Code:       gwErrResp.Err,
			Message:    gwErrResp.Message,
			StatusCode: resp.StatusCode,
		}
	}

	var gwResp Resp
	if err := json.NewDecoder(resp.Body).Decode(&gwResp); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}

	return &gwResp, nil
}
