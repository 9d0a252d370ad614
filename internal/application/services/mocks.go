package services

import (
	"context"
	"sync"
	"time"

	"github.com/docbook/docbook-payments/internal/application"
	"github.com/docbook/docbook-payments/internal/audit"
	"github.com/docbook/docbook-payments/internal/domain"
)

// MockPaymentRepository is an in-memory repository with the same atomicity
// contract as the Postgres implementation: the conditional transitions hold
// the lock for the whole check-and-apply, so concurrent callers observe
// exactly one applied transition.
type MockPaymentRepository struct {
	mu      sync.Mutex
	records map[string]*domain.PaymentRecord

	CreateFn            func(ctx context.Context, record *domain.PaymentRecord) error
	CompleteIfPendingFn func(ctx context.Context, id string, capture domain.Capture) (bool, error)
}

func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		records: make(map[string]*domain.PaymentRecord),
	}
}

func (m *MockPaymentRepository) Create(ctx context.Context, record *domain.PaymentRecord) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, record)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *record
	m.records[record.ID] = &clone
	return nil
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id string) (*domain.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[id]; ok {
		clone := *r
		return &clone, nil
	}
	return nil, domain.NewPaymentNotFoundError(id)
}

func (m *MockPaymentRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.GatewayOrderID == gatewayOrderID {
			clone := *r
			return &clone, nil
		}
	}
	return nil, domain.NewPaymentNotFoundError(gatewayOrderID)
}

func (m *MockPaymentRepository) FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.GatewayPaymentID != nil && *r.GatewayPaymentID == gatewayPaymentID {
			clone := *r
			return &clone, nil
		}
	}
	return nil, domain.NewPaymentNotFoundError(gatewayPaymentID)
}

func (m *MockPaymentRepository) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*domain.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.PaymentRecord
	for _, r := range m.records {
		if r.PatientID == patientID {
			clone := *r
			out = append(out, &clone)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockPaymentRepository) CompleteIfPending(ctx context.Context, id string, capture domain.Capture) (bool, error) {
	if m.CompleteIfPendingFn != nil {
		return m.CompleteIfPendingFn(ctx, id, capture)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return false, domain.NewPaymentNotFoundError(id)
	}
	if r.Status != domain.StatusPending {
		return false, nil
	}
	if err := r.Complete(capture); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *MockPaymentRepository) FailIfPending(ctx context.Context, id string, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return false, domain.NewPaymentNotFoundError(id)
	}
	if r.Status != domain.StatusPending {
		return false, nil
	}
	if err := r.Fail(reason); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *MockPaymentRepository) RefundIfCompleted(ctx context.Context, id string, refund domain.Refund) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return false, domain.NewPaymentNotFoundError(id)
	}
	if r.Status != domain.StatusCompleted {
		return false, nil
	}
	if err := r.ApplyRefund(refund); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *MockPaymentRepository) AttachRefundTransaction(ctx context.Context, id string, transactionID string, processedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return domain.NewPaymentNotFoundError(id)
	}
	if r.Refund == nil {
		r.Refund = &domain.Refund{RefundedAt: processedAt}
	}
	r.Refund.TransactionID = transactionID
	r.UpdatedAt = time.Now()
	return nil
}

// Seed stores a record directly, bypassing validation.
func (m *MockPaymentRepository) Seed(record *domain.PaymentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *record
	m.records[record.ID] = &clone
}

// MockGatewayClient implements application.GatewayClient with overridable
// behavior per call.
type MockGatewayClient struct {
	mu sync.Mutex

	CreateOrderFn func(ctx context.Context, req application.GatewayOrderRequest) (*application.GatewayOrderResponse, error)
	IssueRefundFn func(ctx context.Context, req application.GatewayRefundRequest) (*application.GatewayRefundResponse, error)

	CreateOrderCalls int
	IssueRefundCalls int
}

func (m *MockGatewayClient) CreateOrder(ctx context.Context, req application.GatewayOrderRequest) (*application.GatewayOrderResponse, error) {
	m.mu.Lock()
	m.CreateOrderCalls++
	m.mu.Unlock()
	if m.CreateOrderFn != nil {
		return m.CreateOrderFn(ctx, req)
	}
	return &application.GatewayOrderResponse{
		OrderID:     "order_mock",
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Status:      "created",
		CreatedAt:   time.Now(),
	}, nil
}

func (m *MockGatewayClient) IssueRefund(ctx context.Context, req application.GatewayRefundRequest) (*application.GatewayRefundResponse, error) {
	m.mu.Lock()
	m.IssueRefundCalls++
	m.mu.Unlock()
	if m.IssueRefundFn != nil {
		return m.IssueRefundFn(ctx, req)
	}
	return &application.GatewayRefundResponse{
		RefundID:         "rfnd_mock",
		GatewayPaymentID: req.GatewayPaymentID,
		Status:           "processed",
		CreatedAt:        time.Now(),
	}, nil
}

// MockNotifier counts terminal-state notifications.
type MockNotifier struct {
	mu             sync.Mutex
	CompletedCalls int
	FailedCalls    int
	RefundedCalls  int
}

func (m *MockNotifier) PaymentCompleted(ctx context.Context, record *domain.PaymentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompletedCalls++
}

func (m *MockNotifier) PaymentFailed(ctx context.Context, record *domain.PaymentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailedCalls++
}

func (m *MockNotifier) PaymentRefunded(ctx context.Context, record *domain.PaymentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RefundedCalls++
}

// CollectingSink keeps audit entries in memory for assertions.
type CollectingSink struct {
	mu      sync.Mutex
	Entries []audit.Entry
}

func (s *CollectingSink) Record(entry audit.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Entries = append(s.Entries, entry)
}

func (s *CollectingSink) ByAction(action string) []audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []audit.Entry
	for _, e := range s.Entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
