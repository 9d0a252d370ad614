package audit_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/docbook/docbook-payments/internal/audit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	entries []*audit.Entry
	block   chan struct{}
}

func (s *memoryStore) Insert(ctx context.Context, entry *audit.Entry) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memoryStore) List(ctx context.Context, limit, offset int) ([]*audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries, nil
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecorder_DeliversEntries(t *testing.T) {
	store := &memoryStore{}
	recorder := audit.NewRecorder(store, 16, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go recorder.Start(ctx)

	for i := 0; i < 5; i++ {
		recorder.Record(audit.Entry{
			Action: fmt.Sprintf("payment.test.%d", i),
			Module: audit.ModulePayment,
		})
	}

	cancel()
	recorder.Wait()

	require.Equal(t, 5, store.count())
	for _, entry := range store.entries {
		assert.NotEmpty(t, entry.ID)
		assert.Equal(t, audit.SeverityInfo, entry.Severity)
		assert.False(t, entry.CreatedAt.IsZero())
	}
}

func TestRecorder_DrainsQueueOnShutdown(t *testing.T) {
	store := &memoryStore{}
	recorder := audit.NewRecorder(store, 16, discardLogger())

	// Queue entries before the worker starts, then shut down immediately.
	for i := 0; i < 10; i++ {
		recorder.Record(audit.Entry{Action: "payment.test", Module: audit.ModulePayment})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	go recorder.Start(ctx)
	recorder.Wait()

	assert.Equal(t, 10, store.count())
}

func TestRecorder_NeverBlocksCaller(t *testing.T) {
	store := &memoryStore{block: make(chan struct{})}
	recorder := audit.NewRecorder(store, 1, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go recorder.Start(ctx)

	// The worker is stuck on the blocked store; the queue holds one entry and
	// everything beyond that must drop rather than block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			recorder.Record(audit.Entry{Action: "payment.test", Module: audit.ModulePayment})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	close(store.block)
	cancel()
	recorder.Wait()

	assert.Less(t, store.count(), 50)
}
