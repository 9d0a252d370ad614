package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sink accepts audit entries without blocking the caller.
type Sink interface {
	Record(entry Entry)
}

// Store persists audit entries.
type Store interface {
	Insert(ctx context.Context, entry *Entry) error
	List(ctx context.Context, limit, offset int) ([]*Entry, error)
}

const writeTimeout = 5 * time.Second

// Recorder buffers entries on a bounded queue and writes them from a single
// background worker. A full queue drops the entry with a local log line; a
// failed write is logged and discarded. Neither ever propagates to the
// operation being audited.
type Recorder struct {
	store  Store
	queue  chan Entry
	logger *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func NewRecorder(store Store, queueSize int, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		queue:  make(chan Entry, queueSize),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Record enqueues an entry. It never blocks; when the queue is full the
// entry is dropped and the drop is logged.
func (r *Recorder) Record(entry Entry) {
	entry.fillDefaults()
	select {
	case r.queue <- entry:
	default:
		r.logger.Warn("audit queue full, dropping entry",
			"action", entry.Action,
			"module", entry.Module,
		)
	}
}

// Start runs the write loop until ctx is cancelled, then drains whatever is
// still buffered. Run it on its own goroutine.
func (r *Recorder) Start(ctx context.Context) {
	defer close(r.done)

	r.logger.Info("starting audit recorder", "queue_size", cap(r.queue))

	for {
		select {
		case <-ctx.Done():
			r.drain()
			r.logger.Info("audit recorder stopped")
			return
		case entry := <-r.queue:
			r.write(entry)
		}
	}
}

// Wait blocks until the write loop has exited and the queue is drained.
func (r *Recorder) Wait() {
	<-r.done
}

func (r *Recorder) drain() {
	for {
		select {
		case entry := <-r.queue:
			r.write(entry)
		default:
			return
		}
	}
}

func (r *Recorder) write(entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.store.Insert(ctx, &entry); err != nil {
		r.logger.Error("failed to write audit entry",
			"action", entry.Action,
			"module", entry.Module,
			"error", err,
		)
	}
}
