package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"propertyhub/internal/modules/notification"

	"go.uber.org/zap"
)

var (
	ErrQueueFull = errors.New("journal queue full")
	ErrClosed    = errors.New("journal closed")
)

// entry is the serialized form shared by every backend.
type entry struct {
	Kind       notification.Kind `json:"kind"`
	WireType   string            `json:"wire_type"`
	OrderID    int64             `json:"order_id,omitempty"`
	Recipients int               `json:"recipients"`
	Delivered  int               `json:"delivered"`
	Frame      json.RawMessage   `json:"frame"`
	At         time.Time         `json:"at"`
}

func newEntry(rec notification.Record) entry {
	return entry{
		Kind:       rec.Kind,
		WireType:   rec.WireType,
		OrderID:    rec.OrderID,
		Recipients: rec.Recipients,
		Delivered:  rec.Delivered,
		Frame:      json.RawMessage(rec.Frame),
		At:         rec.At,
	}
}

// Async decouples the dispatcher from a slow backend. Records are queued and
// written by one goroutine; when the queue is full the record is dropped.
type Async struct {
	inner   notification.Journal
	queue   chan notification.Record
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewAsync(inner notification.Journal, buffer int, timeout time.Duration, logger *zap.Logger) *Async {
	if buffer <= 0 {
		buffer = 1024
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Async{
		inner:   inner,
		queue:   make(chan notification.Record, buffer),
		timeout: timeout,
		logger:  logger.Named("journal"),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

func (a *Async) Record(_ context.Context, rec notification.Record) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue <- rec:
		return nil
	default:
		return ErrQueueFull
	}
}

func (a *Async) run() {
	defer a.wg.Done()
	for rec := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.inner.Record(ctx, rec); err != nil {
			a.logger.Warn("journal write failed", zap.String("kind", string(rec.Kind)), zap.Error(err))
		}
		cancel()
	}
}

// Close drains the queue and closes the backend if it holds resources.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	a.wg.Wait()
	if c, ok := a.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
