package trigger

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// MemorySource is an in-process Source. Nacked events are queued again,
// scoped to the handlers that failed, until they have been attempted
// maxAttempts times.
type MemorySource struct {
	queue       chan *memoryDelivery
	done        chan struct{}
	closeOnce   sync.Once
	maxAttempts int

	acked     atomic.Int64
	nacked    atomic.Int64
	exhausted atomic.Int64
}

// NewMemorySource creates a source buffering up to buffer events. A
// maxAttempts below 1 means a single attempt.
func NewMemorySource(buffer, maxAttempts int) *MemorySource {
	return &MemorySource{
		queue:       make(chan *memoryDelivery, max(buffer, 1)),
		done:        make(chan struct{}),
		maxAttempts: max(maxAttempts, 1),
	}
}

// Publish enqueues a created record and returns the event id.
func (m *MemorySource) Publish(ctx context.Context, collection, recordID string, data map[string]any) (string, error) {
	ev := Event{
		ID:         uuid.NewString(),
		Collection: collection,
		RecordID:   recordID,
		Data:       data,
		Attempt:    1,
	}
	return ev.ID, m.enqueue(ctx, &memoryDelivery{src: m, ev: ev, attempt: 1})
}

func (m *MemorySource) enqueue(ctx context.Context, d *memoryDelivery) error {
	select {
	case <-m.done:
		return ErrSourceClosed
	default:
	}
	select {
	case m.queue <- d:
		return nil
	case <-m.done:
		return ErrSourceClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MemorySource) Receive(ctx context.Context) (Delivery, error) {
	select {
	case d := <-m.queue:
		d.ev.ReceivedAt = time.Now()
		return d, nil
	case <-m.done:
		return nil, ErrSourceClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the source. Pending events are discarded.
func (m *MemorySource) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	return nil
}

// MemoryStats counts delivery outcomes.
type MemoryStats struct {
	Acked     int64
	Nacked    int64
	Exhausted int64
}

// Stats returns delivery counters.
func (m *MemorySource) Stats() MemoryStats {
	return MemoryStats{
		Acked:     m.acked.Load(),
		Nacked:    m.nacked.Load(),
		Exhausted: m.exhausted.Load(),
	}
}

type memoryDelivery struct {
	src     *MemorySource
	ev      Event
	attempt int
}

func (d *memoryDelivery) Event() Event { return d.ev }

func (d *memoryDelivery) Ack(context.Context) error {
	d.src.acked.Add(1)
	return nil
}

func (d *memoryDelivery) Nack(ctx context.Context, cause error) error {
	d.src.nacked.Add(1)
	if d.attempt >= d.src.maxAttempts {
		d.src.exhausted.Add(1)
		return nil
	}
	ev := d.ev
	ev.Handlers = retryScope(d.ev, cause)
	ev.Attempt = d.attempt + 1
	next := &memoryDelivery{src: d.src, ev: ev, attempt: ev.Attempt}
	// Requeue without blocking the handler goroutine on a full buffer.
	go func() { _ = d.src.enqueue(context.WithoutCancel(ctx), next) }()
	return nil
}
