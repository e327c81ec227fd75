package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/pushkit/pkg/async"
	"github.com/dmitrymomot/pushkit/pkg/logger"
)

// Transport delivers one payload to one destination.
// Implementations must honour ctx cancellation.
type Transport interface {
	Send(ctx context.Context, dst Destination, p Payload) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, dst Destination, p Payload) error

func (f TransportFunc) Send(ctx context.Context, dst Destination, p Payload) error {
	return f(ctx, dst, p)
}

// WithTimeout bounds every Send of next by d. The call returns ErrSendTimeout
// once the deadline passes even if next does not observe ctx; next keeps
// running in the background until it returns. A panic in next is returned
// as an error wrapping async.ErrPanic.
// A non-positive d returns next unchanged.
func WithTimeout(next Transport, d time.Duration) Transport {
	if d <= 0 {
		return next
	}
	return TransportFunc(func(ctx context.Context, dst Destination, p Payload) error {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		f := async.Async(ctx, dst, func(ctx context.Context, dst Destination) (struct{}, error) {
			return struct{}{}, next.Send(ctx, dst, p)
		})

		select {
		case <-f.Done():
			_, err := f.Await()
			return err
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("%w after %s: %s", ErrSendTimeout, d, dst)
			}
			return ctx.Err()
		}
	})
}

// NoOpTransport accepts every send and does nothing.
type NoOpTransport struct{}

func (NoOpTransport) Send(context.Context, Destination, Payload) error { return nil }

// LogTransport writes every send to a logger instead of delivering it.
// Useful for local development.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport creates a LogTransport. A nil logger falls back to slog.Default().
func NewLogTransport(l *slog.Logger) *LogTransport {
	if l == nil {
		l = slog.Default()
	}
	return &LogTransport{logger: l}
}

func (t *LogTransport) Send(ctx context.Context, dst Destination, p Payload) error {
	if err := dst.Validate(); err != nil {
		return err
	}
	t.logger.LogAttrs(ctx, slog.LevelInfo, "push notification",
		logger.Channel(dst.String()),
		logger.Kind(p.Kind().String()),
		slog.String("title", p.Title),
		slog.String("body", p.Body),
	)
	return nil
}

// Delivery is one send recorded by MemoryTransport.
type Delivery struct {
	Destination Destination
	Payload     Payload
}

// MemoryTransport records sends in memory. Destinations registered with
// FailFor return ErrSendFailed instead of being recorded.
type MemoryTransport struct {
	mu         sync.Mutex
	deliveries []Delivery
	failing    map[Destination]error
}

// NewMemoryTransport creates an empty MemoryTransport.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{failing: make(map[Destination]error)}
}

// FailFor makes every later send to dst fail with err, or with
// ErrSendFailed when err is nil.
func (m *MemoryTransport) FailFor(dst Destination, err error) {
	if err == nil {
		err = ErrSendFailed
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[dst] = err
}

func (m *MemoryTransport) Send(ctx context.Context, dst Destination, p Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := dst.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failing[dst]; ok {
		return err
	}
	m.deliveries = append(m.deliveries, Delivery{Destination: dst, Payload: p})
	return nil
}

// Deliveries returns a copy of the recorded sends in arrival order.
func (m *MemoryTransport) Deliveries() []Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Delivery, len(m.deliveries))
	copy(out, m.deliveries)
	return out
}

// Reset drops recorded sends and failure rules.
func (m *MemoryTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = nil
	m.failing = make(map[Destination]error)
}
