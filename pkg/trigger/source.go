package trigger

import "context"

// Delivery is one event handed out by a Source.
type Delivery interface {
	Event() Event
	// Ack marks the event processed. It is not delivered again.
	Ack(ctx context.Context) error
	// Nack reports a failed attempt. Sources that support redelivery hand
	// the event out again later.
	Nack(ctx context.Context, cause error) error
}

// Source yields deliveries. Receive blocks until an event is available,
// ctx is done (returning ctx.Err()) or the source is closed
// (returning ErrSourceClosed).
type Source interface {
	Receive(ctx context.Context) (Delivery, error)
	Close() error
}
