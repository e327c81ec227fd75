package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dmitrymomot/pushkit/pkg/logger"
)

// Metrics counts events taken from a source.
type Metrics struct {
	events *prometheus.CounterVec
}

// NewMetrics registers the worker collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		events: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "pushkit_trigger_events_total",
			Help: "Events taken from a trigger source, by collection and result.",
		}, []string{"collection", "result"}),
	}
}

func (m *Metrics) event(collection, result string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(collection, result).Inc()
}

// Worker pulls events from a Source and dispatches them through a Router
// with bounded concurrency. Each event gets its own goroutine; a panic in
// a handler is recovered and treated as a failed attempt.
type Worker struct {
	source  Source
	router  *Router
	id      string
	sem     chan struct{}
	timeout time.Duration
	backoff time.Duration
	logger  *slog.Logger
	metrics *Metrics

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithMaxConcurrent bounds the number of events handled at once.
func WithMaxConcurrent(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.sem = make(chan struct{}, n)
		}
	}
}

// WithHandlerTimeout bounds the handling of one event.
func WithHandlerTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithReceiveBackoff sets the pause after a failed Receive.
func WithReceiveBackoff(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.backoff = d
		}
	}
}

// WithWorkerLogger sets the logger.
func WithWorkerLogger(l *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithWorkerMetrics registers the worker collectors with reg. Without it
// nothing is recorded.
func WithWorkerMetrics(reg prometheus.Registerer) WorkerOption {
	return func(w *Worker) {
		if reg != nil {
			w.metrics = NewMetrics(reg)
		}
	}
}

// NewWorker creates a Worker reading from source.
func NewWorker(source Source, router *Router, opts ...WorkerOption) (*Worker, error) {
	if source == nil {
		return nil, fmt.Errorf("trigger: nil source")
	}
	if router == nil || len(router.Collections()) == 0 {
		return nil, ErrNoHandlers
	}
	w := &Worker{
		source:  source,
		router:  router,
		id:      uuid.NewString(),
		sem:     make(chan struct{}, 16),
		timeout: time.Minute,
		backoff: time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run returns a function suitable for errgroup. It consumes until ctx is
// done, then waits for in-flight events to finish.
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		w.mu.Lock()
		if w.running {
			w.mu.Unlock()
			return ErrAlreadyRunning
		}
		w.running = true
		w.mu.Unlock()

		defer func() {
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
		}()

		w.logger.InfoContext(ctx, "trigger worker started",
			slog.String("worker_id", w.id),
			slog.Int("max_concurrent", cap(w.sem)),
		)
		err := w.loop(ctx)

		w.logger.InfoContext(ctx, "trigger worker stopping, waiting for in-flight events",
			slog.String("worker_id", w.id))
		w.wg.Wait()
		w.logger.InfoContext(ctx, "trigger worker stopped", slog.String("worker_id", w.id))
		return err
	}
}

func (w *Worker) loop(ctx context.Context) error {
	for {
		select {
		case w.sem <- struct{}{}:
		case <-ctx.Done():
			return nil
		}

		d, err := w.source.Receive(ctx)
		if err != nil {
			<-w.sem
			switch {
			case ctx.Err() != nil:
				return nil
			case errors.Is(err, ErrSourceClosed):
				return err
			}
			w.logger.ErrorContext(ctx, "trigger receive failed", logger.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.backoff):
			}
			continue
		}

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-w.sem }()
			w.process(ctx, d)
		}()
	}
}

// process runs on a context detached from the worker lifecycle so that
// shutdown lets in-flight events finish within the handler timeout.
func (w *Worker) process(parent context.Context, d Delivery) {
	ev := d.Event()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), w.timeout)
	defer cancel()

	start := time.Now()
	err := w.dispatch(ctx, ev)
	attrs := []slog.Attr{
		logger.EventID(ev.ID),
		logger.Collection(ev.Collection),
		logger.RecordID(ev.RecordID),
		logger.Duration(time.Since(start)),
		slog.Int("attempt", max(ev.Attempt, 1)),
	}
	if len(ev.Handlers) > 0 {
		attrs = append(attrs, slog.Any("handlers", ev.Handlers))
	}

	switch {
	case err == nil:
		w.metrics.event(ev.Collection, "ok")
		w.ack(ctx, d, attrs)
	case IsPermanent(err):
		w.metrics.event(ev.Collection, "dropped")
		w.logger.LogAttrs(ctx, slog.LevelWarn, "event dropped", append(attrs, logger.Error(err))...)
		w.ack(ctx, d, attrs)
	default:
		w.metrics.event(ev.Collection, "retry")
		if retry := RetryHandlers(err); len(retry) > 0 {
			attrs = append(attrs, slog.Any("retry_handlers", retry))
		}
		w.logger.LogAttrs(ctx, slog.LevelError, "event failed, left for redelivery", append(attrs, logger.Error(err))...)
		if nerr := d.Nack(ctx, err); nerr != nil {
			w.logger.LogAttrs(ctx, slog.LevelError, "nack failed", append(attrs, logger.Error(nerr))...)
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanicked, r)
		}
	}()
	return w.router.Dispatch(ctx, ev)
}

func (w *Worker) ack(ctx context.Context, d Delivery, attrs []slog.Attr) {
	if err := d.Ack(ctx); err != nil {
		w.logger.LogAttrs(ctx, slog.LevelError, "ack failed", append(attrs, logger.Error(err))...)
	}
}
