package trigger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrymomot/pushkit/pkg/async"
)

// Handler reacts to one created record.
type Handler interface {
	HandleEvent(ctx context.Context, ev Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev Event) error

func (f HandlerFunc) HandleEvent(ctx context.Context, ev Event) error { return f(ctx, ev) }

type route struct {
	name    string
	handler Handler
}

// Router maps a collection to any number of handlers. Every handler of a
// collection sees every event of it and runs independently of the others.
type Router struct {
	mu     sync.RWMutex
	routes map[string][]route
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{routes: make(map[string][]route)}
}

// Handle registers h under name for events of collection.
func (r *Router) Handle(collection, name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[collection] = append(r.routes[collection], route{name: name, handler: h})
}

// HandleFunc registers fn under name for events of collection.
func (r *Router) HandleFunc(collection, name string, fn func(context.Context, Event) error) {
	r.Handle(collection, name, HandlerFunc(fn))
}

// Collections returns the collections with at least one handler.
func (r *Router) Collections() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.routes))
	for c := range r.routes {
		out = append(out, c)
	}
	return out
}

// Dispatch runs every handler registered for ev.Collection concurrently and
// waits for all of them. When ev.Handlers is set only those handlers run.
// A failing or panicking handler does not affect the others. Failures are
// reported as a *DispatchError.
func (r *Router) Dispatch(ctx context.Context, ev Event) error {
	r.mu.RLock()
	routes := selectRoutes(r.routes[ev.Collection], ev.Handlers)
	r.mu.RUnlock()

	if len(routes) == 0 {
		return fmt.Errorf("%w: %q %v", ErrUnroutable, ev.Collection, ev.Handlers)
	}

	results := async.Map(ctx, routes, func(ctx context.Context, rt route) (struct{}, error) {
		return struct{}{}, rt.handler.HandleEvent(ctx, ev)
	})

	var failures []HandlerError
	for i, res := range results {
		if res.Err == nil {
			continue
		}
		err := res.Err
		if errors.Is(err, async.ErrPanic) {
			err = fmt.Errorf("%w: %w", ErrHandlerPanicked, err)
		}
		failures = append(failures, HandlerError{Handler: routes[i].name, Err: err})
	}
	if len(failures) == 0 {
		return nil
	}
	return &DispatchError{Collection: ev.Collection, Failures: failures}
}

func selectRoutes(routes []route, names []string) []route {
	if len(names) == 0 {
		return routes
	}
	out := make([]route, 0, len(names))
	for _, rt := range routes {
		if slices.Contains(names, rt.name) {
			out = append(out, rt)
		}
	}
	return out
}
