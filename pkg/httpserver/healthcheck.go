package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/pushkit/pkg/async"
	"github.com/dmitrymomot/pushkit/pkg/logger"
)

// Check is a named readiness dependency.
type Check struct {
	Name string
	Fn   func(context.Context) error
}

// LivenessHandler always answers 200 ALIVE.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ALIVE"))
	}
}

// ReadinessHandler runs every check with the request context bounded by
// timeout. It answers 200 when all pass and 503 otherwise, with a JSON
// body listing each check's result.
func ReadinessHandler(log *slog.Logger, timeout time.Duration, checks ...Check) http.HandlerFunc {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		// Checks run concurrently. One that ignores ctx is abandoned once
		// the timeout elapses and reported as timed out.
		futures := make([]*async.Future[struct{}], len(checks))
		for i, c := range checks {
			futures[i] = async.Async(ctx, c, func(ctx context.Context, c Check) (struct{}, error) {
				return struct{}{}, c.Fn(ctx)
			})
		}
		deadline := time.Now().Add(timeout)

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for i, c := range checks {
			var err error
			if timeout > 0 {
				_, err = futures[i].AwaitWithTimeout(max(time.Until(deadline), 0))
			} else {
				_, err = futures[i].Await()
			}
			if err != nil {
				log.ErrorContext(ctx, "readiness check failed", slog.String("check", c.Name), logger.Error(err))
				results[c.Name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[c.Name] = "ok"
		}

		body := map[string]any{"status": "ready", "checks": results}
		if status != http.StatusOK {
			body["status"] = "not_ready"
		}
		WriteJSON(w, status, body)
	}
}
