package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dmitrymomot/pushkit/pkg/httpserver"
	"github.com/dmitrymomot/pushkit/pkg/jwt"
	"github.com/dmitrymomot/pushkit/svc/admin"
	"github.com/dmitrymomot/pushkit/svc/emoji"
)

type routes struct {
	log      *slog.Logger
	checks   []httpserver.Check
	tokens   *jwt.Service
	admin    *admin.Handler
	emoji    *emoji.Handler
	metrics  *httpserver.Metrics
	gatherer http.Handler
	service  string
}

// newHandler mounts health, metrics and the authenticated API.
//
//	GET  /health/live
//	GET  /health/ready
//	GET  /metrics
//	POST /admin/claims   (authenticated, caller must be admin)
//	POST /emoji/suggest  (authenticated, caller must be admin)
func newHandler(rt routes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	if rt.metrics != nil {
		r.Use(rt.metrics.Middleware)
	}

	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(rt.log, 5*time.Second, rt.checks...))

	metricsHandler := rt.gatherer
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	r.Group(func(r chi.Router) {
		r.Use(jwt.Middleware(rt.tokens))
		rt.admin.Routes(r)

		r.Group(func(r chi.Router) {
			r.Use(rt.admin.RequireAdmin)
			rt.emoji.Routes(r)
		})
	})

	return otelhttp.NewHandler(r, rt.service)
}

// requestIDAttr logs the chi request id on records emitted while serving.
func requestIDAttr(ctx context.Context) (slog.Attr, bool) {
	if id := middleware.GetReqID(ctx); id != "" {
		return slog.String("request_id", id), true
	}
	return slog.Attr{}, false
}
