// Package httpserver runs a net/http server bound to a context and provides
// liveness and readiness handlers.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	g.Go(func() error { return srv.Run(ctx, router) })
//
// Cancelling ctx triggers http.Server.Shutdown with the configured timeout.
// ReadinessHandler reports each named Check separately so a failing
// dependency is visible in the readiness response.
package httpserver
