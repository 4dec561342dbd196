// Package httpserver runs the operational HTTP endpoints of the circulation
// daemons.
//
// Server wraps net/http with context-driven graceful shutdown: Run serves
// until the context ends, then calls http.Server.Shutdown bounded by the
// shutdown timeout. Signal handling is left to the caller, typically through
// signal.NotifyContext.
//
// NewOpsRouter builds a chi router with
//
//	GET /livez    always 200
//	GET /readyz   runs each Check; 503 with per-check messages on failure
//	GET /metrics  Prometheus exposition for the given gatherer
//
// Example:
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	handler := httpserver.NewOpsRouter(httpserver.OpsRoutes{
//		Logger:   log,
//		Gatherer: registry,
//		Checks:   []httpserver.Check{{Name: "postgres", Probe: store.Ping}},
//	})
//	return srv.Run(ctx, handler)
package httpserver
