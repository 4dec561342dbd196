package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OpsRoutes describes the operational endpoints of a daemon.
type OpsRoutes struct {
	Logger       *slog.Logger
	Gatherer     prometheus.Gatherer
	Checks       []Check
	CheckTimeout time.Duration
}

// NewOpsRouter mounts /livez, /readyz and, when a gatherer is set, /metrics.
func NewOpsRouter(cfg OpsRoutes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)

	r.Get("/livez", LivenessHandler())
	r.Get("/readyz", ReadinessHandler(cfg.Logger, cfg.CheckTimeout, cfg.Checks...))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}
