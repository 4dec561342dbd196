package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/dmitrymomot/circulation/pkg/logger"
)

// Check is a named readiness probe.
type Check struct {
	Name  string
	Probe func(context.Context) error
}

type healthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LivenessHandler always answers 200 with {"status":"alive"}.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, healthReport{Status: "alive"})
	}
}

// ReadinessHandler runs every check with its own timeout. All passing gives
// 200 "ready"; any failure gives 503 "not_ready" with the failing messages.
func ReadinessHandler(log *slog.Logger, timeout time.Duration, checks ...Check) http.HandlerFunc {
	if log == nil {
		log = logger.Discard()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		report := healthReport{Status: "ready", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK

		for _, c := range checks {
			ctx, cancel := r.Context(), context.CancelFunc(func() {})
			if timeout > 0 {
				ctx, cancel = context.WithTimeout(ctx, timeout)
			}
			err := c.Probe(ctx)
			cancel()

			if err != nil {
				log.ErrorContext(r.Context(), "readiness check failed", slog.String("check", c.Name), logger.Error(err))
				report.Checks[c.Name] = err.Error()
				report.Status = "not_ready"
				status = http.StatusServiceUnavailable
				continue
			}
			report.Checks[c.Name] = "ok"
		}

		writeJSON(w, status, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w).Encode(v)
}
