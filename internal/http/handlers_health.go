package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const healthResponse = `{"status":"ok"}`

// readinessTimeout bounds the whole dependency sweep, not each probe.
const readinessTimeout = 5 * time.Second

// healthHandler returns a simple 200 OK status for liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}

// ReadinessCheck probes one dependency for the readiness endpoint.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// readyHandler probes every registered dependency concurrently and reports
// 503 with the failing names if any probe errors. The permission cache is
// deliberately not probed: a cache outage degrades to direct loads and must
// not take the service out of rotation.
func readyHandler(checks []ReadinessCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		results := make([]error, len(checks))
		g, gctx := errgroup.WithContext(ctx)
		for i, check := range checks {
			g.Go(func() error {
				results[i] = check.Check(gctx)
				return nil
			})
		}
		// Probe errors land in results; Wait only gathers the goroutines.
		_ = g.Wait()

		status := make(map[string]string, len(checks))
		failed := false
		for i, check := range checks {
			if err := results[i]; err != nil {
				failed = true
				status[check.Name] = "unavailable"
				logger.WarnContext(r.Context(), "readiness probe failed",
					"dependency", check.Name,
					"error", err)
				continue
			}
			status[check.Name] = "ok"
		}

		code := http.StatusOK
		if failed {
			code = http.StatusServiceUnavailable
		}
		WriteJSON(w, code, status)
	}
}
