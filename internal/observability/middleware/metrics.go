package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"expense-auth/internal/observability/metrics"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// unobserved paths are scraped or probed often enough to drown the auth
// traffic in the request series.
var unobserved = map[string]struct{}{
	"/metrics": {},
	"/healthz": {},
}

// WithMetrics records request count and latency per route pattern and status.
func WithMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, skip := unobserved[r.URL.Path]; skip {
			next.ServeHTTP(w, r)
			return
		}

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		began := time.Now()
		next.ServeHTTP(ww, r)
		elapsed := time.Since(began).Seconds()

		status := ww.Status()
		if status == 0 {
			// handler returned without writing
			status = http.StatusOK
		}
		route := routePattern(r)

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDurationSeconds.WithLabelValues(r.Method, route).Observe(elapsed)

		if status >= http.StatusInternalServerError {
			slog.Default().Warn("request failed",
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"request_id", RequestIDFromContext(r.Context()),
			)
		}
	})
}

// routePattern keeps path labels bounded: ids in the URL collapse to the
// chi pattern that matched.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
