package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Middleware records HTTP metrics for each request, labelled by chi route pattern.
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			m.IncHTTPRequestsInFlight()
			next.ServeHTTP(ww, r)
			m.DecHTTPRequestsInFlight()

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			code := strconv.Itoa(status)
			m.RecordRequestLatency(route, r.Method, code, time.Since(start).Seconds())
			m.RecordHTTPRequest(route, r.Method, code)
		})
	}
}
