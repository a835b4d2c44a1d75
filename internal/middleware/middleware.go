// Package middleware holds chi middleware shared by the gateway routes.
package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JakeFAU/story-preview-gateway/internal/metrics"
	"github.com/JakeFAU/story-preview-gateway/internal/policy/ratelimit"
)

// Metrics is a chi middleware that records HTTP request metrics.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := NewStatusRecorder(w)
		next.ServeHTTP(ww, r)

		routePattern := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			routePattern = rctx.RoutePattern()
		}

		metrics.ObserveHTTPRequest(r.Method, routePattern, ww.Status(), time.Since(start))
	})
}

// RateLimit rejects callers that exceed their token bucket with 429.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter != nil && !limiter.Allow(ClientIP(r)) {
				metrics.ObserveRateLimited()
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the remote host of r without its port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// StatusRecorder remembers the status code written through it. Handlers that
// never call WriteHeader report 200.
type StatusRecorder struct {
	http.ResponseWriter
	status int
}

// NewStatusRecorder wraps w.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader records code and forwards it.
func (rw *StatusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Status returns the recorded status code.
func (rw *StatusRecorder) Status() int {
	return rw.status
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (rw *StatusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
