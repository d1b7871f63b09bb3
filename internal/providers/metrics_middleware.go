package providers

import (
	"net/http"
	"time"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// MetricsMiddleware instruments the read-only status API. The hot message
// path never passes through HTTP, so this only sees operator traffic.
func MetricsMiddleware(metrics MetricsProviderInterface, logger Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		duration := time.Since(start)
		metrics.IncRequestsTotal(r.URL.Path, sw.status)
		metrics.ObserveRequestDuration(r.URL.Path, duration)
		logger.Debugf(GetLogTypeByRequestType(r.Method), "%s %s -> %d (%s)", r.Method, r.URL.Path, sw.status, duration)
	})
}
