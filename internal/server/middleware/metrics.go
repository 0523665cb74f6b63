package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/forcelens/forcelens/internal/observability"
)

// responseWriter wraps http.ResponseWriter to capture status code and response size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// endpointLabel extracts the chi route pattern so metric labels stay at
// route cardinality, not raw-path cardinality.
func endpointLabel(r *http.Request) string {
	if pattern := chi.RouteContext(r.Context()).RoutePattern(); pattern != "" {
		return pattern
	}

	switch path := r.URL.Path; {
	case strings.HasPrefix(path, "/health"):
		return "/health/*"
	case strings.HasPrefix(path, "/api/"):
		return "/api/*"
	case path == "/version", path == "/metrics", path == "/":
		return path
	default:
		// Unknown paths collapse to one label to keep cardinality bounded
		return "/unknown"
	}
}

func emitRequestMetrics(method, endpoint string, status int, duration time.Duration, size int64) {
	labels := map[string]string{
		"method":   method,
		"endpoint": endpoint,
		"status":   strconv.Itoa(status),
	}

	_ = observability.TelemetrySystem.Counter("http_requests_total", 1, labels)

	// Duration histogram in milliseconds (gofulmen standard)
	_ = observability.TelemetrySystem.Histogram("http_request_duration_ms", duration, labels)

	_ = observability.TelemetrySystem.Gauge(
		"http_response_size_bytes",
		float64(size),
		map[string]string{"method": method, "endpoint": endpoint},
	)

	if status >= 400 {
		errorType := "client_error"
		if status >= 500 {
			errorType = "server_error"
		}
		labels["error_type"] = errorType
		_ = observability.TelemetrySystem.Counter("http_errors_total", 1, labels)
	}
}

// RequestMetrics captures per-route HTTP metrics and logs request completion.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if observability.TelemetrySystem == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		endpoint := endpointLabel(r)

		emitRequestMetrics(r.Method, endpoint, wrapped.statusCode, duration, wrapped.bytesWritten)

		// Request ID stays in logs, not metrics
		if observability.ServerLogger != nil {
			observability.ServerLogger.Info("HTTP request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("endpoint", endpoint),
				zap.Int("status", wrapped.statusCode),
				zap.Duration("duration", duration),
				zap.Int64("response_size", wrapped.bytesWritten),
				zap.String("requestID", GetRequestID(r.Context())),
			)
		}
	})
}
