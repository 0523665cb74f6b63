package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/forcelens/forcelens/internal/observability"
)

var metricsProxyClient = &http.Client{
	Timeout: 5 * time.Second,
}

// hopByHopHeaders must not be forwarded between connections.
var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

// exporterURL resolves the address the Prometheus exporter is actually
// listening on, falling back to config when the exporter picked no port.
func exporterURL() string {
	port := observability.GetMetricsPort()
	if port == 0 {
		port = viper.GetInt("metrics.port")
	}
	if port == 0 {
		port = 9090
	}
	return fmt.Sprintf("http://127.0.0.1:%d/metrics", port)
}

// MetricsHandler proxies Prometheus metrics from the internal exporter so
// callers can scrape /metrics on the main HTTP server.
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	if observability.PrometheusExporter == nil {
		HandleError(w, r, errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "Metrics exporter not initialized"))
		return
	}

	target := exporterURL()
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		envelope, _ := errors.NewErrorEnvelope("INTERNAL_ERROR", "Unable to construct metrics request").
			WithContext(map[string]interface{}{
				"metrics_url":    target,
				"original_error": err.Error(),
			})
		HandleError(w, r, envelope)
		return
	}
	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := metricsProxyClient.Do(req)
	if err != nil {
		envelope, _ := errors.NewErrorEnvelope("UPSTREAM_ERROR", "Prometheus exporter unavailable").
			WithContext(map[string]interface{}{
				"metrics_url":    target,
				"original_error": err.Error(),
			})
		HandleError(w, r, envelope)
		return
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && observability.ServerLogger != nil {
			observability.ServerLogger.Warn("Failed to close metrics response body",
				zap.Error(closeErr))
		}
	}()

	for key, values := range resp.Header {
		if _, skip := hopByHopHeaders[http.CanonicalHeaderKey(key)]; skip {
			continue
		}
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	if resp.Header.Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Failed to write metrics response",
			zap.Error(err))
	}
}
