package observability

import (
	"fmt"
	"net"
	"strconv"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

var (
	// TelemetrySystem is the global telemetry system
	TelemetrySystem *telemetry.System

	// PrometheusExporter is the prometheus metrics exporter
	PrometheusExporter *exporters.PrometheusExporter

	// metricsPort stores the port the Prometheus exporter is listening on
	metricsPort int
)

// InitMetrics initializes the telemetry system with a Prometheus
// exporter listening on the provided port (0 for random assignment).
// CLI commands never call this; metric emission is a no-op until it runs.
func InitMetrics(serviceName string, port int) error {
	requestedPort := port
	if requestedPort < 0 {
		requestedPort = 0
	}
	metricsPort = requestedPort

	endpoint := fmt.Sprintf(":%d", requestedPort)
	PrometheusExporter = exporters.NewPrometheusExporter(serviceName, endpoint)

	if err := PrometheusExporter.Start(); err != nil {
		return err
	}

	if actualPort, err := resolvePort(PrometheusExporter.GetAddr()); err == nil {
		metricsPort = actualPort
	} else if requestedPort == 0 {
		metricsPort = 9090
	}

	config := &telemetry.Config{
		Enabled: true,
		Emitter: PrometheusExporter,
	}

	sys, err := telemetry.NewSystem(config)
	if err != nil {
		return err
	}

	TelemetrySystem = sys
	return nil
}

// GetMetricsPort returns the port the Prometheus exporter is listening on
func GetMetricsPort() int {
	return metricsPort
}

func resolvePort(addr string) (int, error) {
	if addr == "" {
		return 0, fmt.Errorf("empty exporter address")
	}
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portStr)
}
