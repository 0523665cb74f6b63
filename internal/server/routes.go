package server

import (
	"github.com/forcelens/forcelens/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	// Standard health endpoints
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)

	// Version endpoint
	s.router.Get("/version", handlers.VersionHandler)

	// Metrics endpoint (in server package to access HandleError)
	s.router.Get("/metrics", MetricsHandler)

	// Access layer status: token cache, breaker, last sync run
	s.router.Get("/api/v1/status", handlers.StatusHandler)

	// On-demand sync trigger; cadence is the caller's concern
	s.router.Post("/api/v1/sync", handlers.SyncHandler)
}
