package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/forcelens/forcelens/internal/core/syncer"
	errwrap "github.com/forcelens/forcelens/internal/errors"
	"github.com/forcelens/forcelens/internal/observability"
	"github.com/forcelens/forcelens/internal/salesforce"
	"github.com/forcelens/forcelens/internal/server"
	"github.com/forcelens/forcelens/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// breakerHealthChecker reports unhealthy while the upstream circuit is open
type breakerHealthChecker struct {
	breaker *salesforce.Breaker
}

func (b breakerHealthChecker) CheckHealth(ctx context.Context) error {
	if b.breaker == nil {
		return errwrap.NewInternalError("breaker not initialized")
	}
	if b.breaker.Snapshot().State == salesforce.CircuitOpen {
		return errwrap.NewUpstreamError("upstream circuit is open")
	}
	return nil
}

// accessStatus adapts the client and syncer to the status endpoint.
type accessStatus struct {
	client *salesforce.Client
	syncer *syncer.Syncer
}

func (s accessStatus) Status() handlers.StatusSnapshot {
	return handlers.StatusSnapshot{
		Token:    s.client.Tokens.Snapshot(),
		Breaker:  s.client.Pipeline.Breaker().Snapshot(),
		LastSync: s.syncer.LastReport(),
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ops HTTP server",
	Long: `Start the ops HTTP server with graceful shutdown support. Sync runs
are triggered on demand via POST /api/v1/sync; scheduling is left to the
operator (cron, systemd timers, an external scheduler).

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (placeholder - restart recommended)

The server will cleanly shut down the HTTP server and flush logs on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Initialize server logger
		logLevel := viper.GetString("logging.level")
		observability.InitServerLogger(appName, logLevel)

		metricsPort := viper.GetInt("metrics.port")
		if metricsPort == 0 {
			metricsPort = 9090
		}

		if err := observability.InitMetrics(appName, metricsPort); err != nil {
			observability.ServerLogger.Error("Failed to initialize metrics",
				zap.Error(err))
			return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
		}

		cfg, err := loadConfig()
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "invalid configuration")
		}

		profiles, err := resolveProfiles(cfg)
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "invalid sync profiles")
		}

		observability.ServerLogger.Info("Initializing server",
			zap.String("service", appName),
			zap.String("version", versionInfo.Version),
			zap.String("host", serverHost),
			zap.Int("port", serverPort),
			zap.Int("metrics_port", metricsPort),
			zap.String("instance_url", cfg.Salesforce.InstanceURL),
			zap.Int("profiles", len(profiles)))

		client := buildClient(cfg)

		sink, closeSink, err := openSink(cfg.Sync.Output)
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "invalid sync output")
		}
		defer closeSink() // nolint:errcheck // best-effort cleanup

		s := &syncer.Syncer{
			Client:   client,
			Sink:     sink,
			Profiles: profiles,
			Logger:   observability.ServerLogger,
		}

		// Initialize health manager
		handlers.InitHealthManager(versionInfo.Version)
		hm := handlers.GetHealthManager()
		hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		hm.RegisterChecker("breaker", breakerHealthChecker{breaker: client.Pipeline.Breaker()})

		// Expose the access layer state at /api/v1/status and the
		// on-demand sync trigger at /api/v1/sync
		handlers.SetStatusSource(accessStatus{client: client, syncer: s})
		handlers.SetSyncRunner(s)
		handlers.SetVersionInfo(versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)

		// Create server
		srv := server.New(serverHost, serverPort)

		// Get shutdown timeout from config
		shutdownTimeout := viper.GetDuration("server.shutdown_timeout")
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Register graceful shutdown handlers (LIFO order - last registered, first executed)
		// Handler 1: Flush logger (executed last)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Flushing logger...")
			if err := observability.ServerLogger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				observability.ServerLogger.Warn("Logger sync returned error (may be benign)",
					zap.Error(err))
			}
			return nil
		})

		// Handler 2: Shut down HTTP server (executed first)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Shutting down HTTP server...")

			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			observability.ServerLogger.Info("HTTP server stopped gracefully")
			return nil
		})

		// Register config reload handler (SIGHUP)
		signals.OnReload(func(ctx context.Context) error {
			observability.ServerLogger.Info("Received SIGHUP: attempting config reload")

			if err := viper.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); ok {
					observability.ServerLogger.Info("No config file found - using defaults and environment variables")
					return nil
				}
				observability.ServerLogger.Error("Failed to reload config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}

			observability.ServerLogger.Info("Configuration reloaded successfully",
				zap.String("file", viper.ConfigFileUsed()))

			return nil
		})

		// Enable double-tap force quit (Ctrl+C within 2 seconds)
		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			observability.ServerLogger.Warn("Failed to enable double-tap force quit",
				zap.Error(err))
		}

		// Start server in background goroutine
		errChan := make(chan error, 1)
		go func() {
			observability.ServerLogger.Info("Starting HTTP server...",
				zap.String("host", serverHost),
				zap.Int("port", serverPort))
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		// Start signal listener in background
		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		// Wait for error or shutdown completion
		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
