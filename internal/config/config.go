// Package config defines the typed application configuration and its
// decoding from viper. Values arrive in three layers: built-in defaults,
// an optional YAML config file, and FORCELENS_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/forcelens/forcelens/internal/salesforce"
)

// Config represents the complete application configuration.
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Salesforce salesforce.Config `mapstructure:"salesforce"`
	Sync       SyncConfig        `mapstructure:"sync"`
	Logging    LoggingConfig     `mapstructure:"logging"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
	Health     HealthConfig      `mapstructure:"health"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// SyncConfig controls sync runs.
type SyncConfig struct {
	// Profiles is an optional YAML file adding to the built-in profiles.
	Profiles string `mapstructure:"profiles"`

	// Output is where synced records are written as JSON lines.
	// Empty means records are counted but not persisted.
	Output string `mapstructure:"output"`
}

// LoggingConfig contains logging configuration
// Supports progressive logging profiles:
// - SIMPLE: Console output only, minimal configuration (CLI tools)
// - STRUCTURED: Structured sinks, correlation IDs (API services)
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// FromViper decodes the merged viper state into a typed Config.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}
