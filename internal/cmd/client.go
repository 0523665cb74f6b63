package cmd

import (
	"github.com/spf13/viper"

	appconfig "github.com/forcelens/forcelens/internal/config"
	"github.com/forcelens/forcelens/internal/core"
	"github.com/forcelens/forcelens/internal/salesforce"
)

// loadConfig decodes the merged viper state and validates the upstream
// section. Commands that talk to the API call this after initConfig ran.
func loadConfig() (*appconfig.Config, error) {
	cfg, err := appconfig.FromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if err := cfg.Salesforce.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildClient wires an API client from the loaded config.
func buildClient(cfg *appconfig.Config) *salesforce.Client {
	return salesforce.NewClient(cfg.Salesforce)
}

// resolveProfiles returns the sync profiles: the built-in set, or the
// contents of the configured profiles file when one is set.
func resolveProfiles(cfg *appconfig.Config) ([]core.Profile, error) {
	if cfg.Sync.Profiles == "" {
		return core.BuiltInProfiles, nil
	}
	return core.LoadProfiles(cfg.Sync.Profiles)
}
