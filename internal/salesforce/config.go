package salesforce

import (
	"fmt"
	"strings"
	"time"
)

const defaultAPIVersion = "v59.0"

// Config is the `salesforce` section of the application configuration.
// Validation beyond the minimum needed to build a client is the caller's
// concern.
type Config struct {
	// LoginURL hosts the OAuth token endpoint.
	LoginURL string `mapstructure:"login_url"`
	// InstanceURL is the base URL for authenticated API calls. Query
	// continuation paths returned by the upstream are relative to it.
	InstanceURL string `mapstructure:"instance_url"`
	APIVersion  string `mapstructure:"api_version"`

	ClientID      string `mapstructure:"client_id"`
	ClientSecret  string `mapstructure:"client_secret"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	SecurityToken string `mapstructure:"security_token"`

	Timeout    time.Duration `mapstructure:"timeout"`
	Resilience Policy        `mapstructure:"resilience"`
}

// Validate checks the fields without which no request can be built.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.LoginURL) == "":
		return fmt.Errorf("salesforce: login_url is required")
	case strings.TrimSpace(c.InstanceURL) == "":
		return fmt.Errorf("salesforce: instance_url is required")
	case strings.TrimSpace(c.ClientID) == "":
		return fmt.Errorf("salesforce: client_id is required")
	case strings.TrimSpace(c.Username) == "":
		return fmt.Errorf("salesforce: username is required")
	}
	return nil
}

func (c Config) apiVersion() string {
	version := strings.TrimSpace(c.APIVersion)
	if version == "" {
		return defaultAPIVersion
	}
	return version
}
