package cmd

import (
	"fmt"
	"runtime"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/forcelens/forcelens/internal/observability"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on the installation and the upstream connection.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		observability.CLILogger.Info("=== " + appName + " doctor ===")
		observability.CLILogger.Info("")
		observability.CLILogger.Info("Running diagnostic checks...")
		observability.CLILogger.Info("")

		allChecks := true
		totalChecks := 7

		// Check 1: Go version
		goVersion := runtime.Version()
		if goVersion >= "go1.23" {
			observability.CLILogger.Info(fmt.Sprintf("[1/%d] Checking Go version... ✅ %s", totalChecks, goVersion), zap.String("go_version", goVersion))
		} else {
			observability.CLILogger.Warn(fmt.Sprintf("[1/%d] Checking Go version... ⚠️  %s (recommended: go1.23+)", totalChecks, goVersion), zap.String("go_version", goVersion))
			allChecks = false
		}

		// Check 2: Gofulmen access
		version := crucible.GetVersion()
		if version.Gofulmen != "" {
			observability.CLILogger.Info(fmt.Sprintf("[2/%d] Checking Gofulmen access... ✅ v%s", totalChecks, version.Gofulmen), zap.String("gofulmen_version", version.Gofulmen))
		} else {
			observability.CLILogger.Error(fmt.Sprintf("[2/%d] Checking Gofulmen access... ❌ Cannot access Gofulmen", totalChecks))
			allChecks = false
		}

		// Check 3: Config directory
		configDir := gfconfig.GetAppConfigDir(appName)
		if configDir == "" {
			observability.CLILogger.Warn(fmt.Sprintf("[3/%d] Checking config directory... ⚠️  Cannot resolve config directory", totalChecks))
			allChecks = false
		} else {
			observability.CLILogger.Info(fmt.Sprintf("[3/%d] Checking config directory... ✅ %s", totalChecks, configDir), zap.String("config_dir", configDir))
		}

		// Check 4: Environment
		observability.CLILogger.Info(fmt.Sprintf("[4/%d] Checking environment... ✅ %s/%s", totalChecks, runtime.GOOS, runtime.GOARCH),
			zap.String("os", runtime.GOOS),
			zap.String("arch", runtime.GOARCH))

		// Check 5: Upstream configuration
		cfg, cfgErr := loadConfig()
		if cfgErr != nil {
			observability.CLILogger.Warn(fmt.Sprintf("[5/%d] Checking upstream config... ⚠️  %v", totalChecks, cfgErr), zap.Error(cfgErr))
			allChecks = false
		} else {
			observability.CLILogger.Info(fmt.Sprintf("[5/%d] Checking upstream config... ✅ %s (%s)", totalChecks, cfg.Salesforce.InstanceURL, cfg.Salesforce.Username),
				zap.String("instance_url", cfg.Salesforce.InstanceURL),
				zap.String("username", cfg.Salesforce.Username))
		}

		// Check 6: Credentials (issues a real token)
		if cfgErr != nil {
			observability.CLILogger.Warn(fmt.Sprintf("[6/%d] Checking credentials... ⚠️  skipped (config not loaded)", totalChecks))
		} else {
			client := buildClient(cfg)
			if _, tokenErr := client.Tokens.Token(ctx); tokenErr != nil {
				observability.CLILogger.Error(fmt.Sprintf("[6/%d] Checking credentials... ❌ token exchange failed: %v", totalChecks, tokenErr), zap.Error(tokenErr))
				allChecks = false
			} else {
				observability.CLILogger.Info(fmt.Sprintf("[6/%d] Checking credentials... ✅ token issued", totalChecks))

				// Check 7: API reachability (version discovery endpoint)
				if _, apiErr := client.Get(ctx, "/services/data"); apiErr != nil {
					observability.CLILogger.Warn(fmt.Sprintf("[7/%d] Checking API reachability... ⚠️  %v", totalChecks, apiErr), zap.Error(apiErr))
					allChecks = false
				} else {
					observability.CLILogger.Info(fmt.Sprintf("[7/%d] Checking API reachability... ✅ %s", totalChecks, cfg.Salesforce.InstanceURL))
				}
			}
		}

		observability.CLILogger.Info("")
		if allChecks {
			observability.CLILogger.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", appName))
		} else {
			observability.CLILogger.Warn("⚠️  Some checks failed. Review the output above for details.")
		}
		observability.CLILogger.Info("")
		observability.CLILogger.Info("=== End Diagnostics ===")
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
