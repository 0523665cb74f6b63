package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forcelens/forcelens/internal/core"
	"github.com/forcelens/forcelens/internal/core/syncer"
	errwrap "github.com/forcelens/forcelens/internal/errors"
	"github.com/forcelens/forcelens/internal/observability"
	"github.com/forcelens/forcelens/internal/output"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync round over the configured profiles",
	Long: `Fetch records for every sync profile and write them to the configured
output. Profiles fail independently; the command exits non-zero if any
profile failed.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().String("output", "table", "Report format: table, json, markdown")
	syncCmd.Flags().String("to", "", "Write synced records to this file as JSON lines (default from config)")
}

func runSync(cmd *cobra.Command, args []string) error {
	formatValue, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatValue)
	if err != nil {
		return err
	}

	destination, err := cmd.Flags().GetString("to")
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if destination == "" {
		destination = cfg.Sync.Output
	}

	profiles, err := resolveProfiles(cfg)
	if err != nil {
		return err
	}

	sink, closeSink, err := openSink(destination)
	if err != nil {
		return err
	}
	defer closeSink() // nolint:errcheck // best-effort cleanup

	s := &syncer.Syncer{
		Client:   buildClient(cfg),
		Sink:     sink,
		Profiles: profiles,
		Logger:   observability.CLILogger,
	}

	report, err := s.Run(cmd.Context())
	if err != nil {
		return err
	}

	rendered, err := output.NewFormatter(format).FormatReport(report)
	if err != nil {
		return err
	}
	fmt.Println(rendered)

	if report.Failed() {
		return errwrap.NewSyncFailedError(
			fmt.Sprintf("%d of %d profiles failed", failedCount(report.Outcomes), len(report.Outcomes)))
	}
	return nil
}

// openSink resolves the record destination: a JSON-lines file when a path
// is given, a counting no-op otherwise.
func openSink(path string) (syncer.Sink, func() error, error) {
	if path == "" {
		return &syncer.CountingSink{}, func() error { return nil }, nil
	}

	f, err := os.Create(path) // #nosec G304 -- output path is user-provided
	if err != nil {
		return nil, nil, fmt.Errorf("open sync output: %w", err)
	}
	return &syncer.JSONLinesSink{W: f}, f.Close, nil
}

func failedCount(outcomes []core.SyncOutcome) int {
	count := 0
	for _, outcome := range outcomes {
		if outcome.Failed() {
			count++
		}
	}
	return count
}
