package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/forcelens/forcelens/internal/core"
	"github.com/forcelens/forcelens/internal/observability"
	"github.com/forcelens/forcelens/internal/output"
)

var queryCmd = &cobra.Command{
	Use:   "query <soql>",
	Short: "Run a SOQL query against the upstream API",
	Long: `Run a SOQL query and print the full result set.

Pagination is followed automatically; all pages are fetched before
anything is printed. Transient upstream failures are retried through
the resilience pipeline.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().String("output", "table", "Output format: table, json, markdown")
	queryCmd.Flags().String("object", "", "Object name override (default derived from the FROM clause)")
}

func runQuery(cmd *cobra.Command, args []string) error {
	soql := strings.TrimSpace(args[0])
	if soql == "" {
		return errors.New("query must not be empty")
	}

	formatValue, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatValue)
	if err != nil {
		return err
	}

	object, err := cmd.Flags().GetString("object")
	if err != nil {
		return err
	}
	if object == "" {
		object = objectFromSOQL(soql)
	}
	if object == "" {
		return errors.New("could not derive object from query; pass --object")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := buildClient(cfg)

	startedAt := time.Now()
	rows, err := client.Query(cmd.Context(), soql)
	if err != nil {
		return err
	}

	records := make([]core.Record, 0, len(rows))
	for _, row := range rows {
		record, err := core.RecordFromRow(object, row)
		if err != nil {
			return err
		}
		records = append(records, record)
	}

	observability.CLILogger.Debug("query completed",
		zap.String("object", object),
		zap.Int("records", len(records)),
		zap.Duration("duration", time.Since(startedAt)),
	)

	rendered, err := output.NewFormatter(format).FormatRecords(object, records)
	if err != nil {
		return err
	}

	fmt.Println(rendered)
	return nil
}

// objectFromSOQL extracts the object name following the first FROM keyword.
func objectFromSOQL(soql string) string {
	fields := strings.Fields(soql)
	for i, field := range fields {
		if strings.EqualFold(field, "from") && i+1 < len(fields) {
			return strings.Trim(fields[i+1], ",")
		}
	}
	return ""
}
