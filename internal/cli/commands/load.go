package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	var table string

	cmd := &cobra.Command{
		Use:   "load <file.csv>...",
		Short: "Load CSV files into tables",
		Long: `Load CSV files into ClickHouse tables.

Each file is loaded into a table named after the file (or --table for a single
file). Missing tables are created with String columns taken from the CSV header
and ENGINE = MergeTree ORDER BY tuple(); the file is then streamed to the
server as INSERT ... FORMAT CSVWithNames.`,
		Example: `  leapch load seeds/countries.csv
  leapch load data.csv --table raw_events`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if table != "" && len(args) > 1 {
				return fmt.Errorf("--table can only be used with a single file")
			}

			cmdCtx := NewCommandContext(cmd)
			ch, cleanup, err := cmdCtx.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			r := cmdCtx.Renderer
			for _, path := range args {
				name := table
				if name == "" {
					name = tableNameFromPath(path)
				}
				if err := ch.LoadCSV(cmd.Context(), name, path); err != nil {
					r.StatusLine(name, "error", err.Error())
					return fmt.Errorf("failed to load %s: %w", path, err)
				}
				r.StatusLine(name, "success", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&table, "table", "", "Target table (single file only)")

	return cmd
}

func tableNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
