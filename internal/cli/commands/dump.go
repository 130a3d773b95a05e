package commands

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapch/pkg/adapters/clickhouse"
	"github.com/leapstack-labs/leapch/pkg/schemadump"
	"github.com/leapstack-labs/leapch/pkg/schemamigration"
	"github.com/spf13/cobra"
)

// DumpOptions holds options for the dump command.
type DumpOptions struct {
	Simple  bool
	File    string
	Ignore  []string
	Only    []string
	Version string
}

// NewDumpCommand creates the dump command.
func NewDumpCommand() *cobra.Command {
	opts := &DumpOptions{}

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump the database schema as a schema definition file",
		Long: `Dump user-defined functions, tables and views of the target database.

Tables are written before views, each group sorted by name. A table whose
definition cannot be read is recorded as a comment and the dump continues.

Full mode keeps engines, indexes and the original CREATE statements as
comments; --simple writes portable column definitions only.

The define(version: ...) header holds the latest version recorded in
schema_migrations, or 0 when there is none.`,
		Example: `  # Print the schema
  leapch dump

  # Write a portable schema file
  leapch dump --simple --file db/schema.rb

  # Leave out scratch tables
  leapch dump --ignore 'tmp_*' --ignore sessions_buffer`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDump(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Simple, "simple", false, "Write portable column definitions only")
	cmd.Flags().StringVar(&opts.File, "file", "", "Write the dump to a file instead of stdout")
	cmd.Flags().StringSliceVar(&opts.Ignore, "ignore", nil, "Table name or glob pattern to skip (repeatable)")
	cmd.Flags().StringSliceVar(&opts.Only, "only", nil, "Dump only these tables")
	cmd.Flags().StringVar(&opts.Version, "schema-version", "", "Schema version for the header (default: latest migration)")

	return cmd
}

func runDump(cmd *cobra.Command, opts *DumpOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfgDump := cmdCtx.Cfg.DumpOptions()
	ctx := cmd.Context()

	ch, cleanup, err := cmdCtx.Connect(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	dumpOpts := schemadump.Options{
		Mode:         schemadump.ModeFull,
		IgnoreTables: append(append([]string{}, cfgDump.IgnoreTables...), opts.Ignore...),
		Version:      opts.Version,
	}
	if opts.Simple || (cfgDump.Simple && !cmd.Flags().Changed("simple")) {
		dumpOpts.Mode = schemadump.ModeSimple
	}
	if len(opts.Only) > 0 {
		only := make(map[string]bool, len(opts.Only))
		for _, t := range opts.Only {
			only[t] = true
		}
		dumpOpts.Filter = func(table string) bool { return only[table] }
	}
	if dumpOpts.Version == "" {
		dumpOpts.Version = latestVersion(ctx, ch, cmdCtx.Logger)
	}

	var buf bytes.Buffer
	if err := schemadump.New(ch, cmdCtx.Logger).Dump(ctx, &buf, dumpOpts); err != nil {
		return err
	}

	file := opts.File
	if file == "" {
		file = cfgDump.Output
	}
	if file == "" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if dir := filepath.Dir(file); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(file, buf.Bytes(), 0o644); err != nil { //nolint:gosec // schema files are committed
		return fmt.Errorf("failed to write %s: %w", file, err)
	}
	cmdCtx.Renderer.Success("Schema written to " + file)
	return nil
}

// latestVersion returns the newest recorded migration, or "" when
// schema_migrations is missing or empty.
func latestVersion(ctx context.Context, ch *clickhouse.Adapter, logger *slog.Logger) string {
	v, err := schemamigration.New(ch, logger).Latest(ctx)
	if err != nil {
		logger.Debug("no migration version for dump header", slog.String("error", err.Error()))
		return ""
	}
	return v
}
