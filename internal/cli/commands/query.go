package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/leapstack-labs/leapch/internal/cli/output"
	"github.com/leapstack-labs/leapch/pkg/adapters/clickhouse"
	"github.com/spf13/cobra"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format string
	Input  string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run SQL against the ClickHouse target",
		Long: `Run SQL against the configured ClickHouse target over HTTP.

Read statements (SELECT, SHOW, DESCRIBE, EXPLAIN, WITH ...) render their rows;
anything else is executed and reported as OK.

When invoked without arguments on a terminal, enters interactive REPL mode.`,
		Example: `  # Execute SQL directly
  leapch query "SELECT name, engine FROM system.tables LIMIT 5"

  # List tables
  leapch query tables

  # Show columns for a table
  leapch query schema events

  # Output as CSV
  leapch query "SELECT * FROM events" --format csv

  # Interactive mode
  leapch query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Result format: table, json, csv, md (default: follows --output)")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")

	cmd.AddCommand(newQueryTablesCommand(opts))
	cmd.AddCommand(newQueryFunctionsCommand(opts))
	cmd.AddCommand(newQuerySchemaCommand(opts))

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	cmdCtx := NewCommandContext(cmd)

	var sqlQuery string
	switch {
	case len(args) > 0:
		sqlQuery = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlQuery = string(content)
	case !output.IsTerminal(cmd.InOrStdin()):
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlQuery = string(content)
	default:
		return runQueryREPL(cmd, cmdCtx, opts)
	}

	if strings.TrimSpace(sqlQuery) == "" {
		return fmt.Errorf("no SQL given")
	}

	ch, cleanup, err := cmdCtx.Connect(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	return executeAndRender(cmd.Context(), ch, cmdCtx.Renderer, sqlQuery, opts.Format)
}

var (
	// tabularRe matches statements outside the read allowlist that still
	// answer with rows.
	tabularRe = regexp.MustCompile(`(?is)^\s*(describe|desc|exists|check)\b`)
	// sessionRe matches session and transaction verbs. They count as reads
	// but the server answers them without a result set.
	sessionRe = regexp.MustCompile(`(?is)^\s*(set|begin|commit|rollback|savepoint|release)\b`)
)

// returnsRows reports whether sqlQuery should be run for its result set.
func returnsRows(sqlQuery string) bool {
	if sessionRe.MatchString(sqlQuery) {
		return false
	}
	return !clickhouse.IsWriteQuery(sqlQuery) || tabularRe.MatchString(sqlQuery)
}

// executeAndRender runs sqlQuery, rendering rows for reads and a status line
// for writes.
func executeAndRender(ctx context.Context, ch *clickhouse.Adapter, r *output.Renderer, sqlQuery, format string) error {
	if !returnsRows(sqlQuery) {
		if err := ch.Exec(ctx, sqlQuery); err != nil {
			return err
		}
		r.Success("OK")
		return nil
	}
	res, err := ch.Query(ctx, sqlQuery)
	if err != nil {
		return err
	}
	return r.Table(res, format)
}

func newQueryTablesCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables and views in the target database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			ch, cleanup, err := cmdCtx.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			return listTables(cmd.Context(), ch, cmdCtx.Renderer, opts.Format)
		},
	}
}

func newQueryFunctionsCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List user-defined SQL functions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			ch, cleanup, err := cmdCtx.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			return listFunctions(cmd.Context(), ch, cmdCtx.Renderer, opts.Format)
		},
	}
}

func newQuerySchemaCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <table>",
		Short: "Show columns for a table or view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			ch, cleanup, err := cmdCtx.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			return showSchema(cmd.Context(), ch, cmdCtx.Renderer, args[0], opts.Format)
		},
	}
}
