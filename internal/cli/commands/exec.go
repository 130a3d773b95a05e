package commands

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/leapstack-labs/leapch/pkg/adapters/clickhouse"
	"github.com/spf13/cobra"
)

var (
	insertRe = regexp.MustCompile(`(?is)^\s*INSERT\s`)
	updateRe = regexp.MustCompile(`(?is)^\s*ALTER\s+TABLE\s+.+?\s+UPDATE\s`)
	deleteRe = regexp.MustCompile(`(?is)^\s*(DELETE\s+FROM\s|ALTER\s+TABLE\s+.+?\s+DELETE\s)`)
)

// classifyStatement picks the executor kind for a write statement.
func classifyStatement(stmt string) clickhouse.Kind {
	switch {
	case insertRe.MatchString(stmt):
		return clickhouse.KindInsert
	case updateRe.MatchString(stmt):
		return clickhouse.KindUpdate
	case deleteRe.MatchString(stmt):
		return clickhouse.KindDelete
	}
	return clickhouse.KindDDL
}

// NewExecCommand creates the exec command.
func NewExecCommand() *cobra.Command {
	var input string
	var settings map[string]string

	cmd := &cobra.Command{
		Use:   "exec [SQL]",
		Short: "Execute a write or DDL statement",
		Long: `Execute a statement that does not return rows.

INSERT, ALTER TABLE ... UPDATE and DELETE report the affected row count taken
from the server's X-ClickHouse-Summary header. Other statements report OK.`,
		Example: `  leapch exec "INSERT INTO events VALUES (1, 'click')"
  leapch exec "ALTER TABLE events DELETE WHERE id = 1"
  leapch exec -i migrations/001_create_events.sql
  leapch exec "OPTIMIZE TABLE events FINAL" --setting alter_sync=2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			stmt := strings.Join(args, " ")
			if input != "" {
				content, err := os.ReadFile(input)
				if err != nil {
					return fmt.Errorf("failed to read file: %w", err)
				}
				stmt = string(content)
			}
			if strings.TrimSpace(stmt) == "" {
				return fmt.Errorf("no statement given")
			}

			cmdCtx := NewCommandContext(cmd)
			ch, cleanup, err := cmdCtx.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			kind := classifyStatement(stmt)
			var opts []clickhouse.ExecOption
			if len(settings) > 0 {
				opts = append(opts, clickhouse.WithSettings(settings))
			}
			res, err := ch.Execute(cmd.Context(), stmt, kind, opts...)
			if err != nil {
				return err
			}

			switch kind {
			case clickhouse.KindInsert, clickhouse.KindUpdate, clickhouse.KindDelete:
				cmdCtx.Renderer.Success(fmt.Sprintf("%s: %d rows", kind, res.RowsAffected))
			default:
				cmdCtx.Renderer.Success("OK")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Read the statement from file")
	cmd.Flags().StringToStringVar(&settings, "setting", nil, "Per-statement ClickHouse setting (key=value, repeatable)")

	return cmd
}
