package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/leapch/internal/cli/output"
	"github.com/leapstack-labs/leapch/pkg/adapters/clickhouse"
	"github.com/spf13/cobra"
)

const (
	replPrompt     = "leapch> "
	replContPrompt = "   ...> "
)

func runQueryREPL(cmd *cobra.Command, cmdCtx *CommandContext, opts *QueryOptions) error {
	ctx := cmd.Context()

	ch, cleanup, err := cmdCtx.Connect(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     cmdCtx.Cfg.HistoryFile,
		AutoComplete:    newTableCompleter(ctx, ch),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	target := cmdCtx.Cfg.Target
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "leapch REPL (%s:%d/%s)\n", target.Host, target.Port, target.Database)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if buf.Len() == 0 && strings.HasPrefix(line, ".") {
			if quit := handleDotCommand(ctx, cmd, ch, cmdCtx.Renderer, line, opts.Format); quit {
				break
			}
			continue
		}

		// Accumulate multi-line SQL until semicolon
		buf.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buf.WriteString(" ")
			rl.SetPrompt(replContPrompt)
			continue
		}
		rl.SetPrompt(replPrompt)

		stmt := buf.String()
		buf.Reset()
		if err := executeAndRender(ctx, ch, cmdCtx.Renderer, stmt, opts.Format); err != nil {
			cmdCtx.Renderer.Error(err.Error())
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout())
	}

	return nil
}

// handleDotCommand runs a REPL dot-command and reports whether the REPL
// should exit.
func handleDotCommand(ctx context.Context, cmd *cobra.Command, ch *clickhouse.Adapter, r *output.Renderer, line, format string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	var err error
	switch command {
	case ".quit", ".exit":
		return true
	case ".help":
		printREPLHelp(cmd.OutOrStdout())
	case ".tables":
		err = listTables(ctx, ch, r, format)
	case ".functions":
		err = listFunctions(ctx, ch, r, format)
	case ".schema":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Usage: .schema <table>")
			return false
		}
		err = showSchema(ctx, ch, r, parts[1], format)
	case ".create":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Usage: .create <table>")
			return false
		}
		var sql string
		if sql, err = ch.ShowCreateTable(ctx, parts[1]); err == nil {
			r.Println(sql)
		}
	case ".clear":
		_, _ = fmt.Fprint(cmd.OutOrStdout(), "\033[H\033[2J")
	default:
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Unknown command: %s (type .help for commands)\n", command)
	}
	if err != nil {
		r.Error(err.Error())
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help            Show this help message
  .tables          List tables and views
  .functions       List user-defined functions
  .schema <name>   Show columns for a table
  .create <name>   Show the CREATE statement for a table
  .clear           Clear the screen
  .quit / .exit    Exit the REPL

Tips:
  - SQL statements must end with a semicolon (;)
  - Use arrow keys to navigate history
  - Tab completion works for table names
`
	_, _ = fmt.Fprintln(w, help)
}

// newTableCompleter creates a readline completer for table names and
// dot-commands. Listing failures leave only the dot-commands.
func newTableCompleter(ctx context.Context, ch *clickhouse.Adapter) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	if tables, err := ch.Tables(ctx); err == nil {
		for _, name := range tables {
			items = append(items, readline.PcItem(name))
		}
	}
	for _, dot := range []string{".help", ".tables", ".functions", ".clear", ".quit", ".exit"} {
		items = append(items, readline.PcItem(dot))
	}
	tableItems := func(string) []string {
		names, _ := ch.Tables(ctx)
		return names
	}
	items = append(items,
		readline.PcItem(".schema", readline.PcItemDynamic(tableItems)),
		readline.PcItem(".create", readline.PcItemDynamic(tableItems)),
	)
	return readline.NewPrefixCompleter(items...)
}
