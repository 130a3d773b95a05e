// Package schemadump renders a declarative schema definition of a
// ClickHouse database from live introspection queries.
package schemadump

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapch/pkg/chtype"
	"github.com/leapstack-labs/leapch/pkg/core"
)

// Source provides the introspection queries the dumper needs.
// *clickhouse.Adapter implements it. Table arguments arrive backtick-quoted.
type Source interface {
	Functions(ctx context.Context) ([]string, error)
	ShowCreateFunction(ctx context.Context, name string) (string, error)
	Tables(ctx context.Context) ([]string, error)
	ShowCreateTable(ctx context.Context, table string) (string, error)
	Columns(ctx context.Context, table string) ([]core.ColumnMeta, error)
	PrimaryKey(ctx context.Context, table string) ([]string, error)
}

// Mode selects how much server detail the dump keeps.
type Mode int

const (
	// ModeFull includes CREATE statements as comments, engine options,
	// view flags and unsigned flags.
	ModeFull Mode = iota
	// ModeSimple keeps only portable column declarations.
	ModeSimple
)

func (m Mode) String() string {
	if m == ModeSimple {
		return "simple"
	}
	return "full"
}

// Options control a dump.
type Options struct {
	Mode Mode
	// Filter, when set, keeps only tables for which it returns true.
	Filter func(table string) bool
	// IgnoreTables holds names or path.Match patterns to skip.
	IgnoreTables []string
	// Version is written into the define(version: ...) header.
	Version string
}

func (o Options) ignored(table string) bool {
	if o.Filter != nil && !o.Filter(table) {
		return true
	}
	for _, pattern := range o.IgnoreTables {
		if pattern == table {
			return true
		}
		if ok, _ := path.Match(pattern, table); ok {
			return true
		}
	}
	return false
}

// Dumper renders schema definitions.
type Dumper struct {
	src    Source
	logger *slog.Logger
	names  chtype.NameQuoter
}

// New creates a Dumper reading from src.
// If logger is nil, a discard logger is used.
func New(src Source, logger *slog.Logger) *Dumper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dumper{src: src, logger: logger}
}

const header = `# This file is auto-generated from the current state of the database. Instead
# of editing this file, please use the migrations feature of leapch to
# incrementally modify your database, and then regenerate this schema definition.

`

// Dump writes the schema to w. Listing functions or tables is fatal;
// failures on a single function or table are rendered as comments and the
// dump continues.
func (d *Dumper) Dump(ctx context.Context, w io.Writer, opts Options) error {
	var b strings.Builder
	b.WriteString(header)
	fmt.Fprintf(&b, "define(version: %s) do\n\n", formatVersion(opts.Version))

	functions, err := d.src.Functions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list functions: %w", err)
	}
	for _, fn := range functions {
		b.WriteString(d.function(ctx, fn, opts.Mode))
	}

	tables, err := d.sortedTables(ctx, opts)
	if err != nil {
		return err
	}
	for _, t := range tables {
		res := d.table(ctx, t, opts.Mode)
		if res.err != nil {
			d.logger.Warn("could not dump table", slog.String("table", t.name), slog.String("error", res.err.Error()))
		}
		b.WriteString(res.render())
	}

	b.WriteString("end\n")
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}
	return nil
}

func formatVersion(v string) string {
	if v == "" {
		return "0"
	}
	for _, r := range v {
		if (r < '0' || r > '9') && r != '_' {
			return quote(v)
		}
	}
	return v
}

func (d *Dumper) function(ctx context.Context, name string, mode Mode) string {
	var b strings.Builder
	sql, err := d.src.ShowCreateFunction(ctx, name)
	if err != nil {
		d.logger.Warn("could not dump function", slog.String("function", name), slog.String("error", err.Error()))
		fmt.Fprintf(&b, "# Could not dump function %s because of following %s\n#   %s\n\n", quote(name), errorKind(err), err)
		return b.String()
	}
	if mode == ModeFull {
		fmt.Fprintf(&b, "  # FUNCTION: %s\n  # SQL: %s\n", name, sql)
	}
	fmt.Fprintf(&b, "  create_function %s, %s, force: true\n\n", quote(name), quote(FunctionBody(sql)))
	return b.String()
}

// tableEntry is a listed table with its CREATE statement, fetched once for
// sorting and rendering.
type tableEntry struct {
	name      string
	ref       string // name quoted as one identifier for introspection calls
	createSQL string
	err       error
}

// sortedTables lists tables, drops internal and ignored ones, and orders
// plain tables before views, each group by name.
func (d *Dumper) sortedTables(ctx context.Context, opts Options) ([]tableEntry, error) {
	names, err := d.src.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	entries := make([]tableEntry, 0, len(names))
	for _, name := range names {
		if strings.HasPrefix(name, ".inner") || opts.ignored(name) {
			continue
		}
		ref := chtype.QuoteIdentifier(name)
		sql, err := d.src.ShowCreateTable(ctx, ref)
		entries = append(entries, tableEntry{name: name, ref: ref, createSQL: sql, err: err})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		vi, _ := IsView(entries[i].createSQL)
		vj, _ := IsView(entries[j].createSQL)
		if vi != vj {
			return !vi
		}
		return entries[i].name < entries[j].name
	})
	return entries, nil
}

// tableResult is the outcome of rendering one table: the comment preamble
// always, then either the block or the failure.
type tableResult struct {
	name     string
	preamble string
	block    string
	err      error
}

func (r tableResult) render() string {
	if r.err == nil {
		return r.preamble + r.block
	}
	return fmt.Sprintf("%s# Could not dump table %s because of following %s\n#   %s\n\n",
		r.preamble, quote(r.name), errorKind(r.err), r.err)
}

func (d *Dumper) table(ctx context.Context, t tableEntry, mode Mode) tableResult {
	res := tableResult{name: t.name}
	if mode == ModeFull {
		res.preamble = fmt.Sprintf("  # TABLE: %s\n", t.name)
		if t.createSQL != "" {
			res.preamble += fmt.Sprintf("  # SQL: %s\n", StripReplication(t.createSQL))
		}
	}
	if t.err != nil {
		res.err = t.err
		return res
	}
	res.block, res.err = d.renderTable(ctx, t, mode)
	return res
}

func (d *Dumper) renderTable(ctx context.Context, t tableEntry, mode Mode) (string, error) {
	cols, err := d.src.Columns(ctx, t.ref)
	if err != nil {
		return "", err
	}
	pk, err := d.src.PrimaryKey(ctx, t.ref)
	if err != nil {
		return "", err
	}

	view, materialized := IsView(t.createSQL)

	var tableOpts []option
	if mode == ModeFull && view {
		tableOpts = append(tableOpts, option{"view", "true"})
		if materialized {
			tableOpts = append(tableOpts, option{"materialized", "true"})
		}
	}
	keyOpts, keyColumn, err := primaryKeyOptions(pk, cols, mode)
	if err != nil {
		return "", err
	}
	tableOpts = append(tableOpts, keyOpts...)
	if mode == ModeFull {
		o := ParseTableOptions(t.createSQL)
		if o.Engine != "" {
			tableOpts = append(tableOpts, option{"options", quote(StripReplication(o.Engine))})
		}
		if o.As != "" {
			tableOpts = append(tableOpts, option{"as", quote(o.As)})
		}
	}
	tableOpts = append(tableOpts, option{"force", ":cascade"})

	var b strings.Builder
	fmt.Fprintf(&b, "  create_table %s, %s do |t|\n", quote(t.name), formatOptions(tableOpts))

	if mode == ModeSimple || !view {
		flat, nested := GroupNested(cols)
		for _, c := range flat {
			if c.Name == keyColumn {
				continue
			}
			spec, err := specFor(c, mode)
			if err != nil {
				return "", err
			}
			renderColumn(&b, d.names.Column(c.Name), spec)
		}
		for _, g := range nested {
			fmt.Fprintf(&b, "    t.column %s, %s", quote(g.Name), quote(g.Declaration()))
			if !g.Columns[0].Nullable {
				b.WriteString(", null: false")
			}
			b.WriteByte('\n')
		}
	}

	if indexes := ExtractIndexes(t.createSQL); mode == ModeFull && len(indexes) > 0 {
		b.WriteByte('\n')
		for _, idx := range indexes {
			fmt.Fprintf(&b, "    t.index %s, name: %s, type: %s, granularity: %d\n",
				quote(idx.Expr), quote(idx.Name), quote(idx.Type), idx.Granularity)
		}
	}

	b.WriteString("  end\n\n")
	return b.String(), nil
}

// errorKind names the error class shown in failure comments.
func errorKind(err error) string {
	var (
		unsupported *core.UnsupportedTypeError
		notFound    *core.TableNotFoundError
		stmt        *core.StatementError
		conn        *core.ConnectionError
		malformed   *core.MalformedResponseError
		parse       *chtype.ParseError
	)
	switch {
	case errors.As(err, &unsupported):
		return "UnsupportedTypeError"
	case errors.As(err, &notFound):
		return "TableNotFoundError"
	case errors.As(err, &stmt):
		return "StatementError"
	case errors.As(err, &conn):
		return "ConnectionError"
	case errors.As(err, &malformed):
		return "MalformedResponseError"
	case errors.As(err, &parse):
		return "ParseError"
	}
	return "error"
}
