package clickhouse

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/leapstack-labs/leapch/pkg/adapter"
	"github.com/leapstack-labs/leapch/pkg/chtype"
	"github.com/leapstack-labs/leapch/pkg/core"
)

var (
	integerDefaultRe  = regexp.MustCompile(`\A-?\d+\z`)
	functionDefaultRe = regexp.MustCompile(`\w+\(.*\)`)
	whitespaceRe      = regexp.MustCompile(`\s+`)
)

// Tables lists tables and views of the current database, skipping the
// hidden storage of materialized views.
func (a *Adapter) Tables(ctx context.Context) ([]string, error) {
	res, err := a.ExecSystem(ctx, "SHOW TABLES WHERE name NOT LIKE '.inner_id.%'")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return stringColumn(res), nil
}

// Functions lists SQL user-defined functions.
func (a *Adapter) Functions(ctx context.Context) ([]string, error) {
	res, err := a.ExecSystem(ctx, "SELECT name FROM system.functions WHERE origin = 'SQLUserDefined' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list functions: %w", err)
	}
	return stringColumn(res), nil
}

// ShowCreateFunction returns the stored CREATE FUNCTION statement.
func (a *Adapter) ShowCreateFunction(ctx context.Context, name string) (string, error) {
	stmt := "SELECT create_query FROM system.functions WHERE origin = 'SQLUserDefined' AND name = " + chtype.QuoteString(name)
	res, err := a.ExecSystem(ctx, stmt)
	if err != nil {
		return "", fmt.Errorf("failed to show function %s: %w", name, err)
	}
	if res.Len() == 0 {
		return "", fmt.Errorf("function %s not found", name)
	}
	return cellString(res.Rows[0][0]), nil
}

// ShowCreateTable returns the CREATE statement of a table or view with all
// whitespace runs collapsed to a single space.
func (a *Adapter) ShowCreateTable(ctx context.Context, table string) (string, error) {
	res, err := a.ExecSystem(ctx, "SHOW CREATE TABLE "+a.reg.QuoteTableName(table))
	if err != nil {
		return "", fmt.Errorf("failed to show table %s: %w", table, err)
	}
	if res.Len() == 0 {
		return "", &core.TableNotFoundError{Table: displayTable(table)}
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(cellString(res.Rows[0][0]), " ")), nil
}

// Columns describes the columns of table in declaration order. An empty
// DESCRIBE means the table vanished.
func (a *Adapter) Columns(ctx context.Context, table string) ([]core.ColumnMeta, error) {
	res, err := a.ExecSystem(ctx, "DESCRIBE TABLE "+a.reg.QuoteTableName(table))
	if err != nil {
		return nil, fmt.Errorf("failed to describe table %s: %w", table, err)
	}
	if res.Len() == 0 {
		return nil, &core.TableNotFoundError{Table: displayTable(table)}
	}

	nameIdx, typeIdx, defIdx := res.ColumnIndex("name"), res.ColumnIndex("type"), res.ColumnIndex("default_expression")
	if nameIdx < 0 || typeIdx < 0 {
		return nil, &core.MalformedResponseError{Format: "DESCRIBE", Err: fmt.Errorf("missing name or type column in %v", res.ColumnNames())}
	}

	cols := make([]core.ColumnMeta, 0, res.Len())
	for i, row := range res.Rows {
		name, typ := cellString(row[nameIdx]), cellString(row[typeIdx])
		desc, err := a.reg.Describe(typ)
		if err != nil {
			return nil, &core.UnsupportedTypeError{Column: name, Type: typ, Err: err}
		}

		col := core.ColumnMeta{
			Name:       name,
			Type:       typ,
			Descriptor: desc,
			Nullable:   desc.IsNullable(),
			Position:   i + 1,
		}
		if defIdx >= 0 {
			col.Default, col.DefaultFunction = extractDefault(cellString(row[defIdx]))
		}
		cols = append(cols, col)
	}
	return cols, nil
}

// extractDefault splits a DESCRIBE default expression into a literal value
// and a function expression. At most one of them is set.
func extractDefault(expr string) (*string, string) {
	var value *string
	switch {
	case expr == "now()":
	case expr == "true", expr == "false":
		value = &expr
	case expr == "''":
		empty := ""
		value = &empty
	case integerDefaultRe.MatchString(expr):
		value = &expr
	}
	if value == nil && functionDefaultRe.MatchString(expr) {
		return nil, expr
	}
	return value, ""
}

// PrimaryKey returns the primary key columns of table in key order.
func (a *Adapter) PrimaryKey(ctx context.Context, table string) ([]string, error) {
	db, name := adapter.ParseQualifiedName(table, a.Database())
	dbExpr := "currentDatabase()"
	if db != "" {
		dbExpr = chtype.QuoteString(db)
	}
	stmt := fmt.Sprintf("SELECT name FROM system.columns WHERE database = %s AND table = %s AND is_in_primary_key = 1 ORDER BY position",
		dbExpr, chtype.QuoteString(name))
	res, err := a.ExecSystem(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to read primary key of %s: %w", table, err)
	}
	return stringColumn(res), nil
}

// GetTableMetadata retrieves columns, key flags, engine and row count of a
// table. Engine and row count are best effort.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	cols, err := a.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	pk, err := a.PrimaryKey(ctx, table)
	if err != nil {
		return nil, err
	}
	inKey := make(map[string]bool, len(pk))
	for _, k := range pk {
		inKey[k] = true
	}
	for i := range cols {
		cols[i].PrimaryKey = inKey[cols[i].Name]
	}

	db, name := adapter.ParseQualifiedName(table, a.Database())
	meta := &adapter.Metadata{Database: db, Name: name, Columns: cols}

	dbExpr := "currentDatabase()"
	if db != "" {
		dbExpr = chtype.QuoteString(db)
	}
	engineSQL := fmt.Sprintf("SELECT engine, total_rows FROM system.tables WHERE database = %s AND name = %s", dbExpr, chtype.QuoteString(name))
	res, err := a.ExecSystem(ctx, engineSQL)
	if err != nil {
		a.Logger.Debug("engine lookup failed", slog.String("table", table), slog.String("error", err.Error()))
		return meta, nil
	}
	if res.Len() > 0 {
		meta.Engine = cellString(res.Rows[0][0])
		if n, ok := res.Rows[0][1].(int64); ok {
			meta.RowCount = n
		}
	}
	return meta, nil
}

// displayTable strips identifier quoting from a table reference.
func displayTable(table string) string {
	db, name := adapter.ParseQualifiedName(table, "")
	if db == "" {
		return name
	}
	return db + "." + name
}

func stringColumn(res *core.TabularResult) []string {
	cells := res.FirstColumn()
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = cellString(c)
	}
	return out
}

func cellString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	}
	return fmt.Sprint(v)
}
