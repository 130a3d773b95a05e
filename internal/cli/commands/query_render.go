package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapch/internal/cli/output"
	"github.com/leapstack-labs/leapch/pkg/adapters/clickhouse"
	"github.com/leapstack-labs/leapch/pkg/core"
)

func listTables(ctx context.Context, ch *clickhouse.Adapter, r *output.Renderer, format string) error {
	names, err := ch.Tables(ctx)
	if err != nil {
		return err
	}
	return r.Table(nameResult("name", names), format)
}

func listFunctions(ctx context.Context, ch *clickhouse.Adapter, r *output.Renderer, format string) error {
	names, err := ch.Functions(ctx)
	if err != nil {
		return err
	}
	return r.Table(nameResult("name", names), format)
}

func nameResult(column string, names []string) *core.TabularResult {
	res := &core.TabularResult{Columns: []core.ColumnMeta{{Name: column, Type: "String"}}}
	for _, n := range names {
		res.Rows = append(res.Rows, []any{n})
	}
	return res
}

// columnInfo represents schema column information.
type columnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
	PK       bool   `json:"pk"`
}

type schemaOutput struct {
	Name       string       `json:"name"`
	Engine     string       `json:"engine,omitempty"`
	TotalRows  int64        `json:"total_rows"`
	Columns    []columnInfo `json:"columns"`
	PrimaryKey []string     `json:"primary_key"`
}

func showSchema(ctx context.Context, ch *clickhouse.Adapter, r *output.Renderer, table, format string) error {
	meta, err := ch.GetTableMetadata(ctx, table)
	if err != nil {
		return err
	}

	out := schemaOutput{Name: meta.Name, Engine: meta.Engine, TotalRows: meta.RowCount, PrimaryKey: []string{}}
	for _, c := range meta.Columns {
		info := columnInfo{Name: c.Name, Type: c.Type, Nullable: c.Nullable, PK: c.PrimaryKey}
		switch {
		case c.Default != nil:
			info.Default = *c.Default
		case c.DefaultFunction != "":
			info.Default = c.DefaultFunction
		}
		if c.PrimaryKey {
			out.PrimaryKey = append(out.PrimaryKey, c.Name)
		}
		out.Columns = append(out.Columns, info)
	}

	if format == "json" || (format == "" && r.EffectiveMode() == output.ModeJSON) {
		return r.JSON(out)
	}

	title := "Table: " + out.Name
	if out.Engine != "" {
		title += " (" + out.Engine + ")"
	}
	r.Header(2, title)

	res := &core.TabularResult{Columns: []core.ColumnMeta{
		{Name: "Column"}, {Name: "Type"}, {Name: "Nullable"}, {Name: "Default"}, {Name: "PK"},
	}}
	for _, c := range out.Columns {
		pk := ""
		if c.PK {
			pk = "yes"
		}
		res.Rows = append(res.Rows, []any{c.Name, c.Type, yesNo(c.Nullable), c.Default, pk})
	}
	if err := r.Table(res, format); err != nil {
		return err
	}
	if len(out.PrimaryKey) > 0 {
		r.Println(fmt.Sprintf("Primary key: %s", strings.Join(out.PrimaryKey, ", ")))
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
