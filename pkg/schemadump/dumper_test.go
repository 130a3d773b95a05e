package schemadump

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapch/internal/testutil"
	"github.com/leapstack-labs/leapch/pkg/chtype"
	"github.com/leapstack-labs/leapch/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTable struct {
	sql     string
	cols    []core.ColumnMeta
	pk      []string
	colsErr error
}

type fakeSource struct {
	functions []string
	fnSQL     map[string]string
	order     []string
	tables    map[string]fakeTable
	listErr   error
	refs      []string
}

// lookup records the table reference the dumper passed and resolves it
// against the unquoted fixture name.
func (f *fakeSource) lookup(table string) (fakeTable, bool) {
	f.refs = append(f.refs, table)
	t, ok := f.tables[strings.Trim(table, "`")]
	return t, ok
}

func (f *fakeSource) Functions(context.Context) ([]string, error) { return f.functions, nil }

func (f *fakeSource) ShowCreateFunction(_ context.Context, name string) (string, error) {
	sql, ok := f.fnSQL[name]
	if !ok {
		return "", errors.New("function " + name + " not found")
	}
	return sql, nil
}

func (f *fakeSource) Tables(context.Context) ([]string, error) { return f.order, f.listErr }

func (f *fakeSource) ShowCreateTable(_ context.Context, table string) (string, error) {
	t, ok := f.lookup(table)
	if !ok {
		return "", &core.TableNotFoundError{Table: strings.Trim(table, "`")}
	}
	return t.sql, nil
}

func (f *fakeSource) Columns(_ context.Context, table string) ([]core.ColumnMeta, error) {
	t, _ := f.lookup(table)
	return t.cols, t.colsErr
}

func (f *fakeSource) PrimaryKey(_ context.Context, table string) ([]string, error) {
	t, _ := f.lookup(table)
	return t.pk, nil
}

var reg = chtype.NewRegistry(chtype.MapStrategyJSON)

func col(name, typ string) core.ColumnMeta {
	d := reg.MustDescribe(typ)
	return core.ColumnMeta{Name: name, Type: typ, Descriptor: d, Nullable: d.IsNullable()}
}

func withFunctionDefault(c core.ColumnMeta, expr string) core.ColumnMeta {
	c.DefaultFunction = expr
	return c
}

func withDefault(c core.ColumnMeta, value string) core.ColumnMeta {
	c.Default = &value
	return c
}

func dump(t *testing.T, src Source, opts Options) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, New(src, testutil.NewTestLogger(t)).Dump(context.Background(), &buf, opts))
	return buf.String()
}

const eventsSQL = "CREATE TABLE default.events ( `id` UInt64, `at` DateTime64(3) DEFAULT now64(3), `name` LowCardinality(String), " +
	"`tags` Array(String), `addr.city` Array(String), `addr.zip` Array(UInt32), `score` Nullable(Float64), " +
	"INDEX idx_name name TYPE bloom_filter GRANULARITY 4 ) " +
	"ENGINE = ReplicatedMergeTree('/clickhouse/tables/{shard}/events', '{replica}') ORDER BY id SETTINGS index_granularity = 8192"

func eventsTable() fakeTable {
	return fakeTable{
		sql: eventsSQL,
		cols: []core.ColumnMeta{
			col("id", "UInt64"),
			withFunctionDefault(col("at", "DateTime64(3)"), "now64(3)"),
			col("name", "LowCardinality(String)"),
			col("tags", "Array(String)"),
			col("addr.city", "Array(String)"),
			col("addr.zip", "Array(UInt32)"),
			col("score", "Nullable(Float64)"),
		},
		pk: []string{"id"},
	}
}

func TestDump_FullTable(t *testing.T) {
	src := &fakeSource{order: []string{"events"}, tables: map[string]fakeTable{"events": eventsTable()}}

	out := dump(t, src, Options{Mode: ModeFull, Version: "20240102030405"})

	want := `# This file is auto-generated from the current state of the database. Instead
# of editing this file, please use the migrations feature of leapch to
# incrementally modify your database, and then regenerate this schema definition.

define(version: 20240102030405) do

  # TABLE: events
  # SQL: ` + strings.Replace(eventsSQL, "ReplicatedMergeTree('/clickhouse/tables/{shard}/events', '{replica}')", "MergeTree()", 1) + `
  create_table "events", id: :integer, unsigned: true, limit: 8, options: "MergeTree() ORDER BY id SETTINGS index_granularity = 8192", force: :cascade do |t|
    t.datetime "at", precision: 3, default: -> { "now64(3)" }, null: false
    t.string "name", low_cardinality: true, null: false
    t.column "tags", "Array(String)", array: true, null: false
    t.float "score"
    t.column "addr", "Nested(city String, zip UInt32)", null: false

    t.index "name", name: "idx_name", type: "bloom_filter", granularity: 4
  end

end
`
	assert.Equal(t, want, out)
}

func TestDump_SimpleTable(t *testing.T) {
	src := &fakeSource{order: []string{"events"}, tables: map[string]fakeTable{"events": eventsTable()}}

	out := dump(t, src, Options{Mode: ModeSimple})

	assert.Contains(t, out, "define(version: 0) do")
	assert.Contains(t, out, `  create_table "events", id: :integer, limit: 8, force: :cascade do |t|`)
	assert.NotContains(t, out, "# TABLE:")
	assert.NotContains(t, out, "# SQL:")
	assert.NotContains(t, out, "options:")
	assert.NotContains(t, out, "unsigned")
	assert.NotContains(t, out, "t.index")
	assert.Contains(t, out, `    t.column "addr", "Nested(city String, zip UInt32)", null: false`)
}

func TestDump_ViewsSortAfterTables(t *testing.T) {
	src := &fakeSource{
		order: []string{"b", "a", "v"},
		tables: map[string]fakeTable{
			"b": {sql: "CREATE TABLE default.b (`x` UInt8) ENGINE = Memory", cols: []core.ColumnMeta{col("x", "UInt8")}},
			"a": {sql: "CREATE TABLE default.a (`x` UInt8) ENGINE = Memory", cols: []core.ColumnMeta{col("x", "UInt8")}},
			"v": {sql: "CREATE VIEW default.v (`x` UInt8) AS SELECT x FROM default.a", cols: []core.ColumnMeta{col("x", "UInt8")}},
		},
	}

	for _, mode := range []Mode{ModeFull, ModeSimple} {
		t.Run(mode.String(), func(t *testing.T) {
			out := dump(t, src, Options{Mode: mode})
			ia := strings.Index(out, `create_table "a"`)
			ib := strings.Index(out, `create_table "b"`)
			iv := strings.Index(out, `create_table "v"`)
			require.True(t, ia >= 0 && ib >= 0 && iv >= 0, out)
			assert.Less(t, ia, ib)
			assert.Less(t, ib, iv)
		})
	}
}

func TestDump_MaterializedView(t *testing.T) {
	src := &fakeSource{
		order: []string{"mv"},
		tables: map[string]fakeTable{
			"mv": {
				sql:  "CREATE MATERIALIZED VIEW default.mv TO default.a (`x` UInt8) AS SELECT x FROM default.b",
				cols: []core.ColumnMeta{col("x", "UInt8")},
			},
		},
	}

	out := dump(t, src, Options{Mode: ModeFull})
	assert.Contains(t, out, `  create_table "mv", view: true, materialized: true, id: false, as: "SELECT x FROM default.b", force: :cascade do |t|`+"\n  end\n")

	out = dump(t, src, Options{Mode: ModeSimple})
	assert.Contains(t, out, `  create_table "mv", id: false, force: :cascade do |t|`+"\n    t.integer \"x\", limit: 1, null: false\n  end\n")
}

func TestDump_FailureDoesNotAbort(t *testing.T) {
	src := &fakeSource{
		order: []string{"bad", "good"},
		tables: map[string]fakeTable{
			"bad": {
				sql:     "CREATE TABLE default.bad (`x` Weird) ENGINE = Memory",
				colsErr: &core.UnsupportedTypeError{Column: "x", Type: "Array(Weird"},
			},
			"good": {
				sql:  "CREATE TABLE default.good (`x` String) ENGINE = Memory",
				cols: []core.ColumnMeta{col("x", "String")},
			},
		},
	}

	out := dump(t, src, Options{Mode: ModeFull})

	assert.Contains(t, out, "  # TABLE: bad\n")
	assert.Contains(t, out, `# Could not dump table "bad" because of following UnsupportedTypeError`+"\n#   unknown type 'Array(Weird' for column 'x'\n")
	assert.Contains(t, out, `  create_table "good", id: false, options: "Memory", force: :cascade do |t|`)
	assert.Contains(t, out, `    t.string "x", null: false`)
	assert.Less(t, strings.Index(out, `"bad"`), strings.Index(out, `"good"`))
}

func TestDump_TableVanished(t *testing.T) {
	src := &fakeSource{
		order:  []string{"gone", "kept"},
		tables: map[string]fakeTable{"kept": {sql: "CREATE TABLE default.kept (`x` Date) ENGINE = Log", cols: []core.ColumnMeta{col("x", "Date")}}},
	}

	out := dump(t, src, Options{Mode: ModeSimple})
	assert.Contains(t, out, `# Could not dump table "gone" because of following TableNotFoundError`)
	assert.Contains(t, out, `    t.date "x", null: false`)
}

func TestDump_DottedTableName(t *testing.T) {
	src := &fakeSource{
		order: []string{"events.v2"},
		tables: map[string]fakeTable{
			"events.v2": {sql: "CREATE TABLE default.`events.v2` (`x` String) ENGINE = Memory", cols: []core.ColumnMeta{col("x", "String")}},
		},
	}

	out := dump(t, src, Options{Mode: ModeSimple})

	assert.Contains(t, out, `  create_table "events.v2", id: false, force: :cascade do |t|`)
	assert.NotContains(t, out, "Could not dump")
	for _, ref := range src.refs {
		assert.Equal(t, "`events.v2`", ref)
	}
	assert.Len(t, src.refs, 3)
}

func TestDump_Functions(t *testing.T) {
	src := &fakeSource{
		functions: []string{"double", "lost"},
		fnSQL:     map[string]string{"double": "CREATE FUNCTION double AS x -> (x * 2)"},
	}

	out := dump(t, src, Options{Mode: ModeFull})
	assert.Contains(t, out, "  # FUNCTION: double\n  # SQL: CREATE FUNCTION double AS x -> (x * 2)\n")
	assert.Contains(t, out, `  create_function "double", "x -> (x * 2)", force: true`)
	assert.Contains(t, out, `# Could not dump function "lost" because of following error`)

	out = dump(t, src, Options{Mode: ModeSimple})
	assert.NotContains(t, out, "# FUNCTION")
	assert.Contains(t, out, `  create_function "double", "x -> (x * 2)", force: true`)
}

func TestDump_SkipsInternalAndIgnored(t *testing.T) {
	plain := func(name string) fakeTable {
		return fakeTable{sql: "CREATE TABLE default." + name + " (`x` UInt8) ENGINE = Memory", cols: []core.ColumnMeta{col("x", "UInt8")}}
	}
	src := &fakeSource{
		order: []string{".inner.mv", ".inner_id.1234", "schema_migrations", "tmp_1", "tmp_2", "users", "orders"},
		tables: map[string]fakeTable{
			".inner.mv": plain("inner"), ".inner_id.1234": plain("inner_id"), "schema_migrations": plain("schema_migrations"),
			"tmp_1": plain("tmp_1"), "tmp_2": plain("tmp_2"), "users": plain("users"), "orders": plain("orders"),
		},
	}

	out := dump(t, src, Options{
		Mode:         ModeSimple,
		IgnoreTables: []string{"schema_migrations", "tmp_*"},
		Filter:       func(table string) bool { return table != "orders" },
	})

	assert.Contains(t, out, `create_table "users"`)
	for _, skipped := range []string{".inner", "schema_migrations", "tmp_", "orders"} {
		assert.NotContains(t, out, skipped)
	}
}

func TestDump_ListingErrorIsFatal(t *testing.T) {
	src := &fakeSource{listErr: errors.New("boom")}
	err := New(src, nil).Dump(context.Background(), &bytes.Buffer{}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list tables")
}

func TestDump_PrimaryKeys(t *testing.T) {
	src := &fakeSource{
		order: []string{"composite", "custom", "none"},
		tables: map[string]fakeTable{
			"composite": {
				sql:  "CREATE TABLE default.composite (`tenant` String, `id` UInt32) ENGINE = MergeTree ORDER BY (tenant, id)",
				cols: []core.ColumnMeta{col("tenant", "String"), col("id", "UInt32")},
				pk:   []string{"tenant", "id"},
			},
			"custom": {
				sql:  "CREATE TABLE default.custom (`key` String, `n` Int16) ENGINE = MergeTree ORDER BY key",
				cols: []core.ColumnMeta{col("key", "String"), withDefault(col("n", "Int16"), "7")},
				pk:   []string{"key"},
			},
			"none": {
				sql:  "CREATE TABLE default.none (`s` String) ENGINE = Memory",
				cols: []core.ColumnMeta{withDefault(col("s", "String"), "")},
			},
		},
	}

	out := dump(t, src, Options{Mode: ModeSimple})
	assert.Contains(t, out, `  create_table "composite", primary_key: ["tenant", "id"], force: :cascade do |t|`+"\n"+
		`    t.string "tenant", null: false`+"\n"+
		`    t.integer "id", null: false`+"\n")
	assert.Contains(t, out, `  create_table "custom", primary_key: "key", id: :string, force: :cascade do |t|`+"\n"+
		`    t.integer "n", limit: 2, default: 7, null: false`+"\n  end\n")
	assert.Contains(t, out, `  create_table "none", id: false, force: :cascade do |t|`+"\n"+
		`    t.string "s", default: "", null: false`+"\n")
}
