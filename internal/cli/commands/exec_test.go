package commands

import (
	"os"
	"path/filepath"
	"testing"

	clitest "github.com/leapstack-labs/leapch/internal/cli/testutil"
	"github.com/leapstack-labs/leapch/internal/testutil"
	"github.com/leapstack-labs/leapch/pkg/adapters/clickhouse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatement(t *testing.T) {
	tests := []struct {
		stmt string
		want clickhouse.Kind
	}{
		{"INSERT INTO t VALUES (1)", clickhouse.KindInsert},
		{"  insert into t select 1", clickhouse.KindInsert},
		{"ALTER TABLE t UPDATE x = 1 WHERE id = 2", clickhouse.KindUpdate},
		{"ALTER TABLE db.t DELETE WHERE id = 2", clickhouse.KindDelete},
		{"DELETE FROM t WHERE id = 2", clickhouse.KindDelete},
		{"ALTER TABLE t ADD COLUMN y UInt8", clickhouse.KindDDL},
		{"OPTIMIZE TABLE t FINAL", clickhouse.KindDDL},
		{"CREATE TABLE inserts (x UInt8) ENGINE = Memory", clickhouse.KindDDL},
	}
	for _, tt := range tests {
		t.Run(tt.stmt, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyStatement(tt.stmt))
		})
	}
}

func TestExec_InsertReportsRows(t *testing.T) {
	srv := testutil.NewFakeClickHouse(t)
	srv.On("INSERT INTO events", testutil.Reply{Header: map[string]string{
		"X-ClickHouse-Summary": `{"read_rows":"3","written_rows":"3"}`,
	}})

	res := clitest.Execute(t, NewExecCommand(), clitest.ConfigFor(t, srv), "INSERT INTO events SELECT number FROM numbers(3)")
	require.NoError(t, res.Err)
	assert.Contains(t, res.Out, "insert: 3 rows")
}

func TestExec_DeleteReportsResultRows(t *testing.T) {
	srv := testutil.NewFakeClickHouse(t)
	srv.On("ALTER TABLE events DELETE", testutil.Reply{Header: map[string]string{
		"X-ClickHouse-Summary": `{"result_rows":"5"}`,
	}})

	res := clitest.Execute(t, NewExecCommand(), clitest.ConfigFor(t, srv), "ALTER TABLE events DELETE WHERE id < 5")
	require.NoError(t, res.Err)
	assert.Contains(t, res.Out, "delete: 5 rows")
}

func TestExec_DDLWithSettings(t *testing.T) {
	srv := testutil.NewFakeClickHouse(t)
	srv.On("OPTIMIZE TABLE events", testutil.Reply{})

	res := clitest.Execute(t, NewExecCommand(), clitest.ConfigFor(t, srv),
		"OPTIMIZE TABLE events FINAL", "--setting", "alter_sync=2")
	require.NoError(t, res.Err)
	assert.Contains(t, res.Out, "OK")

	req := srv.LastRequest()
	assert.Equal(t, "OPTIMIZE TABLE events FINAL", req.Body)
	assert.Equal(t, "2", req.Params.Get("alter_sync"))
	assert.NotEmpty(t, req.Params.Get("query_id"))
}

func TestExec_InputFile(t *testing.T) {
	srv := testutil.NewFakeClickHouse(t)
	srv.On("CREATE TABLE events", testutil.Reply{})

	path := filepath.Join(t.TempDir(), "001_create_events.sql")
	require.NoError(t, os.WriteFile(path, []byte("CREATE TABLE events (id UInt64) ENGINE = MergeTree ORDER BY id;\n"), 0o600))

	res := clitest.Execute(t, NewExecCommand(), clitest.ConfigFor(t, srv), "--input", path)
	require.NoError(t, res.Err)
	assert.Equal(t, "CREATE TABLE events (id UInt64) ENGINE = MergeTree ORDER BY id", srv.LastRequest().Body)
}

func TestExec_NoStatement(t *testing.T) {
	srv := testutil.NewFakeClickHouse(t)
	res := clitest.Execute(t, NewExecCommand(), clitest.ConfigFor(t, srv))
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "no statement given")
	assert.Empty(t, srv.Requests())
}
