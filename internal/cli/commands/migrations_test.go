package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	clitest "github.com/leapstack-labs/leapch/internal/cli/testutil"
	"github.com/leapstack-labs/leapch/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const createMigrationsSQL = "CREATE TABLE IF NOT EXISTS `schema_migrations` (version String, active Int8 DEFAULT 1, ver DateTime DEFAULT now()) ENGINE = ReplacingMergeTree(ver) ORDER BY (version)"

func migrationServer(t *testing.T, versions ...string) *testutil.FakeClickHouse {
	t.Helper()
	srv := testutil.NewFakeClickHouse(t)
	srv.On("CREATE TABLE IF NOT EXISTS `schema_migrations`", testutil.Reply{})
	srv.On("INSERT INTO `schema_migrations`", testutil.Reply{})
	rows := make([][]any, len(versions))
	for i, v := range versions {
		rows[i] = []any{v}
	}
	srv.On("FROM `schema_migrations` FINAL", testutil.Reply{Body: testutil.Batch([]string{"version"}, []string{"String"}, rows...)})
	return srv
}

func bodies(srv *testutil.FakeClickHouse) []string {
	var out []string
	for _, req := range srv.Requests() {
		out = append(out, req.Body)
	}
	return out
}

func TestMigrationVersions(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"20240301_add_index.sql",
		"20240101_create_events.sql",
		"README.md",
		"v2_bad.sql",
		"_leading.sql",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "20240501_dir"), 0o750))

	versions, err := migrationVersions(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"20240101", "20240301"}, versions)

	versions, err = migrationVersions(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Nil(t, versions)
}

func TestMigrations_List(t *testing.T) {
	srv := migrationServer(t, "1", "2")

	res := clitest.Execute(t, NewMigrationsCommand(), clitest.ConfigFor(t, srv), "list")
	require.NoError(t, res.Err)
	assert.Contains(t, res.Out, "| 1 |")
	assert.Contains(t, res.Out, "| 2 |")
	assert.Contains(t, res.Out, "(2 rows)")
}

func TestMigrations_AddRemove(t *testing.T) {
	tests := []struct {
		sub    string
		active int
	}{
		{"add", 1},
		{"remove", 0},
	}
	for _, tt := range tests {
		t.Run(tt.sub, func(t *testing.T) {
			srv := migrationServer(t)
			res := clitest.Execute(t, NewMigrationsCommand(), clitest.ConfigFor(t, srv), tt.sub, "20240101", "20240201")
			require.NoError(t, res.Err)

			got := bodies(srv)
			require.Len(t, got, 4)
			assert.Equal(t, createMigrationsSQL, got[1])
			assert.Equal(t, "INSERT INTO `schema_migrations` (version, active) VALUES ('20240101', "+fmt.Sprint(tt.active)+")", got[2])
			assert.Equal(t, "INSERT INTO `schema_migrations` (version, active) VALUES ('20240201', "+fmt.Sprint(tt.active)+")", got[3])
			assert.Contains(t, res.Out, "20240201")
		})
	}
}

func TestMigrations_Assume(t *testing.T) {
	srv := migrationServer(t, "20240101")
	cfg := clitest.ConfigFor(t, srv)
	for _, name := range []string{"20240101_a.sql", "20240201_b.sql", "20240301_c.sql", "20240401_d.sql"} {
		require.NoError(t, os.WriteFile(filepath.Join(cfg.MigrationsDir, name), nil, 0o600))
	}

	res := clitest.Execute(t, NewMigrationsCommand(), cfg, "assume", "20240301")
	require.NoError(t, res.Err)

	got := bodies(srv)
	require.Len(t, got, 5)
	assert.Equal(t, createMigrationsSQL, got[1])
	assert.Contains(t, got[2], "FROM `schema_migrations` FINAL")
	assert.Equal(t, "INSERT INTO `schema_migrations` (version, active) VALUES ('20240301', 1)", got[3])
	assert.Equal(t, "INSERT INTO `schema_migrations` (version) SETTINGS max_partitions_per_insert_block = 100 VALUES ('20240201')", got[4])
}

func TestMigrations_AssumeDirFlag(t *testing.T) {
	srv := migrationServer(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1_init.sql"), nil, 0o600))

	res := clitest.Execute(t, NewMigrationsCommand(), clitest.ConfigFor(t, srv), "assume", "2", "--dir", dir)
	require.NoError(t, res.Err)
	assert.Contains(t, srv.LastRequest().Body, "VALUES ('1')")
}

func TestMigrations_AddRequiresVersion(t *testing.T) {
	srv := migrationServer(t)
	res := clitest.Execute(t, NewMigrationsCommand(), clitest.ConfigFor(t, srv), "add")
	require.Error(t, res.Err)
	assert.Empty(t, srv.Requests())
}
