package commands

import (
	"os"
	"path/filepath"
	"testing"

	clitest "github.com/leapstack-labs/leapch/internal/cli/testutil"
	"github.com/leapstack-labs/leapch/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableNameFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"seeds/countries.csv", "countries"},
		{"raw_events.csv", "raw_events"},
		{"/tmp/data.v2.csv", "data.v2"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, tableNameFromPath(tt.path))
		})
	}
}

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_CreatesAndInserts(t *testing.T) {
	srv := testutil.NewFakeClickHouse(t)
	srv.On("CREATE TABLE IF NOT EXISTS `countries`", testutil.Reply{})
	srv.On("INSERT INTO `countries` FORMAT CSVWithNames", testutil.Reply{Header: map[string]string{
		"X-ClickHouse-Summary": `{"written_rows":"2"}`,
	}})

	path := writeCSV(t, "countries.csv", "code,name\nde,Germany\nfr,France\n")
	res := clitest.Execute(t, NewLoadCommand(), clitest.ConfigFor(t, srv), path)
	require.NoError(t, res.Err)
	assert.Contains(t, res.Out, "countries")

	reqs := srv.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS `countries` (`code` String, `name` String) ENGINE = MergeTree ORDER BY tuple()", reqs[1].Body)
	assert.Equal(t, "INSERT INTO `countries` FORMAT CSVWithNames\ncode,name\nde,Germany\nfr,France\n", reqs[2].Body)
}

func TestLoad_TableFlag(t *testing.T) {
	srv := testutil.NewFakeClickHouse(t)
	srv.On("CREATE TABLE IF NOT EXISTS `raw`", testutil.Reply{})
	srv.On("INSERT INTO `raw`", testutil.Reply{})

	path := writeCSV(t, "data.csv", "id\n1\n")
	res := clitest.Execute(t, NewLoadCommand(), clitest.ConfigFor(t, srv), path, "--table", "raw")
	require.NoError(t, res.Err)
	assert.Contains(t, srv.LastRequest().Body, "INSERT INTO `raw` FORMAT CSVWithNames")
}

func TestLoad_TableFlagWithManyFiles(t *testing.T) {
	srv := testutil.NewFakeClickHouse(t)
	res := clitest.Execute(t, NewLoadCommand(), clitest.ConfigFor(t, srv), "a.csv", "b.csv", "--table", "raw")
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "single file")
	assert.Empty(t, srv.Requests())
}

func TestLoad_MissingFile(t *testing.T) {
	srv := testutil.NewFakeClickHouse(t)
	res := clitest.Execute(t, NewLoadCommand(), clitest.ConfigFor(t, srv), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "failed to load")
}
