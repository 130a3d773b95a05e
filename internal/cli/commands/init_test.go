package commands

import (
	"os"
	"path/filepath"
	"testing"

	clitest "github.com/leapstack-labs/leapch/internal/cli/testutil"
	"github.com/leapstack-labs/leapch/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name      string
		setupDir  func(t *testing.T, dir string) // setup before running
		args      []string
		wantErr   bool
		wantFiles []string
	}{
		{
			name:      "init empty directory",
			wantFiles: []string{"leapch.yaml", "db/migrate"},
		},
		{
			name: "init existing config without force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "leapch.yaml"), []byte("existing"), 0o600))
			},
			wantErr: true,
		},
		{
			name: "init existing config with force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "leapch.yaml"), []byte("existing"), 0o600))
			},
			args:      []string{"--force"},
			wantFiles: []string{"leapch.yaml", "db/migrate"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testutil.NewFakeClickHouse(t)
			dir := t.TempDir()
			if tt.setupDir != nil {
				tt.setupDir(t, dir)
			}

			res := clitest.Execute(t, NewInitCommand(), clitest.ConfigFor(t, srv), append([]string{dir}, tt.args...)...)
			if tt.wantErr {
				require.Error(t, res.Err)
				assert.Contains(t, res.Err.Error(), "--force")
				return
			}
			require.NoError(t, res.Err)
			for _, f := range tt.wantFiles {
				_, err := os.Stat(filepath.Join(dir, f))
				assert.NoError(t, err, "expected %s to exist", f)
			}
			assert.Empty(t, srv.Requests(), "init must not contact the server")
		})
	}
}

func TestInit_ConfigContent(t *testing.T) {
	srv := testutil.NewFakeClickHouse(t)
	cfg := clitest.ConfigFor(t, srv)
	cfg.Target.Database = "analytics"
	dir := t.TempDir()

	res := clitest.Execute(t, NewInitCommand(), cfg, dir)
	require.NoError(t, res.Err)
	assert.Contains(t, res.Out, "leapch project initialized!")

	raw, err := os.ReadFile(filepath.Join(dir, "leapch.yaml"))
	require.NoError(t, err)

	var got starterConfig
	require.NoError(t, yaml.Unmarshal(raw, &got))
	assert.Equal(t, "clickhouse", got.Target.Type)
	assert.Equal(t, cfg.Target.Host, got.Target.Host)
	assert.Equal(t, cfg.Target.Port, got.Target.Port)
	assert.Equal(t, "analytics", got.Target.Database)
	assert.Equal(t, "default", got.Target.User)
	assert.Equal(t, "${CLICKHOUSE_PASSWORD}", got.Target.Password)
	assert.Equal(t, "db/migrate", got.MigrationsDir)
	assert.Equal(t, "json", got.Target.Params["map_strategy"])
	assert.Contains(t, got.Environments, "prod")
}
