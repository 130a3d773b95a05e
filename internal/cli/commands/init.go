package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapch/internal/cli/config"
	"github.com/leapstack-labs/leapch/internal/cli/output"
	intconfig "github.com/leapstack-labs/leapch/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// starterConfig is the leapch.yaml written by init.
type starterConfig struct {
	Output        string                    `yaml:"output"`
	MigrationsDir string                    `yaml:"migrations_dir"`
	Target        starterTarget             `yaml:"target"`
	Dump          starterDump               `yaml:"dump"`
	Environments  map[string]map[string]any `yaml:"environments"`
}

type starterTarget struct {
	Type     string         `yaml:"type"`
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	Database string         `yaml:"database"`
	User     string         `yaml:"user"`
	Password string         `yaml:"password"`
	Params   map[string]any `yaml:"params"`
}

type starterDump struct {
	Simple       bool     `yaml:"simple"`
	IgnoreTables []string `yaml:"ignore_tables"`
	Output       string   `yaml:"output"`
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a leapch.yaml config",
		Long: `Create a starter leapch.yaml and the migrations directory.

Connection flags (--host, --port, --database, --user) fill the target.
The password is read from the CLICKHOUSE_PASSWORD environment variable at
run time, so the file can be committed.`,
		Example: `  # Initialize in current directory
  leapch init

  # Point at a remote server
  leapch init --host ch.internal --database analytics --user etl

  # Overwrite an existing config
  leapch init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			cmdCtx := NewCommandContext(cmd)
			return runInit(cmdCtx.Renderer, dir, cmdCtx.Cfg.Target, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(r *output.Renderer, dir string, target *config.TargetConfig, force bool) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, intconfig.ConfigFileNames[0])
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
	}

	cfg := starterConfig{
		Output:        "auto",
		MigrationsDir: intconfig.DefaultMigrationsDir,
		Target: starterTarget{
			Type:     intconfig.DefaultTargetType,
			Host:     target.Host,
			Port:     target.Port,
			Database: orDefault(target.Database, "default"),
			User:     orDefault(target.User, "default"),
			Password: "${CLICKHOUSE_PASSWORD}",
			Params: map[string]any{
				"map_strategy": "json",
				"timeout":      "30s",
				"settings":     map[string]any{"mutations_sync": 1},
			},
		},
		Dump: starterDump{
			IgnoreTables: []string{},
			Output:       "db/schema.rb",
		},
		Environments: map[string]map[string]any{
			"prod": {"target": map[string]any{"host": "${CLICKHOUSE_PROD_HOST}", "params": map[string]any{"ssl": true}}},
		},
	}

	body, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	header := []byte("# leapch configuration. Values can reference ${ENV_VARS}.\n")
	if err := os.WriteFile(configPath, append(header, body...), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}
	r.StatusLine(configPath, "success", "")

	migrations := filepath.Join(dir, intconfig.DefaultMigrationsDir)
	if err := os.MkdirAll(migrations, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", migrations, err)
	}
	r.StatusLine(migrations+"/", "success", "")

	r.Println("")
	r.Success("leapch project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Export CLICKHOUSE_PASSWORD")
	r.Println("  2. Run 'leapch doctor' to check the connection")
	r.Println("  3. Run 'leapch dump' to write the current schema")
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
