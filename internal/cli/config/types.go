// Package config loads leapch CLI configuration.
//
// Sources are layered with koanf: defaults, then leapch.yaml, then LEAPCH_
// environment variables, then explicitly set flags. A named environment can
// override the target, e.g. `leapch --target prod dump`.
package config

import (
	intconfig "github.com/leapstack-labs/leapch/internal/config"
	"github.com/leapstack-labs/leapch/pkg/core"
)

// TargetConfig is an alias for the shared target configuration.
type TargetConfig = core.TargetConfig

// DumpConfig is an alias for the shared dump configuration.
type DumpConfig = core.DumpConfig

// Config holds all CLI configuration options.
type Config struct {
	Environment   string               `koanf:"environment"`
	Verbose       bool                 `koanf:"verbose"`
	OutputFormat  string               `koanf:"output"`
	MigrationsDir string               `koanf:"migrations_dir"`
	HistoryFile   string               `koanf:"history_file"`
	Target        *TargetConfig        `koanf:"target"`
	Dump          *DumpConfig          `koanf:"dump"`
	Environments  map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds environment-specific overrides.
type EnvConfig struct {
	Target *TargetConfig `koanf:"target"`
	Dump   *DumpConfig   `koanf:"dump"`
}

// Default configuration values.
const (
	DefaultEnv           = ""
	DefaultOutput        = "auto" // TTY=text, non-TTY=markdown
	DefaultMigrationsDir = intconfig.DefaultMigrationsDir
	DefaultHistoryFile   = ".leapch_history"
)

// DumpOptions returns the dump config with defaults for unset values.
func (c *Config) DumpOptions() DumpConfig {
	if c.Dump == nil {
		return DumpConfig{}
	}
	return *c.Dump
}
