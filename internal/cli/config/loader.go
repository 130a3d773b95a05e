package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	intconfig "github.com/leapstack-labs/leapch/internal/config"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// configKey is used to store the loaded config in context.
type configKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// envPrefix is the prefix of environment variables read into config.
// A double underscore separates nesting levels: LEAPCH_TARGET__HOST -> target.host.
const envPrefix = "LEAPCH_"

// targetFlags maps connection flags onto target keys.
var targetFlags = map[string]string{
	"host":     "target.host",
	"port":     "target.port",
	"database": "target.database",
	"user":     "target.user",
	"password": "target.password",
}

// skipFlags are consumed by the loader itself rather than mapped to keys.
var skipFlags = map[string]bool{"config": true, "target": true}

var envVarRe = regexp.MustCompile(`\$\{([^}]+)\}`)

var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config
)

// findProjectRootUpward searches upward from startDir for a leapch config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if intconfig.FindConfigFile(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	return LoadConfigWithTarget(cfgFile, "", flags)
}

// LoadConfigWithTarget loads configuration with an optional environment
// override selecting which environment's target to use.
func LoadConfigWithTarget(cfgFile, targetOverride string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")

	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "."
	}
	projectRoot := cwd

	// 1. Locate the config file
	switch {
	case cfgFile != "":
		if abs, err := filepath.Abs(cfgFile); err == nil {
			projectRoot = filepath.Dir(abs)
		}
	default:
		if root := findProjectRootUpward(cwd); root != "" {
			projectRoot = root
			cfgFile = intconfig.FindConfigFile(root)
		}
	}
	configFileUsed = cfgFile

	// 2. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"environment":    DefaultEnv,
		"verbose":        false,
		"output":         DefaultOutput,
		"migrations_dir": DefaultMigrationsDir,
		"history_file":   DefaultHistoryFile,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 3. Load the config file
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 4. Load environment variables
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Load explicitly set flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || skipFlags[f.Name] {
				return "", nil
			}
			if key, ok := targetFlags[f.Name]; ok {
				return key, posflag.FlagVal(flags, f)
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = projectRoot

	envName := cfg.Environment
	if targetOverride != "" {
		envName = targetOverride
	}
	if envName != "" {
		envCfg, ok := cfg.Environments[envName]
		if !ok {
			return nil, fmt.Errorf("unknown environment %q", envName)
		}
		cfg.Environment = envName
		cfg.Target = MergeTargetConfig(cfg.Target, envCfg.Target)
		if envCfg.Dump != nil {
			cfg.Dump = envCfg.Dump
		}
	}

	if cfg.Target == nil {
		cfg.Target = &TargetConfig{}
	}
	intconfig.ApplyTargetDefaults(cfg.Target)
	expandTargetEnvVars(cfg.Target)

	cfg.MigrationsDir = resolvePathRelativeTo(cfg.MigrationsDir, projectRoot)
	cfg.HistoryFile = resolvePathRelativeTo(cfg.HistoryFile, projectRoot)
	if cfg.Dump != nil {
		cfg.Dump.Output = resolvePathRelativeTo(cfg.Dump.Output, projectRoot)
	}

	if err := intconfig.ValidateTarget(cfg.Target); err != nil {
		return nil, fmt.Errorf("invalid target configuration: %w", err)
	}

	currentConfig = &cfg
	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the most recently loaded configuration.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// WithConfig returns a context carrying cfg.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext returns the config stored in ctx, then the last loaded config,
// then a default config pointing at a local server.
func FromContext(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok && c != nil {
		return c
	}
	if currentConfig != nil {
		return currentConfig
	}
	target := &TargetConfig{}
	intconfig.ApplyTargetDefaults(target)
	return &Config{
		OutputFormat:  DefaultOutput,
		MigrationsDir: DefaultMigrationsDir,
		Target:        target,
	}
}

// expandEnvVars expands ${VAR} patterns with environment variable values.
// Unset variables are left as-is.
func expandEnvVars(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		if val, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return val
		}
		return match
	})
}

// expandTargetEnvVars expands environment variables in target fields.
func expandTargetEnvVars(t *TargetConfig) {
	if t == nil {
		return
	}
	t.Host = expandEnvVars(t.Host)
	t.User = expandEnvVars(t.User)
	t.Password = expandEnvVars(t.Password)
	t.Database = expandEnvVars(t.Database)
}

// MergeTargetConfig merges two target configs, with override taking precedence.
func MergeTargetConfig(base, override *TargetConfig) *TargetConfig {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := &TargetConfig{
		Type:     base.Type,
		Host:     base.Host,
		Port:     base.Port,
		Database: base.Database,
		User:     base.User,
		Password: base.Password,
		Options:  make(map[string]string),
		Params:   make(map[string]any),
	}
	for k, v := range base.Options {
		merged.Options[k] = v
	}
	for k, v := range base.Params {
		merged.Params[k] = v
	}

	if override.Type != "" {
		merged.Type = override.Type
	}
	if override.Host != "" {
		merged.Host = override.Host
	}
	if override.Port != 0 {
		merged.Port = override.Port
	}
	if override.Database != "" {
		merged.Database = override.Database
	}
	if override.User != "" {
		merged.User = override.User
	}
	if override.Password != "" {
		merged.Password = override.Password
	}
	for k, v := range override.Options {
		merged.Options[k] = v
	}
	for k, v := range override.Params {
		merged.Params[k] = v
	}
	return merged
}
