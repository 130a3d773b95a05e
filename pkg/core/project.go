package core

// TargetConfig holds database target configuration.
type TargetConfig struct {
	Type string `koanf:"type"` // clickhouse

	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`

	// Params holds adapter-specific configuration (settings, map strategy, timeout)
	Params map[string]any `koanf:"params"`
}

// AdapterConfig converts the target into the adapter connection config.
func (t *TargetConfig) AdapterConfig() AdapterConfig {
	return AdapterConfig{
		Type:     t.Type,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Options:  t.Options,
		Params:   t.Params,
	}
}

// DumpConfig holds schema dump configuration.
type DumpConfig struct {
	// Simple strips engine and storage detail from the dump.
	Simple bool `koanf:"simple"`

	// IgnoreTables lists table names or glob patterns to leave out.
	IgnoreTables []string `koanf:"ignore_tables"`

	// Output is the file the dump is written to; empty means stdout.
	Output string `koanf:"output"`
}
