// Package config holds configuration defaults and validation shared by the
// CLI and any tool that needs to resolve a ClickHouse target.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapch/pkg/adapter"
	"github.com/leapstack-labs/leapch/pkg/core"
)

// Default configuration values.
const (
	DefaultTargetType    = "clickhouse"
	DefaultHost          = "localhost"
	DefaultHTTPPort      = 8123
	DefaultHTTPSPort     = 8443
	DefaultMigrationsDir = "db/migrate"
)

// ConfigFileNames lists the project config file names in lookup order.
var ConfigFileNames = []string{"leapch.yaml", "leapch.yml"}

// FindConfigFile returns the config file in dir, or "" when there is none.
func FindConfigFile(dir string) string {
	for _, name := range ConfigFileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// ApplyTargetDefaults fills unset target fields.
func ApplyTargetDefaults(t *core.TargetConfig) {
	if t == nil {
		return
	}
	if t.Type == "" {
		t.Type = DefaultTargetType
	}
	t.Type = strings.ToLower(t.Type)
	if t.Host == "" {
		t.Host = DefaultHost
	}
	if t.Port == 0 && t.Type == DefaultTargetType {
		t.Port = DefaultHTTPPort
		if ssl, _ := t.Params["ssl"].(bool); ssl {
			t.Port = DefaultHTTPSPort
		}
	}
}

// ValidateTarget checks that the target names a registered adapter.
func ValidateTarget(t *core.TargetConfig) error {
	if t == nil {
		return fmt.Errorf("target is required")
	}
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{Type: t.Type, Available: adapter.ListAdapters()}
	}
	if t.Port < 0 || t.Port > 65535 {
		return fmt.Errorf("target port %d out of range", t.Port)
	}
	return nil
}
