package adapter

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapch/pkg/core"
)

// Factory builds an unconnected adapter. A nil logger means discard.
type Factory func(logger *slog.Logger) Adapter

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

// Register makes an adapter available under name, matched case-insensitively.
// It is meant to be called from init() and panics on an empty name, a nil
// factory or a name registered twice.
func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		panic("adapter: Register needs a name and a factory")
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := factories[key]; dup {
		panic("adapter: Register called twice for " + key)
	}
	factories[key] = factory
}

// Get returns the factory registered under name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := factories[strings.ToLower(name)]
	return f, ok
}

// NewAdapter builds the adapter named by cfg.Type. It does not connect.
func NewAdapter(cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}
	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	return factory(logger), nil
}

// ListAdapters returns the registered names in sorted order.
func ListAdapters() []string {
	registryMu.RLock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	registryMu.RUnlock()
	sort.Strings(names)
	return names
}

// IsRegistered reports whether name has a factory.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// UnknownAdapterError is returned when target.type names no registered
// adapter.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q (available: %s); check target.type in leapch.yaml",
		e.Type, strings.Join(e.Available, ", "))
}
