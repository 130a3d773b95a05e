package adapter

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownAdapterError_Error(t *testing.T) {
	err := &UnknownAdapterError{Type: "fake_db", Available: []string{"clickhouse", "other"}}

	assert.Equal(t,
		`unknown adapter type "fake_db" (available: clickhouse, other); check target.type in leapch.yaml`,
		err.Error())
}

func TestRegister(t *testing.T) {
	Register("Test_Adapter_Internal", func(_ *slog.Logger) Adapter { return nil })

	tests := []string{"test_adapter_internal", "TEST_ADAPTER_INTERNAL"}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			assert.True(t, IsRegistered(name))
			factory, ok := Get(name)
			require.True(t, ok)
			assert.NotNil(t, factory)
		})
	}
	assert.Contains(t, ListAdapters(), "test_adapter_internal")
}

func TestRegister_Panics(t *testing.T) {
	Register("test_adapter_dup", func(_ *slog.Logger) Adapter { return nil })

	tests := []struct {
		name    string
		adapter string
		factory Factory
	}{
		{"duplicate", "test_adapter_dup", func(_ *slog.Logger) Adapter { return nil }},
		{"empty name", " ", func(_ *slog.Logger) Adapter { return nil }},
		{"nil factory", "test_adapter_nil", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() { Register(tt.adapter, tt.factory) })
		})
	}
}

func TestNewAdapter_EmptyType(t *testing.T) {
	_, err := NewAdapter(Config{}, nil)
	require.Error(t, err)
	assert.Equal(t, "adapter type not specified", err.Error())
}
