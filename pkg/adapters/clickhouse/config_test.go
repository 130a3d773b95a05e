package clickhouse

import (
	"testing"
	"time"

	"github.com/leapstack-labs/leapch/pkg/adapter"
	"github.com/leapstack-labs/leapch/pkg/chtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    *Params
		wantErr bool
	}{
		{
			name:  "nil params returns empty struct",
			input: nil,
			want:  &Params{},
		},
		{
			name: "settings with mixed scalar values",
			input: map[string]any{
				"settings": map[string]any{
					"max_execution_time": 60,
					"join_use_nulls":     "1",
				},
			},
			want: &Params{
				Settings: map[string]string{"max_execution_time": "60", "join_use_nulls": "1"},
			},
		},
		{
			name: "duration from string",
			input: map[string]any{
				"timeout": "5s",
				"ssl":     true,
			},
			want: &Params{Timeout: 5 * time.Second, SSL: true},
		},
		{
			name:  "literal map strategy",
			input: map[string]any{"map_strategy": "literal", "debug": true, "read_only": true},
			want:  &Params{MapStrategy: "literal", Debug: true, ReadOnly: true},
		},
		{
			name:    "unknown map strategy",
			input:   map[string]any{"map_strategy": "yaml"},
			wantErr: true,
		},
		{
			name:    "unknown key",
			input:   map[string]any{"extensions": []any{"httpfs"}},
			wantErr: true,
		},
		{
			name:    "bad duration",
			input:   map[string]any{"timeout": "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseParams(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParams_Derived(t *testing.T) {
	p := &Params{}
	assert.Equal(t, chtype.MapStrategyJSON, p.Strategy())
	assert.Equal(t, "http", p.Scheme())

	p = &Params{MapStrategy: "LITERAL", SSL: true}
	assert.Equal(t, chtype.MapStrategyLiteral, p.Strategy())
	assert.Equal(t, "https", p.Scheme())
}

func TestDefaultSettings(t *testing.T) {
	cfg := adapter.Config{
		Database: "analytics",
		Options:  map[string]string{"session_timezone": "UTC", "readonly": "0"},
	}
	p := &Params{
		ReadOnly: true,
		Settings: map[string]string{"session_timezone": "Europe/Berlin"},
	}

	assert.Equal(t, map[string]string{
		"database":         "analytics",
		"readonly":         "1",
		"session_timezone": "Europe/Berlin",
	}, defaultSettings(cfg, p))
}
