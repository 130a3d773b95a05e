package clickhouse

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/leapch/pkg/adapter"
	"github.com/leapstack-labs/leapch/pkg/chtype"
)

// DefaultPort is the ClickHouse HTTP interface port.
const DefaultPort = 8123

// Params holds ClickHouse-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// Settings are sent as query parameters with every request
	// (e.g., max_execution_time, join_use_nulls).
	Settings map[string]string `mapstructure:"settings"`

	// MapStrategy selects how Map columns travel on the wire: "json" or "literal".
	MapStrategy string `mapstructure:"map_strategy"`

	// Timeout bounds each HTTP round trip.
	Timeout time.Duration `mapstructure:"timeout"`

	// SSL switches the endpoint to https.
	SSL bool `mapstructure:"ssl"`

	// Debug logs introspection queries too.
	Debug bool `mapstructure:"debug"`

	// ReadOnly sends readonly=1 with every request.
	ReadOnly bool `mapstructure:"read_only"`
}

// ParseParams decodes raw adapter params. Durations may be given as
// strings ("5s") and settings values may be any scalar.
func ParseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if len(raw) == 0 {
		return p, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           p,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create params decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid clickhouse params: %w", err)
	}
	if _, err := chtype.ParseMapStrategy(p.MapStrategy); err != nil {
		return nil, err
	}
	return p, nil
}

// Strategy returns the parsed map strategy. ParseParams has already
// validated it.
func (p *Params) Strategy() chtype.MapStrategy {
	s, _ := chtype.ParseMapStrategy(p.MapStrategy)
	return s
}

// Scheme returns the endpoint URL scheme.
func (p *Params) Scheme() string {
	if p.SSL {
		return "https"
	}
	return "http"
}

// defaultSettings merges connection options, the database and the
// configured settings into the per-connection query parameters.
func defaultSettings(cfg adapter.Config, p *Params) map[string]string {
	out := make(map[string]string, len(cfg.Options)+len(p.Settings)+2)
	for k, v := range cfg.Options {
		out[k] = v
	}
	if cfg.Database != "" {
		out["database"] = cfg.Database
	}
	if p.ReadOnly {
		out["readonly"] = "1"
	}
	for k, v := range p.Settings {
		out[k] = v
	}
	return out
}
