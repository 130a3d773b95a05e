package clickhouse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapch/pkg/adapter"
	"github.com/leapstack-labs/leapch/pkg/chtype"
	"github.com/leapstack-labs/leapch/pkg/wire"
)

// UserAgent is sent with every request. The CLI overrides it with the
// build version.
var UserAgent = "leapch/dev"

var _ adapter.Adapter = (*Adapter)(nil)

// Adapter implements the adapter.Adapter interface for ClickHouse over
// HTTP. An Adapter is not safe for concurrent use; open one per goroutine.
type Adapter struct {
	adapter.BaseHTTPAdapter

	params   *Params
	reg      *chtype.Registry
	decoder  *wire.Decoder
	defaults map[string]string
	warnings *warningLog
}

// New creates a new ClickHouse adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	reg := chtype.NewRegistry(chtype.MapStrategyJSON)
	return &Adapter{
		BaseHTTPAdapter: adapter.BaseHTTPAdapter{Logger: logger},
		params:          &Params{},
		reg:             reg,
		decoder:         wire.NewDecoder(reg),
		warnings:        newWarningLog(logger),
	}
}

// Connect configures the HTTP endpoint and verifies it with SELECT 1.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := ParseParams(cfg.Params)
	if err != nil {
		return err
	}

	a.Logger.Debug("connecting to clickhouse",
		slog.String("host", cfg.Host),
		slog.Int("port", cfg.Port),
		slog.String("database", cfg.Database),
		slog.String("map_strategy", string(params.Strategy())))

	if err := a.Open(cfg, params.Scheme(), DefaultPort, params.Timeout); err != nil {
		return err
	}

	a.params = params
	a.reg = chtype.NewRegistry(params.Strategy())
	a.decoder = wire.NewDecoder(a.reg)
	a.defaults = defaultSettings(a.Cfg, params)

	if err := a.Ping(ctx); err != nil {
		_ = a.Close()
		return fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return nil
}

// Ping runs SELECT 1.
func (a *Adapter) Ping(ctx context.Context) error {
	_, err := a.Execute(ctx, "SELECT 1", KindMetadata)
	return err
}

// Registry returns the type registry used to decode this connection's
// results.
func (a *Adapter) Registry() *chtype.Registry {
	return a.reg
}

// Database returns the configured database, or "" to use the server
// default.
func (a *Adapter) Database() string {
	return a.Cfg.Database
}

// Exec executes a statement that doesn't return rows.
func (a *Adapter) Exec(ctx context.Context, sql string) error {
	_, err := a.Execute(ctx, sql, KindDDL)
	return err
}

// Query executes a statement and returns its rows.
func (a *Adapter) Query(ctx context.Context, sql string) (*adapter.Result, error) {
	res, err := a.Execute(ctx, sql, KindRead)
	if err != nil {
		return nil, err
	}
	if res.Table == nil {
		return nil, fmt.Errorf("statement did not return rows: %q", truncate(res.Raw, 200))
	}
	return res.Table, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
