package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapch/internal/cli/config"
	"github.com/leapstack-labs/leapch/internal/cli/output"
	"github.com/leapstack-labs/leapch/pkg/adapter"
	"github.com/leapstack-labs/leapch/pkg/adapters/clickhouse"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext builds a CommandContext from the command's context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.FromContext(ctx)
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(ctx),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// Connect opens the configured target. Server warnings are shown through
// the renderer. The returned cleanup closes the connection.
func (c *CommandContext) Connect(ctx context.Context) (*clickhouse.Adapter, func(), error) {
	a, err := adapter.NewAdapter(c.Cfg.Target.AdapterConfig(), c.Logger)
	if err != nil {
		return nil, nil, err
	}
	ch, ok := a.(*clickhouse.Adapter)
	if !ok {
		return nil, nil, fmt.Errorf("target type %q is not a clickhouse target", c.Cfg.Target.Type)
	}
	ch.SetWarningSink(func(w clickhouse.Warning) {
		c.Renderer.Warning(w.Message)
	})
	if err := ch.Connect(ctx, c.Cfg.Target.AdapterConfig()); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s:%d: %w", c.Cfg.Target.Host, c.Cfg.Target.Port, err)
	}
	return ch, func() { _ = ch.Close() }, nil
}
