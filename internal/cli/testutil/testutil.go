// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapch/internal/cli/config"
	"github.com/leapstack-labs/leapch/internal/cli/output"
	chtest "github.com/leapstack-labs/leapch/internal/testutil"
	"github.com/spf13/cobra"
)

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// ConfigFor returns a CLI config targeting srv with markdown output and
// migrations under a temp dir.
func ConfigFor(t *testing.T, srv *chtest.FakeClickHouse) *config.Config {
	t.Helper()
	ac := srv.Config()
	return &config.Config{
		OutputFormat:  string(output.ModeMarkdown),
		MigrationsDir: t.TempDir(),
		HistoryFile:   "",
		Target: &config.TargetConfig{
			Type:     ac.Type,
			Host:     ac.Host,
			Port:     ac.Port,
			Database: ac.Database,
		},
	}
}

// Result captures one command execution.
type Result struct {
	Out    string
	ErrOut string
	Err    error
}

// Execute runs cmd with args, cfg and a test logger in its context.
// Stdin is empty.
func Execute(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) Result {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)

	ctx := config.WithConfig(context.Background(), cfg)
	ctx = context.WithValue(ctx, config.LoggerKey(), chtest.NewTestLogger(t))
	err := cmd.ExecuteContext(ctx)
	return Result{Out: out.String(), ErrOut: errOut.String(), Err: err}
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
