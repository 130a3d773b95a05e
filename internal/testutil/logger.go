// Package testutil provides shared test helpers: a slog logger bound to the
// test and a fake ClickHouse HTTP server.
package testutil

import (
	"log/slog"
	"strings"
	"testing"
)

// NewTestLogger returns a Debug-level logger that writes through t.Log, so
// statements show up only for failing tests or with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(tbWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type tbWriter struct {
	tb testing.TB
}

func (w tbWriter) Write(p []byte) (int, error) {
	w.tb.Helper()
	w.tb.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
