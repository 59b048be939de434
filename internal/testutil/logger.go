// Package testutil provides helpers shared by the sqlcst tests.
package testutil

import (
	"log/slog"
	"testing"

	"github.com/leapstack-labs/sqlcst/pkg/dialects/postgres"
	"github.com/leapstack-labs/sqlcst/pkg/parser"
)

// NewTestLogger returns a logger that writes to t.Log().
// Logs only appear on test failure or when running with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// NewParser returns a postgres parser that logs recovery and reuse
// decisions to t.
func NewParser(t testing.TB) *parser.Parser {
	t.Helper()
	return parser.New(postgres.Table(), parser.Config{Logger: NewTestLogger(t)})
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}
