// Package commands implements the sqlcst subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/leapstack-labs/sqlcst/internal/cli/config"
	"github.com/leapstack-labs/sqlcst/internal/cli/output"
	"github.com/leapstack-labs/sqlcst/internal/source"
	"github.com/leapstack-labs/sqlcst/pkg/diagnostic"
	"github.com/leapstack-labs/sqlcst/pkg/dialects/postgres"
	"github.com/leapstack-labs/sqlcst/pkg/grammar"
	"github.com/leapstack-labs/sqlcst/pkg/parser"
	"github.com/spf13/cobra"
)

// ErrSyntax is returned by commands that found syntax errors after
// reporting them.
var ErrSyntax = errors.New("syntax errors found")

// stdinName is the file argument that reads standard input.
const stdinName = "-"

// loadTable returns the configured grammar: an artifact file, or the
// built-in postgres rule set.
func loadTable(cfg *config.Config) (*grammar.Table, error) {
	if cfg.Grammar == "" {
		return postgres.Table(), nil
	}
	return grammar.LoadFile(cfg.Grammar)
}

// newParser builds a parser from the command's configuration.
func newParser(cmd *cobra.Command) (*parser.Parser, error) {
	ctx := cmd.Context()
	cfg := config.GetConfig(ctx)
	t, err := loadTable(cfg)
	if err != nil {
		return nil, err
	}
	return parser.New(t, parser.Config{
		MaxVersions: cfg.MaxVersions,
		SkipWindow:  cfg.SkipWindow,
		Logger:      config.GetLogger(ctx),
	}), nil
}

// parseContext bounds one parse by the configured timeout.
func parseContext(ctx context.Context) (context.Context, context.CancelFunc) {
	cfg := config.GetConfig(ctx)
	if cfg.ParseTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.ParseTimeout)
}

// readSource reads a file argument in the configured encoding. "-" reads
// standard input.
func readSource(cmd *cobra.Command, name string) ([]byte, error) {
	enc := config.GetConfig(cmd.Context()).Encoding
	if name != stdinName {
		return source.ReadFile(name, enc)
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return source.Decode(enc, data)
}

// fileArgs returns args, or stdin when there are none.
func fileArgs(args []string) []string {
	if len(args) == 0 {
		return []string{stdinName}
	}
	return args
}

// writeFile replaces path with data, keeping its permissions.
func writeFile(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	return os.WriteFile(path, data, mode)
}

// configFrom returns the configuration stored in the command context.
func configFrom(cmd *cobra.Command) *config.Config {
	return config.GetConfig(cmd.Context())
}

func severityStyle(styles *output.Styles, sev diagnostic.Severity) lipgloss.Style {
	switch sev {
	case diagnostic.SeverityError:
		return styles.Error
	case diagnostic.SeverityWarning:
		return styles.Warning
	case diagnostic.SeverityInfo:
		return styles.Info
	default:
		return styles.Muted
	}
}
