package commands

import (
	"fmt"
	"io"

	"github.com/leapstack-labs/sqlcst/internal/cli/config"
	"github.com/leapstack-labs/sqlcst/internal/cli/output"
	"github.com/leapstack-labs/sqlcst/pkg/format"
	"github.com/spf13/cobra"
)

// NewFormatCommand creates the format command.
func NewFormatCommand() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "format [files...]",
		Short: "Pretty-print SQL files",
		Long: `Reformat SQL files: keywords upper-cased, one clause per line and
comments preserved.

Files with syntax errors are left unchanged and reported.`,
		Example: `  sqlcst format query.sql
  sqlcst format --write models/*.sql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := parseFiles(cmd, fileArgs(args))
			if err != nil {
				return err
			}
			r := output.FromContext(cmd.Context())
			logger := config.GetLogger(cmd.Context())

			failed := 0
			for _, f := range files {
				if f.tree.HasError() {
					failed++
					_, _ = fmt.Fprintf(r.ErrWriter(), "%s: not formatted, file has syntax errors\n", f.name)
					if !write {
						_, _ = io.WriteString(r.Writer(), string(f.src))
					}
					continue
				}
				formatted := format.Format(f.tree, f.src)
				if !write || f.name == stdinName {
					_, _ = io.WriteString(r.Writer(), formatted)
					continue
				}
				if formatted == string(f.src) {
					continue
				}
				if err := writeFile(f.name, []byte(formatted)); err != nil {
					return err
				}
				logger.Info("formatted file", "file", f.name)
			}
			if failed > 0 {
				return ErrSyntax
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write the result back to each file")
	return cmd
}
