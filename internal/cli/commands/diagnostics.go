package commands

import (
	"fmt"

	"github.com/leapstack-labs/sqlcst/internal/cli/output"
	"github.com/leapstack-labs/sqlcst/pkg/diagnostic"
	"github.com/spf13/cobra"
)

// fileDiagnostics is the JSON form of one file's diagnostics.
type fileDiagnostics struct {
	File        string                  `json:"file"`
	Diagnostics []diagnostic.Diagnostic `json:"diagnostics"`
}

// NewDiagnosticsCommand creates the diagnostics command.
func NewDiagnosticsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "diagnostics [files...]",
		Aliases: []string{"check"},
		Short:   "Report syntax errors in SQL files",
		Long: `Parse SQL files and report every syntax error with its position.

The command exits with a non-zero status when any file has errors.`,
		Example: `  sqlcst diagnostics models/*.sql
  sqlcst diagnostics -o json query.sql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := parseFiles(cmd, fileArgs(args))
			if err != nil {
				return err
			}

			results := make([]fileDiagnostics, 0, len(files))
			total := 0
			for _, f := range files {
				diags := diagnostic.Collect(f.tree, f.src)
				total += len(diags)
				results = append(results, fileDiagnostics{File: f.name, Diagnostics: diags})
			}

			r := output.FromContext(cmd.Context())
			if r.JSON() {
				if err := r.EncodeJSON(results); err != nil {
					return err
				}
			} else {
				renderDiagnostics(r, results)
			}
			if total > 0 {
				return ErrSyntax
			}
			return nil
		},
	}
	return cmd
}

func renderDiagnostics(r *output.Renderer, results []fileDiagnostics) {
	styles := r.Styles()
	total := 0
	for _, res := range results {
		for _, d := range res.Diagnostics {
			total++
			pos := fmt.Sprintf("%s:%d:%d:", res.File, d.Span.Start.Point.Row+1, d.Span.Start.Point.Column+1)
			sev := severityStyle(styles, d.Severity).Render(d.Severity.String())
			r.Println(fmt.Sprintf("%s %s: %s %s", pos, sev, d.Message, styles.Muted.Render("["+d.Code+"]")))
		}
	}
	if total == 0 {
		r.Println(styles.Success.Render(fmt.Sprintf("%d file(s), no syntax errors", len(results))))
		return
	}
	r.Println(styles.Error.Render(fmt.Sprintf("%d syntax error(s) in %d file(s)", total, len(results))))
}
