package commands

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/sqlcst/internal/cli/output"
	"github.com/leapstack-labs/sqlcst/pkg/grammar"
	"github.com/spf13/cobra"
)

// grammarInfo summarizes a table.
type grammarInfo struct {
	Language    string         `json:"language"`
	Version     int            `json:"format_version"`
	Symbols     int            `json:"symbols"`
	Terminals   int            `json:"terminals"`
	Productions int            `json:"productions"`
	States      int            `json:"states"`
	Conflicts   []conflictInfo `json:"conflicts"`
}

type conflictInfo struct {
	State   int      `json:"state"`
	Symbol  string   `json:"symbol"`
	Actions []string `json:"actions"`
}

func describeTable(t *grammar.Table) grammarInfo {
	info := grammarInfo{
		Language:    t.Language(),
		Version:     t.Version(),
		Symbols:     t.NumSymbols(),
		Terminals:   t.NumTerminals(),
		Productions: t.NumProductions(),
		States:      t.NumStates(),
		Conflicts:   []conflictInfo{},
	}
	for _, c := range t.Conflicts() {
		ci := conflictInfo{State: int(c.State), Symbol: t.Name(c.Symbol)}
		for _, a := range c.Actions {
			ci.Actions = append(ci.Actions, a.String())
		}
		info.Conflicts = append(info.Conflicts, ci)
	}
	return info
}

// NewGrammarCommand creates the grammar command and its subcommands.
func NewGrammarCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grammar",
		Short: "Inspect and export grammar tables",
		Long: `Work with compiled grammar tables.

The table in use is the built-in postgres rule set unless the grammar
setting names an artifact file.`,
	}
	cmd.AddCommand(newGrammarExportCommand())
	cmd.AddCommand(newGrammarCheckCommand())
	cmd.AddCommand(newGrammarInfoCommand())
	return cmd
}

func newGrammarExportCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the grammar table as a YAML artifact",
		Example: `  sqlcst grammar export > postgres.yaml
  sqlcst grammar export --out postgres.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := loadTable(configFrom(cmd))
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := grammar.Encode(&buf, t); err != nil {
				return err
			}
			if out == "" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			return os.WriteFile(out, buf.Bytes(), 0o644) //nolint:gosec // artifacts are not secret
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Write to a file instead of standard output")
	return cmd
}

func newGrammarCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <artifact>",
		Short: "Validate a grammar artifact",
		Long: `Load a grammar artifact, validate every reference in it and check that
encoding it again reproduces the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			t, err := grammar.DecodeBytes(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			var buf bytes.Buffer
			if err := grammar.Encode(&buf, t); err != nil {
				return err
			}

			r := output.FromContext(cmd.Context())
			styles := r.Styles()
			summary := fmt.Sprintf("%s: %s grammar, %d states, %d symbols",
				args[0], t.Language(), t.NumStates(), t.NumSymbols())
			if !bytes.Equal(buf.Bytes(), data) {
				r.Println(styles.Warning.Render(summary + " (not in canonical form)"))
				return nil
			}
			r.Println(styles.Success.Render(summary))
			return nil
		},
	}
}

func newGrammarInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Summarize the grammar table and its conflicts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := loadTable(configFrom(cmd))
			if err != nil {
				return err
			}
			info := describeTable(t)
			r := output.FromContext(cmd.Context())
			if r.JSON() {
				return r.EncodeJSON(info)
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(r.Writer())
			tw.SetStyle(table.StyleLight)
			tw.AppendRows([]table.Row{
				{"Language", info.Language},
				{"Format version", info.Version},
				{"Symbols", info.Symbols},
				{"Terminals", info.Terminals},
				{"Productions", info.Productions},
				{"States", info.States},
				{"Conflicts", len(info.Conflicts)},
			})
			tw.Render()

			if len(info.Conflicts) == 0 {
				return nil
			}
			r.Println("")
			ct := table.NewWriter()
			ct.SetOutputMirror(r.Writer())
			ct.SetStyle(table.StyleLight)
			ct.AppendHeader(table.Row{"State", "Lookahead", "Actions"})
			for _, c := range info.Conflicts {
				ct.AppendRow(table.Row{c.State, c.Symbol, strings.Join(c.Actions, " ")})
			}
			ct.Render()
			return nil
		},
	}
}
