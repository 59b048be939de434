package commands

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/sqlcst/internal/cli/output"
	"github.com/leapstack-labs/sqlcst/pkg/grammar"
	"github.com/leapstack-labs/sqlcst/pkg/lexer"
	"github.com/leapstack-labs/sqlcst/pkg/token"
	"github.com/spf13/cobra"
)

// tokenRow is the JSON form of a token.
type tokenRow struct {
	Kind  string     `json:"kind"`
	Span  token.Span `json:"span"`
	Start string     `json:"start"`
	Text  string     `json:"text"`
}

// NewTokensCommand creates the tokens command.
func NewTokensCommand() *cobra.Command {
	var skipExtras bool

	cmd := &cobra.Command{
		Use:   "tokens [file]",
		Short: "List the tokens of a SQL file",
		Long: `Scan a SQL file and list its tokens with their kinds and positions.

Bytes no token matches are listed as ERROR tokens.`,
		Example: `  sqlcst tokens query.sql
  sqlcst tokens --skip-extras -o json query.sql`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)
			t, err := loadTable(cfg)
			if err != nil {
				return err
			}
			src, err := readSource(cmd, fileArgs(args)[0])
			if err != nil {
				return err
			}
			rows := scanRows(t, src, skipExtras)
			r := output.FromContext(cmd.Context())
			if r.JSON() {
				return r.EncodeJSON(rows)
			}
			renderTokens(r, rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipExtras, "skip-extras", false, "Omit whitespace and comments")
	return cmd
}

func scanRows(t *grammar.Table, src []byte, skipExtras bool) []tokenRow {
	toks := lexer.New(t).Tokenize(src)
	rows := make([]tokenRow, 0, len(toks))
	for _, tok := range toks {
		if skipExtras && t.IsExtra(tok.Kind) {
			continue
		}
		rows = append(rows, tokenRow{
			Kind:  t.Name(tok.Kind),
			Span:  tok.Span(),
			Start: tok.Start.Point.String(),
			Text:  tok.Text(src),
		})
	}
	return rows
}

func renderTokens(r *output.Renderer, rows []tokenRow) {
	tw := table.NewWriter()
	tw.SetOutputMirror(r.Writer())
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"#", "Kind", "Bytes", "Start", "Text"})
	for i, row := range rows {
		kind := row.Kind
		if kind == "ERROR" {
			kind = r.Styles().Error.Render(kind)
		}
		tw.AppendRow(table.Row{i, kind, row.Span.String(), row.Start, strconv.Quote(row.Text)})
	}
	tw.Render()
}
