package commands

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/leapstack-labs/sqlcst/internal/cli/config"
	"github.com/leapstack-labs/sqlcst/internal/cli/output"
	"github.com/leapstack-labs/sqlcst/pkg/cst"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// ParseOptions holds options for the parse command.
type ParseOptions struct {
	Text      bool
	Anonymous bool
	Points    bool
	Verify    bool
}

// parsedFile is the result of parsing one file.
type parsedFile struct {
	name string
	src  []byte
	tree *cst.Tree
}

// parseResult is the JSON form of a parsed file.
type parseResult struct {
	File     string          `json:"file"`
	HasError bool            `json:"has_error"`
	Stats    cst.Stats       `json:"stats"`
	Tree     json.RawMessage `json:"tree"`
}

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	opts := &ParseOptions{}

	cmd := &cobra.Command{
		Use:   "parse [files...]",
		Short: "Print the syntax tree of SQL files",
		Long: `Parse SQL files and print their concrete syntax trees.

Files are parsed in parallel. With no files, or "-", standard input is read.
Syntax errors appear in the tree as ERROR and MISSING nodes.`,
		Example: `  # Print the tree of a file
  sqlcst parse query.sql

  # Include leaf text and anonymous tokens
  sqlcst parse --text --anonymous query.sql

  # JSON output
  echo "SELECT 1" | sqlcst parse -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, fileArgs(args), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Text, "text", false, "Include the source text of leaves")
	cmd.Flags().BoolVar(&opts.Anonymous, "anonymous", false, "Include anonymous tokens such as punctuation and whitespace")
	cmd.Flags().BoolVar(&opts.Points, "points", false, "Print row:column ranges instead of byte offsets")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "Check tree invariants after parsing")

	return cmd
}

func runParse(cmd *cobra.Command, names []string, opts *ParseOptions) error {
	files, err := parseFiles(cmd, names)
	if err != nil {
		return err
	}
	if opts.Verify {
		for _, f := range files {
			if err := cst.Verify(f.tree, f.src); err != nil {
				return fmt.Errorf("%s: %w", f.name, err)
			}
		}
	}

	r := output.FromContext(cmd.Context())
	if r.JSON() {
		results := make([]parseResult, 0, len(files))
		for _, f := range files {
			data, err := f.tree.JSON(f.src)
			if err != nil {
				return fmt.Errorf("%s: %w", f.name, err)
			}
			results = append(results, parseResult{
				File:     f.name,
				HasError: f.tree.HasError(),
				Stats:    f.tree.Stats(),
				Tree:     data,
			})
		}
		return r.EncodeJSON(results)
	}

	sexpr := cst.SExprOptions{Text: opts.Text, Anonymous: opts.Anonymous, Points: opts.Points}
	for i, f := range files {
		if len(files) > 1 {
			if i > 0 {
				r.Println("")
			}
			r.Println(r.Styles().Header.Render("==> " + f.name + " <=="))
		}
		_, _ = fmt.Fprint(r.Writer(), r.SExpr(f.tree.SExpr(f.src, sexpr)))
	}
	return nil
}

// parseFiles reads and parses names concurrently with one shared parser.
// Results keep the order of names.
func parseFiles(cmd *cobra.Command, names []string) ([]parsedFile, error) {
	p, err := newParser(cmd)
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	logger := config.GetLogger(ctx)

	workers := config.GetConfig(ctx).Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	files := make([]parsedFile, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range names {
		g.Go(func() error {
			src, err := readSource(cmd, name)
			if err != nil {
				return err
			}
			pctx, cancel := parseContext(gctx)
			defer cancel()
			tree, err := p.Parse(pctx, src)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			st := tree.Stats()
			logger.Debug("parsed file",
				"file", name,
				"bytes", len(src),
				"tokens", st.TokensScanned,
				"recoveries", st.Recoveries,
				"max_versions", st.MaxVersions)
			files[i] = parsedFile{name: name, src: src, tree: tree}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}
