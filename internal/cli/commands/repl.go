package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/sqlcst/internal/cli/config"
	"github.com/leapstack-labs/sqlcst/internal/cli/output"
	"github.com/leapstack-labs/sqlcst/internal/workspace"
	"github.com/leapstack-labs/sqlcst/pkg/cst"
	"github.com/leapstack-labs/sqlcst/pkg/diagnostic"
	"github.com/leapstack-labs/sqlcst/pkg/dialects/postgres"
	"github.com/leapstack-labs/sqlcst/pkg/format"
	"github.com/leapstack-labs/sqlcst/pkg/query"
	"github.com/spf13/cobra"
)

const (
	replURI    = "repl://session"
	replPrompt = "sqlcst> "
)

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Type SQL and watch the tree grow incrementally",
		Long: `Start an interactive session. Every line is appended to one document,
which is reparsed incrementally. After each line the statement under the
cursor and any syntax errors are shown.

Type .help for commands, .quit to exit.`,
		Args: cobra.NoArgs,
		RunE: runREPL,
	}
	return cmd
}

func runREPL(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	session, err := newREPLSession(cmd)
	if err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		AutoComplete:    newKeywordCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "sqlcst REPL")
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, ".") {
			if quit := session.dot(ctx, trimmed); quit {
				return nil
			}
			continue
		}
		if err := session.feed(ctx, line); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}
}

// replSession is one document grown a line at a time.
type replSession struct {
	store  *workspace.Store
	r      *output.Renderer
	doc    *workspace.Document
	logger *slog.Logger
}

func newREPLSession(cmd *cobra.Command) (*replSession, error) {
	p, err := newParser(cmd)
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	s := &replSession{
		store:  workspace.NewStore(p, config.GetLogger(ctx)),
		r:      output.FromContext(ctx),
		logger: config.GetLogger(ctx),
	}
	if err := s.reset(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *replSession) reset(ctx context.Context) error {
	doc, err := s.store.Open(ctx, replURI, nil, 1)
	if err != nil {
		return err
	}
	s.doc = doc
	return nil
}

// feed appends line to the document and reports the statement it ends in.
func (s *replSession) feed(ctx context.Context, line string) error {
	end := s.doc.OffsetToPosition(len(s.doc.Content))
	pctx, cancel := parseContext(ctx)
	defer cancel()
	doc, err := s.store.Change(pctx, replURI, s.doc.Version+1, []workspace.Change{{
		Range: &workspace.Range{Start: end, End: end},
		Text:  line + "\n",
	}})
	if err != nil {
		return err
	}
	s.doc = doc

	st := doc.Tree.Stats()
	s.logger.Debug("repl reparse", "version", doc.Version, "nodes_reused", st.NodesReused)

	// The statement the line ends in, ignoring its terminator.
	at := len(doc.Content)
	for at > 0 && (isSpaceByte(doc.Content[at-1]) || doc.Content[at-1] == ';') {
		at--
	}
	ix := query.New(doc.Tree, doc.Content, postgres.Postgres)
	if stmt, ok := ix.StatementAt(at); ok {
		s.r.Println(s.r.SExpr(stmt.String()))
	}
	for _, d := range diagnostic.Collect(doc.Tree, doc.Content) {
		s.r.Println(severityStyle(s.r.Styles(), d.Severity).Render(d.String()))
	}
	return nil
}

// dot runs a dot-command and reports whether the session should end.
func (s *replSession) dot(ctx context.Context, line string) bool {
	w := s.r.Writer()
	switch strings.ToLower(strings.Fields(line)[0]) {
	case ".quit", ".exit":
		return true
	case ".help":
		printREPLHelp(w)
	case ".tree":
		_, _ = fmt.Fprint(w, s.r.SExpr(s.doc.Tree.SExpr(s.doc.Content, cst.SExprOptions{})))
	case ".source":
		_, _ = fmt.Fprint(w, string(s.doc.Content))
	case ".format":
		_, _ = fmt.Fprint(w, format.Format(s.doc.Tree, s.doc.Content))
	case ".stats":
		st := s.doc.Tree.Stats()
		_, _ = fmt.Fprintf(w, "version %d: %d bytes, scanned %d tokens, reused %d nodes (%d bytes), %d recoveries\n",
			s.doc.Version, len(s.doc.Content), st.TokensScanned, st.NodesReused, st.BytesReused, st.Recoveries)
	case ".reset":
		if err := s.reset(ctx); err != nil {
			_, _ = fmt.Fprintf(s.r.ErrWriter(), "Error: %v\n", err)
		}
	default:
		_, _ = fmt.Fprintf(s.r.ErrWriter(), "Unknown command: %s (type .help)\n", line)
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `Commands:
  .tree     Print the whole tree
  .source   Print the document
  .format   Print the formatted document
  .stats    Show reuse statistics of the last reparse
  .reset    Start an empty document
  .help     Show this help
  .quit     Exit
`
	_, _ = io.WriteString(w, help)
}

// keywordCompleter completes the word before the cursor with keywords and
// dot-commands.
type keywordCompleter struct {
	words []string
}

func newKeywordCompleter() *keywordCompleter {
	words := []string{".tree", ".source", ".format", ".stats", ".reset", ".help", ".quit"}
	for _, w := range postgres.Postgres.ReservedWords() {
		words = append(words, strings.ToUpper(w))
	}
	return &keywordCompleter{words: words}
}

// Do implements readline.AutoCompleter.
func (c *keywordCompleter) Do(line []rune, pos int) ([][]rune, int) {
	start := pos
	for start > 0 && isCompletionRune(line[start-1]) {
		start--
	}
	prefix := string(line[start:pos])
	if prefix == "" {
		return nil, 0
	}
	upper := strings.ToUpper(prefix)
	var out [][]rune
	for _, w := range c.words {
		if len(w) <= len(prefix) || !strings.HasPrefix(strings.ToUpper(w), upper) {
			continue
		}
		suffix := w[len(prefix):]
		if prefix != upper {
			suffix = strings.ToLower(suffix)
		}
		out = append(out, []rune(suffix))
	}
	return out, len([]rune(prefix))
}

func isCompletionRune(r rune) bool {
	return r == '_' || r == '.' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
