// Package parser implements an incremental, error-tolerant GLR parser that
// produces concrete syntax trees.
//
// # Usage
//
//	p := parser.New(postgres.Table(), parser.Config{})
//	tree, err := p.Parse(ctx, src)
//	...
//	next, err := p.Reparse(ctx, tree, edits, newSrc)
//
// Parsing never fails on input: syntax errors become ERROR nodes and
// zero-width MISSING tokens in the tree. The only errors are a cancelled
// context and, for Reparse, edits that do not fit the documents.
//
// # Algorithm
//
// The parser runs the LALR(1) table of a grammar. Cells that hold several
// actions fork the stack; all versions advance in lockstep over one
// lookahead token and merge again when their states coincide. When no
// version can continue, recovery tries, in order, inserting a missing token,
// skipping a few tokens into an ERROR node, and popping to a state that can
// resume after a synchronizing rule.
//
// Reparse walks the previous tree alongside the new text and pushes every
// old subtree that no edit touched, including the bytes its parse looked
// ahead at, without rescanning it.
package parser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/sqlcst/pkg/cst"
	"github.com/leapstack-labs/sqlcst/pkg/edit"
	"github.com/leapstack-labs/sqlcst/pkg/grammar"
	"github.com/leapstack-labs/sqlcst/pkg/lexer"
	"github.com/leapstack-labs/sqlcst/pkg/token"
)

// Defaults for Config fields left zero.
const (
	DefaultMaxVersions         = 6
	DefaultSkipWindow          = 3
	DefaultCancelCheckInterval = 1024
)

// Config holds parser configuration.
type Config struct {
	// MaxVersions caps the number of parallel stack versions.
	MaxVersions int
	// SkipWindow is how many tokens recovery skips before escalating.
	SkipWindow int
	// CancelCheckInterval is the number of tokens between context checks.
	CancelCheckInterval int
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Parser parses documents with one grammar. It holds only configuration
// and is safe for concurrent use.
type Parser struct {
	table   *grammar.Table
	scanner *lexer.Scanner
	cfg     Config
	logger  *slog.Logger
}

// New creates a parser for t.
func New(t *grammar.Table, cfg Config) *Parser {
	if cfg.MaxVersions <= 0 {
		cfg.MaxVersions = DefaultMaxVersions
	}
	if cfg.SkipWindow <= 0 {
		cfg.SkipWindow = DefaultSkipWindow
	}
	if cfg.CancelCheckInterval <= 0 {
		cfg.CancelCheckInterval = DefaultCancelCheckInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Parser{table: t, scanner: lexer.New(t), cfg: cfg, logger: logger}
}

// Table returns the parser's grammar.
func (p *Parser) Table() *grammar.Table { return p.table }

// Parse parses src from scratch. The returned tree has version 1.
func (p *Parser) Parse(ctx context.Context, src []byte) (*cst.Tree, error) {
	return p.run(ctx, src, nil, 1)
}

// Reparse parses src, the result of applying edits in order to the source
// of old, reusing every subtree of old the edits left intact. old is not
// modified. A nil old tree, or one built with another grammar, gets a full
// parse.
func (p *Parser) Reparse(ctx context.Context, old *cst.Tree, edits []edit.Edit, src []byte) (*cst.Tree, error) {
	if old == nil {
		return p.run(ctx, src, nil, 1)
	}
	set, err := edit.Fold(edits, old.Len())
	if err != nil {
		return nil, err
	}
	if set.NewLen() != len(src) {
		return nil, &edit.InvalidEditError{
			Edit:   lastEdit(edits),
			Reason: fmt.Sprintf("edits produce %d bytes, source has %d", set.NewLen(), len(src)),
		}
	}
	if old.Table() != p.table {
		return p.run(ctx, src, nil, old.Version()+1)
	}
	return p.run(ctx, src, newReuseCursor(old.Root().Subtree(), set), old.Version()+1)
}

func lastEdit(edits []edit.Edit) edit.Edit {
	if len(edits) == 0 {
		return edit.Edit{}
	}
	return edits[len(edits)-1]
}

// run is the transient state of one parse.
type run struct {
	p     *Parser
	t     *grammar.Table
	ctx   context.Context
	src   []byte
	reuse *reuseCursor

	versions []*stackNode
	la       lookahead
	chain    []*cst.Subtree // reusable old subtrees starting at the lookahead
	tokens   int
	err      error
	stats    cst.Stats

	lastRecovery recoveryKey
}

// lookahead is the current token, with its leaf once one exists.
type lookahead struct {
	tok  token.Token
	leaf *cst.Subtree
}

func (p *Parser) run(ctx context.Context, src []byte, reuse *reuseCursor, version int) (*cst.Tree, error) {
	r := &run{
		p:        p,
		t:        p.table,
		ctx:      ctx,
		src:      src,
		reuse:    reuse,
		versions: []*stackNode{bottom()},
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.scan(token.Position{})
	for {
		root := r.step()
		if r.err != nil {
			return nil, r.err
		}
		if root != nil {
			p.logger.Debug("parsed",
				slog.Int("version", version),
				slog.Int("bytes", len(src)),
				slog.Int("tokens_scanned", r.stats.TokensScanned),
				slog.Int("nodes_reused", r.stats.NodesReused),
				slog.Int("recoveries", r.stats.Recoveries))
			return cst.NewTree(p.table, root, version, r.stats), nil
		}
	}
}

// scan makes the token at pos the lookahead, taking it from the old tree
// when possible.
func (r *run) scan(pos token.Position) {
	r.chain = nil
	if r.reuse != nil {
		r.chain = r.reuse.chainAt(pos.Offset)
		if leaf := reusableLeaf(r.chain); leaf != nil {
			r.la = lookahead{
				tok: token.Token{
					Kind:    leaf.Kind(),
					Start:   pos,
					End:     pos.Move(leaf.Size(), leaf.Extent()),
					ScanEnd: pos.Offset + leaf.Size() + leaf.Lookahead(),
				},
				leaf: leaf,
			}
			r.stats.TokensReused++
			r.tick()
			return
		}
	}
	tok := r.p.scanner.Scan(r.src, pos, 0)
	if !tok.IsEnd() {
		r.stats.TokensScanned++
	}
	r.la = lookahead{tok: tok}
	r.tick()
}

// tick checks for cancellation every CancelCheckInterval tokens.
func (r *run) tick() {
	r.tokens++
	if r.tokens%r.p.cfg.CancelCheckInterval == 0 && r.err == nil {
		r.err = r.ctx.Err()
	}
}

// advance consumes the lookahead.
func (r *run) advance() {
	r.scan(r.la.tok.End)
}

// leaf returns the lookahead's subtree, creating it for state s.
func (r *run) leaf(s grammar.StateID) *cst.Subtree {
	if r.la.leaf == nil {
		r.la.leaf = cst.NewLeaf(r.t, r.la.tok, s)
	}
	return r.la.leaf
}
