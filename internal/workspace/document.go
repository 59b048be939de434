// Package workspace keeps the open documents of an editor session, each
// paired with its latest syntax tree.
//
// Documents are immutable snapshots. A change builds a new snapshot by
// reparsing the previous tree, so readers that hold an older snapshot keep
// a consistent source and tree.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/leapstack-labs/sqlcst/pkg/cst"
	"github.com/leapstack-labs/sqlcst/pkg/diagnostic"
	"github.com/leapstack-labs/sqlcst/pkg/edit"
	"github.com/leapstack-labs/sqlcst/pkg/parser"
)

// ErrNotOpen is returned for a URI that is not open.
var ErrNotOpen = errors.New("workspace: document not open")

// Document is one version of an open document.
type Document struct {
	URI     string
	Content []byte
	Version int
	Tree    *cst.Tree
	Lines   []int // Byte offset of each line start
}

// Store manages open documents.
type Store struct {
	mu        sync.RWMutex
	documents map[string]*Document
	parser    *parser.Parser
	logger    *slog.Logger
}

// NewStore creates an empty store that parses with p.
func NewStore(p *parser.Parser, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		documents: make(map[string]*Document),
		parser:    p,
		logger:    logger,
	}
}

// Open parses content and stores it as uri, replacing any previous version.
func (s *Store) Open(ctx context.Context, uri string, content []byte, version int) (*Document, error) {
	tree, err := s.parser.Parse(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", uri, err)
	}
	doc := &Document{
		URI:     uri,
		Content: content,
		Version: version,
		Tree:    tree,
		Lines:   computeLineOffsets(content),
	}

	s.mu.Lock()
	s.documents[uri] = doc
	s.mu.Unlock()

	s.logger.Debug("document opened", "uri", uri, "version", version, "bytes", len(content))
	return doc, nil
}

// Change applies changes in order to the document at uri and reparses it.
// Changes older than the stored version are ignored and return the stored
// document. The parse runs without holding the store lock; when another
// change lands first, the changes are applied again to the newer snapshot.
func (s *Store) Change(ctx context.Context, uri string, version int, changes []Change) (*Document, error) {
	for {
		s.mu.RLock()
		old, ok := s.documents[uri]
		s.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotOpen, uri)
		}
		if version < old.Version {
			s.logger.Debug("stale change dropped", "uri", uri, "version", version, "current", old.Version)
			return old, nil
		}

		doc, edits, err := s.apply(ctx, old, version, changes)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		if s.documents[uri] != old {
			s.mu.Unlock()
			s.logger.Debug("concurrent change, retrying", "uri", uri, "version", version)
			continue
		}
		s.documents[uri] = doc
		s.mu.Unlock()

		st := doc.Tree.Stats()
		s.logger.Debug("document changed",
			"uri", uri,
			"version", version,
			"edits", edits,
			"tokens_scanned", st.TokensScanned,
			"nodes_reused", st.NodesReused)
		return doc, nil
	}
}

// apply builds the snapshot that follows old. It returns the number of
// edits applied.
func (s *Store) apply(ctx context.Context, old *Document, version int, changes []Change) (*Document, int, error) {
	uri := old.URI
	src := old.Content
	lines := old.Lines
	edits := make([]edit.Edit, 0, len(changes))
	for _, c := range changes {
		var (
			next []byte
			e    edit.Edit
		)
		if c.Range == nil {
			next = []byte(c.Text)
			d, changed := edit.Diff(src, next)
			if !changed {
				continue
			}
			e = d
		} else {
			start := offsetIn(src, lines, c.Range.Start)
			end := offsetIn(src, lines, c.Range.End)
			if end < start {
				return nil, 0, fmt.Errorf("change %s: range end before start", uri)
			}
			var err error
			next, e, err = edit.Replace(src, start, end, c.Text)
			if err != nil {
				return nil, 0, fmt.Errorf("change %s: %w", uri, err)
			}
		}
		edits = append(edits, e)
		src = next
		lines = computeLineOffsets(src)
	}

	tree, err := s.parser.Reparse(ctx, old.Tree, edits, src)
	if err != nil {
		return nil, 0, fmt.Errorf("reparse %s: %w", uri, err)
	}
	return &Document{
		URI:     uri,
		Content: src,
		Version: version,
		Tree:    tree,
		Lines:   lines,
	}, len(edits), nil
}

// Close removes a document from the store.
func (s *Store) Close(uri string) {
	s.mu.Lock()
	delete(s.documents, uri)
	s.mu.Unlock()
	s.logger.Debug("document closed", "uri", uri)
}

// Get retrieves the current snapshot of a document.
func (s *Store) Get(uri string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[uri]
	return doc, ok
}

// List returns the URIs of all open documents, sorted.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uris := make([]string, 0, len(s.documents))
	for uri := range s.documents {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// Diagnostics returns the syntax problems of the current snapshot of uri.
func (s *Store) Diagnostics(uri string) ([]diagnostic.Diagnostic, error) {
	doc, ok := s.Get(uri)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotOpen, uri)
	}
	return diagnostic.Collect(doc.Tree, doc.Content), nil
}

// computeLineOffsets calculates byte offsets for each line start.
func computeLineOffsets(content []byte) []int {
	offsets := []int{0}
	for i, b := range content {
		if b == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// offsetIn converts pos to a byte offset, clamping to the line and the
// document.
func offsetIn(content []byte, lines []int, pos Position) int {
	line := int(pos.Line)
	if line >= len(lines) {
		return len(content)
	}
	lineStart := lines[line]
	lineEnd := len(content)
	if line+1 < len(lines) {
		lineEnd = lines[line+1] - 1 // exclude the newline
	}
	return min(lineStart+int(pos.Character), lineEnd)
}

// PositionToOffset converts a line/character position to a byte offset.
func (d *Document) PositionToOffset(pos Position) int {
	return offsetIn(d.Content, d.Lines, pos)
}

// OffsetToPosition converts a byte offset to a line/character position.
func (d *Document) OffsetToPosition(offset int) Position {
	offset = min(max(offset, 0), len(d.Content))
	line := sort.Search(len(d.Lines), func(i int) bool { return d.Lines[i] > offset }) - 1
	return Position{
		Line:      uint32(line),
		Character: uint32(offset - d.Lines[line]),
	}
}

// WordAt returns the identifier-like word touching pos.
func (d *Document) WordAt(pos Position) string {
	offset := d.PositionToOffset(pos)
	start, end := offset, offset
	for start > 0 && isWordByte(d.Content[start-1]) {
		start--
	}
	for end < len(d.Content) && isWordByte(d.Content[end]) {
		end++
	}
	return string(d.Content[start:end])
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
