package grammar_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/sqlcst/pkg/grammar"
	"github.com/leapstack-labs/sqlcst/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, tbl *grammar.Table) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, grammar.Encode(&buf, tbl))
	return buf.String()
}

func TestArtifactRoundTrip(t *testing.T) {
	tbl, err := calcBuilder(false).Compile()
	require.NoError(t, err)

	first := encode(t, tbl)
	assert.True(t, strings.HasPrefix(first, "format_version: 1\n"))

	loaded, err := grammar.DecodeBytes([]byte(first))
	require.NoError(t, err)
	assert.Equal(t, first, encode(t, loaded), "encoding is stable across a load")

	assert.Equal(t, tbl.NumStates(), loaded.NumStates())
	assert.Equal(t, tbl.NumProductions(), loaded.NumProductions())
	assert.Equal(t, len(tbl.Conflicts()), len(loaded.Conflicts()))
	assert.Equal(t, tbl.Tokens(), loaded.Tokens())
	for s := 0; s < tbl.NumStates(); s++ {
		for k := 0; k < tbl.NumTerminals(); k++ {
			assert.Equal(t, tbl.Actions(grammar.StateID(s), token.Kind(k)), loaded.Actions(grammar.StateID(s), token.Kind(k)))
		}
	}

	got, ok := drive(t, loaded, "number", "*", "number")
	require.True(t, ok)
	assert.Equal(t, []int{4, 4, 2}, got)
}

func TestArtifactUnsupportedVersion(t *testing.T) {
	tbl, err := calcBuilder(true).Compile()
	require.NoError(t, err)
	doc := strings.Replace(encode(t, tbl), "format_version: 1", "format_version: 99", 1)

	_, err = grammar.DecodeBytes([]byte(doc))
	require.Error(t, err)
	assert.True(t, errors.Is(err, grammar.ErrUnsupportedGrammarVersion))

	var verr *grammar.VersionError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 99, verr.Got)
	assert.Equal(t, "calc", verr.Language)
}

func TestArtifactMalformed(t *testing.T) {
	tbl, err := calcBuilder(true).Compile()
	require.NoError(t, err)
	doc := encode(t, tbl)

	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "format_version: 1\nsymbols: [\n"},
		{"dangling production symbol", strings.Replace(doc, "lhs: expr", "lhs: nope", 1)},
		{"terminal start", strings.Replace(doc, "start: expr", "start: number", 1)},
		{"unknown scanner", strings.Replace(doc, "kind: number", "kind: regex", 1)},
		{"unknown field", strings.Replace(doc, "language: calc", "language: calc\nflavour: x", 1)},
		{"missing states", doc[:strings.Index(doc, "states:")]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := grammar.DecodeBytes([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, grammar.ErrMalformedGrammarTable), "got %v", err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	tbl, err := calcBuilder(true).Compile()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "calc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(encode(t, tbl)), 0o600))

	loaded, err := grammar.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "calc", loaded.Language())

	_, err = grammar.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
