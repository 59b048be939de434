package cst

import (
	"encoding/json"

	"github.com/leapstack-labs/sqlcst/pkg/token"
)

type jsonNode struct {
	Type       string      `json:"type"`
	Named      bool        `json:"named,omitempty"`
	Extra      bool        `json:"extra,omitempty"`
	Error      bool        `json:"error,omitempty"`
	Missing    bool        `json:"missing,omitempty"`
	StartByte  int         `json:"start_byte"`
	EndByte    int         `json:"end_byte"`
	StartPoint token.Point `json:"start_point"`
	EndPoint   token.Point `json:"end_point"`
	Text       string      `json:"text,omitempty"`
	Children   []jsonNode  `json:"children,omitempty"`
}

func toJSON(n Node, src []byte) jsonNode {
	j := jsonNode{
		Type:       n.Type(),
		Named:      n.IsNamed(),
		Extra:      n.IsExtra(),
		Error:      n.IsError(),
		Missing:    n.IsMissing(),
		StartByte:  n.StartByte(),
		EndByte:    n.EndByte(),
		StartPoint: n.StartPoint(),
		EndPoint:   n.EndPoint(),
	}
	if src != nil && n.ChildCount() == 0 {
		j.Text = n.Text(src)
	}
	for _, c := range n.Children() {
		j.Children = append(j.Children, toJSON(c, src))
	}
	return j
}

// MarshalJSON encodes n and its descendants without source text.
func (n Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(toJSON(n, nil))
}

// JSON encodes the tree, with leaf text taken from src when it is not nil.
func (t *Tree) JSON(src []byte) ([]byte, error) {
	return json.MarshalIndent(struct {
		Version int      `json:"version"`
		Length  int      `json:"length"`
		Stats   Stats    `json:"stats"`
		Root    jsonNode `json:"root"`
	}{t.version, t.length, t.stats, toJSON(t.Root(), src)}, "", "  ")
}
