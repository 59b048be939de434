package lexer

import (
	"github.com/leapstack-labs/sqlcst/pkg/grammar"
)

// cursor reads bytes from a fixed start and records the furthest byte any
// primitive looked at.
type cursor struct {
	src   []byte
	start int
	seen  int // exclusive bound of examined bytes
}

// at returns the byte i positions after the start.
func (c *cursor) at(i int) (byte, bool) {
	j := c.start + i
	if j >= len(c.src) {
		if len(c.src) > c.seen {
			c.seen = len(c.src)
		}
		return 0, false
	}
	if j+1 > c.seen {
		c.seen = j + 1
	}
	return c.src[j], true
}

// hasPrefix reports whether text occurs i bytes after the start.
func (c *cursor) hasPrefix(i int, text string, fold bool) bool {
	for k := 0; k < len(text); k++ {
		ch, ok := c.at(i + k)
		if !ok {
			return false
		}
		want := text[k]
		if fold {
			ch, want = lower(ch), lower(want)
		}
		if ch != want {
			return false
		}
	}
	return true
}

func lower(ch byte) byte {
	if ch >= 'A' && ch <= 'Z' {
		return ch + 'a' - 'A'
	}
	return ch
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

// isWordStart treats every non-ASCII byte as a letter so that UTF-8
// identifiers stay in one token.
func isWordStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch >= 0x80
}

func isWordPart(ch byte) bool {
	return isWordStart(ch) || isDigit(ch) || ch == '$'
}

func isSpace(ch byte) bool {
	switch ch {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

// match returns the length of the longest spelling of p at the cursor start,
// or -1 when p does not match.
func (c *cursor) match(p grammar.Pattern) int {
	switch p.Kind {
	case grammar.PatternLiteral:
		if c.hasPrefix(0, p.Text, false) {
			return len(p.Text)
		}
	case grammar.PatternKeyword:
		if !c.hasPrefix(0, p.Text, true) {
			return -1
		}
		if ch, ok := c.at(len(p.Text)); ok && isWordPart(ch) {
			return -1
		}
		return len(p.Text)
	case grammar.PatternWord:
		return c.word(0)
	case grammar.PatternNumber:
		return c.number()
	case grammar.PatternQuoted:
		return c.quoted(p.Text)
	case grammar.PatternLineComment:
		return c.lineComment(p.Text)
	case grammar.PatternBlockComment:
		return c.blockComment(p.Text, p.Close)
	case grammar.PatternWhitespace:
		n := 0
		for {
			ch, ok := c.at(n)
			if !ok || !isSpace(ch) {
				break
			}
			n++
		}
		if n > 0 {
			return n
		}
	case grammar.PatternDollarString:
		return c.dollarString()
	case grammar.PatternParameter:
		return c.parameter(p.Text)
	}
	return -1
}

// word matches an identifier starting i bytes after the start and returns
// the end relative to the start.
func (c *cursor) word(i int) int {
	ch, ok := c.at(i)
	if !ok || !isWordStart(ch) {
		return -1
	}
	n := i + 1
	for {
		ch, ok := c.at(n)
		if !ok || !isWordPart(ch) {
			return n
		}
		n++
	}
}

func (c *cursor) digits(i int) int {
	for {
		ch, ok := c.at(i)
		if !ok || !isDigit(ch) {
			return i
		}
		i++
	}
}

func (c *cursor) number() int {
	n := c.digits(0)
	intPart := n > 0
	fracPart := false
	if ch, ok := c.at(n); ok && ch == '.' {
		m := c.digits(n + 1)
		fracPart = m > n+1
		if intPart || fracPart {
			n = m
		}
	}
	if !intPart && !fracPart {
		return -1
	}
	if ch, ok := c.at(n); ok && (ch == 'e' || ch == 'E') {
		m := n + 1
		if sign, ok := c.at(m); ok && (sign == '+' || sign == '-') {
			m++
		}
		if e := c.digits(m); e > m {
			n = e
		}
	}
	return n
}

func (c *cursor) quoted(q string) int {
	if !c.hasPrefix(0, q, false) {
		return -1
	}
	n := len(q)
	for {
		if _, ok := c.at(n); !ok {
			return -1
		}
		if c.hasPrefix(n, q, false) {
			n += len(q)
			if !c.hasPrefix(n, q, false) {
				return n
			}
			n += len(q)
			continue
		}
		n++
	}
}

func (c *cursor) lineComment(prefix string) int {
	if !c.hasPrefix(0, prefix, false) {
		return -1
	}
	n := len(prefix)
	for {
		ch, ok := c.at(n)
		if !ok || ch == '\n' {
			return n
		}
		n++
	}
}

func (c *cursor) blockComment(open, closer string) int {
	if !c.hasPrefix(0, open, false) {
		return -1
	}
	n, depth := len(open), 1
	for {
		if _, ok := c.at(n); !ok {
			return n
		}
		switch {
		case c.hasPrefix(n, closer, false):
			n += len(closer)
			depth--
			if depth == 0 {
				return n
			}
		case c.hasPrefix(n, open, false):
			n += len(open)
			depth++
		default:
			n++
		}
	}
}

func (c *cursor) dollarString() int {
	if ch, ok := c.at(0); !ok || ch != '$' {
		return -1
	}
	tagEnd := 1
	if ch, ok := c.at(1); ok && isWordStart(ch) {
		for {
			tagEnd++
			ch, ok := c.at(tagEnd)
			if !ok || ch == '$' || !(isWordStart(ch) || isDigit(ch)) {
				break
			}
		}
	}
	if ch, ok := c.at(tagEnd); !ok || ch != '$' {
		return -1
	}
	delim := string(c.src[c.start : c.start+tagEnd+1])
	n := tagEnd + 1
	for {
		if _, ok := c.at(n); !ok {
			return -1
		}
		if c.hasPrefix(n, delim, false) {
			return n + len(delim)
		}
		n++
	}
}

func (c *cursor) parameter(prefix string) int {
	if !c.hasPrefix(0, prefix, false) {
		return -1
	}
	n := c.digits(len(prefix))
	if n == len(prefix) {
		return -1
	}
	return n
}
