// Package output renders command results as styled text or JSON.
package output

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Mode selects how results are written.
type Mode string

// Output modes.
const (
	ModeAuto Mode = "auto"
	ModeText Mode = "text"
	ModeJSON Mode = "json"
)

// Styles are the lipgloss styles used for text output.
type Styles struct {
	Header  lipgloss.Style
	Keyword lipgloss.Style
	Node    lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
}

// DefaultStyles returns the colored styles of renderer re.
func DefaultStyles(re *lipgloss.Renderer) *Styles {
	return &Styles{
		Header:  re.NewStyle().Bold(true),
		Keyword: re.NewStyle().Foreground(lipgloss.Color("12")),
		Node:    re.NewStyle().Foreground(lipgloss.Color("6")),
		Error:   re.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Warning: re.NewStyle().Foreground(lipgloss.Color("11")),
		Info:    re.NewStyle().Foreground(lipgloss.Color("14")),
		Muted:   re.NewStyle().Foreground(lipgloss.Color("8")),
		Success: re.NewStyle().Foreground(lipgloss.Color("10")),
	}
}

// PlainStyles returns styles that render text unchanged.
func PlainStyles() *Styles {
	s := lipgloss.NewStyle()
	return &Styles{Header: s, Keyword: s, Node: s, Error: s, Warning: s, Info: s, Muted: s, Success: s}
}

// Renderer writes command output.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	color  bool
	styles *Styles
}

// NewRenderer creates a renderer. Color is "auto", "always" or "never";
// auto colors only when out is a terminal.
func NewRenderer(out, errOut io.Writer, mode Mode, color string) *Renderer {
	var useColor bool
	switch color {
	case "always":
		useColor = true
	case "never":
		useColor = false
	default:
		useColor = IsTerminal(out)
	}
	if mode == ModeAuto || mode == "" {
		mode = ModeText
	}
	styles := PlainStyles()
	if useColor {
		re := lipgloss.NewRenderer(out)
		// Forced color must survive pipes, where detection finds no profile.
		if re.ColorProfile() == termenv.Ascii {
			re.SetColorProfile(termenv.ANSI256)
		}
		styles = DefaultStyles(re)
	}
	return &Renderer{out: out, errOut: errOut, mode: mode, color: useColor, styles: styles}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // file descriptors fit in int
}

// Writer returns the standard output writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// ErrWriter returns the error output writer.
func (r *Renderer) ErrWriter() io.Writer { return r.errOut }

// Mode returns the resolved output mode.
func (r *Renderer) Mode() Mode { return r.mode }

// JSON reports whether output is JSON.
func (r *Renderer) JSON() bool { return r.mode == ModeJSON }

// Color reports whether styles are applied.
func (r *Renderer) Color() bool { return r.color }

// Styles returns the active styles.
func (r *Renderer) Styles() *Styles { return r.styles }

// Println writes a line to standard output.
func (r *Renderer) Println(s string) {
	_, _ = io.WriteString(r.out, s+"\n")
}

// EncodeJSON writes v as indented JSON.
func (r *Renderer) EncodeJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// SExpr styles an s-expression: node names, ERROR and MISSING markers and
// ranges.
func (r *Renderer) SExpr(s string) string {
	if !r.color {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); {
		switch {
		case s[i] == '(':
			sb.WriteByte('(')
			i++
			j := i
			for j < len(s) && s[j] != ' ' && s[j] != ')' && s[j] != '\n' {
				j++
			}
			name := s[i:j]
			switch {
			case name == "ERROR":
				sb.WriteString(r.styles.Error.Render(name))
			case name == "MISSING":
				sb.WriteString(r.styles.Warning.Render(name))
			case strings.HasPrefix(name, "keyword_"):
				sb.WriteString(r.styles.Keyword.Render(name))
			default:
				sb.WriteString(r.styles.Node.Render(name))
			}
			i = j
		case s[i] == '[':
			j := strings.IndexByte(s[i:], ']')
			if j < 0 {
				sb.WriteString(s[i:])
				return sb.String()
			}
			sb.WriteString(r.styles.Muted.Render(s[i : i+j+1]))
			i += j + 1
		default:
			sb.WriteByte(s[i])
			i++
		}
	}
	return sb.String()
}
