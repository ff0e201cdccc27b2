// Package diagnostics defines Flux's structured error/warning records and
// renders them to a terminal. Every stage of the pipeline — lexer, parser,
// module graph, compiler, VM — reports through a Diagnostic rather than a
// bare error string, so the CLI can render a consistent, colored,
// source-annotated message no matter where the problem originated.
package diagnostics

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Span identifies a half-open range of a source file for caret rendering.
type Span struct {
	File        string
	Line        int32 // 0-based, as the lexer produces
	Column      int   // 0-based
	Length      int   // caret width; 1 if unknown
}

// Diagnostic is a single structured error or warning.
type Diagnostic struct {
	Code     string // e.g. "E1008", "W201"
	Severity Severity
	Span     Span
	Message  string
	Hints    []string
	Related  []Span
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s[%s]: %s (%s:%d:%d)", d.Severity, d.Code, d.Message, d.Span.File, d.Span.Line+1, d.Span.Column+1)
}

// Errorf builds an error-severity Diagnostic.
func Errorf(code string, span Span, format string, args ...any) Diagnostic {
	return Diagnostic{Code: code, Severity: SeverityError, Span: span, Message: fmt.Sprintf(format, args...)}
}

// Warnf builds a warning-severity Diagnostic.
func Warnf(code string, span Span, format string, args ...any) Diagnostic {
	return Diagnostic{Code: code, Severity: SeverityWarning, Span: span, Message: fmt.Sprintf(format, args...)}
}

// WithHint appends a hint line and returns the same Diagnostic for chaining.
func (d Diagnostic) WithHint(hint string) Diagnostic {
	d.Hints = append(d.Hints, hint)
	return d
}

// Renderer prints Diagnostics to a writer, with ANSI color unless disabled.
type Renderer struct {
	w     io.Writer
	color bool
}

// NewRenderer builds a Renderer. Color is enabled only when the destination
// is a TTY and NO_COLOR is unset, per the spec's diagnostics formatting
// rules.
func NewRenderer(w io.Writer) *Renderer {
	useColor := false
	if os.Getenv("NO_COLOR") == "" {
		if f, ok := w.(*os.File); ok {
			useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
	}
	return &Renderer{w: w, color: useColor}
}

// Render writes a single Diagnostic, with the offending source line and a
// caret under the span, if src is non-empty.
func (r *Renderer) Render(d Diagnostic, src string) {
	sev := d.Severity.String()
	header := fmt.Sprintf("%s[%s]: %s", sev, d.Code, d.Message)
	if r.color {
		c := color.New(color.FgRed, color.Bold)
		if d.Severity == SeverityWarning {
			c = color.New(color.FgYellow, color.Bold)
		}
		header = c.Sprint(strings.ToUpper(sev[:1]) + sev[1:] + "[" + d.Code + "]") + ": " + d.Message
	}
	fmt.Fprintf(r.w, "%s\n  --> %s:%d:%d\n", header, d.Span.File, d.Span.Line+1, d.Span.Column+1)

	if src != "" {
		lines := strings.Split(src, "\n")
		if int(d.Span.Line) < len(lines) {
			line := lines[d.Span.Line]
			fmt.Fprintf(r.w, "   %s\n", line)
			pad := strings.Repeat(" ", d.Span.Column)
			length := d.Span.Length
			if length < 1 {
				length = 1
			}
			caret := pad + strings.Repeat("^", length)
			if r.color {
				caret = color.New(color.FgCyan).Sprint(caret)
			}
			fmt.Fprintf(r.w, "   %s\n", caret)
		}
	}

	for _, h := range d.Hints {
		fmt.Fprintf(r.w, "  hint: %s\n", h)
	}
	for _, rel := range d.Related {
		fmt.Fprintf(r.w, "  also: %s:%d:%d\n", rel.File, rel.Line+1, rel.Column+1)
	}
}

// RenderAll renders a batch of Diagnostics in order.
func (r *Renderer) RenderAll(ds []Diagnostic, src string) {
	for _, d := range ds {
		r.Render(d, src)
	}
}
