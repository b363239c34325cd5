package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fwojciec/sitegen"
	"github.com/fwojciec/sitegen/exec"
	"github.com/fwojciec/sitegen/redis"
)

// Tool results are shown tail-first so long file dumps stay readable.
const (
	resultMaxLines = 8
	resultMaxBytes = 2048
)

// styles maps a Theme to lipgloss styles for terminal rendering.
type styles struct {
	Tool    lipgloss.Style
	Result  lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Muted   lipgloss.Style
}

func newStyles(t sitegen.Theme, color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain}
	}
	return styles{
		Tool:    lipgloss.NewStyle().Foreground(ansiColor(t.Tool)).Bold(true),
		Result:  lipgloss.NewStyle().Foreground(ansiColor(t.Result)).PaddingLeft(2),
		Error:   lipgloss.NewStyle().Foreground(ansiColor(t.Error)).Bold(true),
		Success: lipgloss.NewStyle().Foreground(ansiColor(t.Success)).Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(ansiColor(t.Muted)).Faint(true),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

// renderer prints wire events as they arrive.
type renderer struct {
	w       io.Writer
	styles  styles
	midLine bool
}

func newRenderer(w io.Writer, s styles) *renderer {
	return &renderer{w: w, styles: s}
}

// Event prints one wire event.
func (r *renderer) Event(ev sitegen.WireEvent) {
	switch e := ev.(type) {
	case sitegen.WirePartialAnswer:
		fmt.Fprint(r.w, e.Text)
		r.midLine = !strings.HasSuffix(e.Text, "\n")
	case sitegen.WireToolRequest:
		r.line(r.styles.Tool.Render("▸ "+e.Name) + " " + r.styles.Muted.Render(string(e.Args)))
	case sitegen.WireToolResult:
		out, truncated := exec.TruncateTail(exec.Sanitize(e.Output), resultMaxLines, resultMaxBytes)
		out = strings.TrimRight(out, "\n")
		if truncated {
			out = "…\n" + out
		}
		r.line(renderLines(r.styles.Result, out))
	case sitegen.WireDone:
		r.line(r.styles.Success.Render("✓ done"))
	case sitegen.WireError:
		r.line(r.styles.Error.Render("✗ " + e.Message))
	}
}

// Status prints a muted status line.
func (r *renderer) Status(format string, args ...any) {
	r.line(r.styles.Muted.Render(fmt.Sprintf(format, args...)))
}

// Record prints one history entry.
func (r *renderer) Record(rec redis.Record) {
	role := r.styles.Tool
	if rec.Role == sitegen.HistoryAI {
		role = r.styles.Success
	}
	r.line(role.Render(string(rec.Role)) + " " + r.styles.Muted.Render(rec.CreatedAt.Format("2006-01-02 15:04:05")))
	r.line(rec.Text)
}

// renderLines styles each line on its own so lipgloss does not pad them to
// a common width.
func renderLines(style lipgloss.Style, s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = style.Render(l)
	}
	return strings.Join(lines, "\n")
}

func (r *renderer) line(s string) {
	if r.midLine {
		fmt.Fprintln(r.w)
		r.midLine = false
	}
	fmt.Fprintln(r.w, s)
}
