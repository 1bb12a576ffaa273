package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vibery-studio/vibery/internal/core/catalog"
)

const defaultWidth = 80

// Printer writes styled status lines.
type Printer struct {
	out   io.Writer
	width int
	tty   bool
}

// NewPrinter creates a Printer for out. Width and terminal detection come
// from out when it is a terminal file.
func NewPrinter(out io.Writer) *Printer {
	p := &Printer{out: out, width: defaultWidth}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.tty = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			p.width = w
		}
	}
	return p
}

// Out returns the underlying writer.
func (p *Printer) Out() io.Writer {
	return p.out
}

// Width is the usable line width.
func (p *Printer) Width() int {
	return p.width
}

// IsTerminal reports whether output goes to a terminal.
func (p *Printer) IsTerminal() bool {
	return p.tty
}

// Title prints a bold heading followed by a blank line.
func (p *Printer) Title(format string, args ...any) {
	fmt.Fprintf(p.out, "%s\n\n", titleStyle.Render(fmt.Sprintf(format, args...)))
}

// Section prints a ruled section header.
func (p *Printer) Section(label string) {
	fmt.Fprintf(p.out, "\n%s\n", renderSectionHeader(label))
}

// Info prints a plain line.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintf(p.out, "%s\n", fmt.Sprintf(format, args...))
}

// Muted prints a de-emphasized line.
func (p *Printer) Muted(format string, args ...any) {
	fmt.Fprintf(p.out, "%s\n", mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// Success prints a line prefixed with a check mark.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintf(p.out, "%s %s\n", successStyle.Render("✓"), fmt.Sprintf(format, args...))
}

// Warn prints a warning line.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintf(p.out, "%s %s\n", warningStyle.Render("!"), fmt.Sprintf(format, args...))
}

// Error prints a line prefixed with a cross.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintf(p.out, "%s %s\n", errorStyle.Render("✗"), fmt.Sprintf(format, args...))
}

// Template prints one catalog entry: icon, name, type badge and the
// description truncated to the line width.
func (p *Printer) Template(d catalog.Descriptor, showType bool) {
	line := "  " + nameStyle.Render(d.Name)
	if showType {
		line += " " + badgeStyle.Render("["+string(d.Type)+"]")
	}
	if d.Category != "" {
		line += " " + mutedStyle.Render("("+d.Category+")")
	}
	fmt.Fprintln(p.out, line)

	if d.Description != "" {
		desc := ansi.Truncate(singleLine(d.Description), p.width-4, "…")
		fmt.Fprintf(p.out, "    %s\n", mutedStyle.Render(desc))
	}
}

// TypeHeading is the section label of a template type: icon, plural title
// and count.
func TypeHeading(key string, count int) string {
	t := catalog.Type(strings.TrimSuffix(key, "s"))
	return fmt.Sprintf("%s %s (%d)", Icon(t), Capitalize(key), count)
}

// Capitalize title-cases a word.
func Capitalize(s string) string {
	return cases.Title(language.English).String(s)
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
