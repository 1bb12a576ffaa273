package ui

import (
	"github.com/charmbracelet/glamour"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Table renders rows with a header in the light box style.
func (p *Printer) Table(header []any, rows [][]any) {
	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(header))
	for _, r := range rows {
		t.AppendRow(table.Row(r))
	}
	t.Render()
}

// Markdown renders markdown for the terminal. Output that is not a
// terminal gets the source unchanged.
func (p *Printer) Markdown(source string) (string, error) {
	if !p.tty {
		return source, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(p.width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(source)
}
