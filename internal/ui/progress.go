package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// minStep is the smallest percentage change worth reporting.
const minStep = 10

// throttle decides which (done, total) updates are shown: the first one,
// every minStep-point jump and completion.
type throttle struct {
	last    int
	started bool
}

func (t *throttle) allow(done, total int64) (int, bool) {
	pct := percent(done, total)
	complete := total > 0 && done >= total
	if t.started && !complete && pct-t.last < minStep {
		return pct, false
	}
	if t.started && complete && t.last == 100 {
		return pct, false
	}
	t.started = true
	t.last = pct
	return pct, true
}

func percent(done, total int64) int {
	if total <= 0 {
		return 0
	}
	if done >= total {
		return 100
	}
	return int(done * 100 / total)
}

// Progress reports a long transfer. On a terminal it runs a spinner
// program; otherwise it prints throttled plain lines.
type Progress struct {
	out      io.Writer
	label    string
	throttle throttle

	program *tea.Program
	done    chan struct{}
	once    sync.Once
}

// StartProgress begins reporting for label.
func (p *Printer) StartProgress(label string) *Progress {
	pr := &Progress{out: p.out, label: label}
	if !p.tty {
		return pr
	}

	pr.program = tea.NewProgram(newSpinnerModel(label),
		tea.WithOutput(p.out),
		tea.WithInput(nil),
	)
	pr.done = make(chan struct{})
	go func() {
		defer close(pr.done)
		_, _ = pr.program.Run()
	}()
	return pr
}

// Update reports done of total units. It matches remote.ProgressFunc.
func (pr *Progress) Update(done, total int64) {
	pct, ok := pr.throttle.allow(done, total)
	if !ok {
		return
	}
	if pr.program != nil {
		pr.program.Send(progressMsg{done: done, total: total, pct: pct})
		return
	}
	if total > 0 {
		fmt.Fprintf(pr.out, "  %s %3d%% (%d/%d)\n", pr.label, pct, done, total)
	}
}

// Stop ends reporting and clears the spinner line.
func (pr *Progress) Stop() {
	pr.once.Do(func() {
		if pr.program == nil {
			return
		}
		pr.program.Send(stopMsg{})
		<-pr.done
	})
}

type progressMsg struct {
	done, total int64
	pct         int
}

type stopMsg struct{}

type spinnerModel struct {
	spinner  spinner.Model
	label    string
	status   string
	quitting bool
}

func newSpinnerModel(label string) spinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(spinnerStyle),
	)
	return spinnerModel{spinner: s, label: label}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		if msg.total > 0 {
			m.status = fmt.Sprintf("%d%% (%d/%d)", msg.pct, msg.done, msg.total)
		}
		return m, nil
	case stopMsg:
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m spinnerModel) View() string {
	if m.quitting {
		return ""
	}
	line := m.spinner.View() + " " + m.label
	if m.status != "" {
		line += " " + mutedStyle.Render(m.status)
	}
	return line
}
