package tui

import (
	"fmt"
	"strings"

	bprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zenprocess/open-lovable-cf/internal/progress"
)

// eventMsg carries one event from the run into the model.
type eventMsg struct {
	event progress.Event
}

// closedMsg reports that the event channel closed without a terminal event.
type closedMsg struct{}

// ProgressModel is the bubbletea model showing a reconciliation run.
type ProgressModel struct {
	events  <-chan progress.Event
	spinner spinner.Model
	bar     bprogress.Model

	lines      []string
	status     string
	filesDone  int
	filesTotal int

	final    progress.Event
	done     bool
	aborted  bool
	maxLines int
}

// NewProgressModel creates a model reading from events until a terminal
// event arrives or the channel closes.
func NewProgressModel(events <-chan progress.Event) ProgressModel {
	return ProgressModel{
		events:   events,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(stepStyle)),
		bar:      bprogress.New(bprogress.WithDefaultGradient(), bprogress.WithWidth(40)),
		status:   "Starting...",
		maxLines: 200,
	}
}

// waitForEvent returns a command that blocks on the next event.
func waitForEvent(events <-chan progress.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return closedMsg{}
		}
		return eventMsg{event: e}
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.aborted = true
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		width := msg.Width - 4
		if width > 60 {
			width = 60
		}
		if width > 10 {
			m.bar.Width = width
		}
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		m = m.apply(msg.event)
		if m.done {
			return m, tea.Quit
		}
		return m, waitForEvent(m.events)

	case closedMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

// apply folds one event into the model.
func (m ProgressModel) apply(e progress.Event) ProgressModel {
	switch e := e.(type) {
	case progress.Step:
		m.status = e.Message
	case progress.FileProgress:
		m.filesDone = e.Current - 1
		m.filesTotal = e.Total
		m.status = fmt.Sprintf("%s %s", e.Action, e.FileName)
	case progress.FileComplete, progress.FileError:
		if m.filesDone < m.filesTotal {
			m.filesDone++
		}
	case progress.CommandProgress:
		m.status = "Running " + e.Command
	case progress.PackageProgress:
		if e.Status == progress.PackageStart {
			m.status = e.Message
		}
	}

	if line, ok := FormatEvent(e); ok {
		m.lines = append(m.lines, line)
		if len(m.lines) > m.maxLines {
			m.lines = m.lines[len(m.lines)-m.maxLines:]
		}
	}
	if progress.IsTerminal(e) {
		m.final = e
		m.done = true
	}
	return m
}

func (m ProgressModel) View() string {
	var b strings.Builder
	for _, l := range m.lines {
		b.WriteString(l + "\n")
	}
	if m.done || m.aborted {
		return b.String()
	}

	b.WriteString("\n" + m.spinner.View() + " " + m.status + "\n")
	if m.filesTotal > 0 {
		pct := float64(m.filesDone) / float64(m.filesTotal)
		b.WriteString(m.bar.ViewAs(pct) + fmt.Sprintf(" %d/%d files\n", m.filesDone, m.filesTotal))
	}
	b.WriteString(helpStyle.Render("[q] Detach"))
	return b.String()
}

// Final returns the terminal event, or nil if none arrived.
func (m ProgressModel) Final() progress.Event {
	return m.final
}

// Aborted reports whether the user quit before the run finished.
func (m ProgressModel) Aborted() bool {
	return m.aborted
}

// RunProgress shows events until the run ends and returns the terminal
// event. It returns nil without error when the user detaches early; the
// caller keeps draining events in that case.
func RunProgress(events <-chan progress.Event, opts ...tea.ProgramOption) (progress.Event, error) {
	p := tea.NewProgram(NewProgressModel(events), opts...)
	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}
	return finalModel.(ProgressModel).Final(), nil
}
