package tui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/sandbox"
)

// maxOutputLines bounds the terminal history kept by the progress view.
const maxOutputLines = 2000

// StatusMsg carries a controller status into the progress view.
type StatusMsg sandbox.Status

// OutputMsg carries a terminal chunk into the progress view.
type OutputMsg string

type clearMsg struct{}

type setupDoneMsg struct{ err error }

var stageLabels = map[sandbox.Stage]string{
	sandbox.StageIdle:         "Waiting",
	sandbox.StageBooting:      "Booting sandbox",
	sandbox.StageTransforming: "Transforming template files",
	sandbox.StageMounting:     "Mounting files",
	sandbox.StageInstalling:   "Installing dependencies",
	sandbox.StageStarting:     "Starting development server",
	sandbox.StageReadyIdle:    "Sandbox reused, waiting for server",
	sandbox.StageReady:        "Ready",
	sandbox.StageFailed:       "Failed",
}

var (
	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	outputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238"))
)

// ProgressOptions configures the progress view.
type ProgressOptions struct {
	Workspace string

	// Start runs the sandbox setup; it is called once from Init
	Start func() error

	// Restart is bound to "r" once setup failed
	Restart func() error
}

// ProgressModel shows the boot of a sandbox: current stage, progress bar,
// server URL and the sandbox terminal output.
type ProgressModel struct {
	opts     ProgressOptions
	status   sandbox.Status
	err      error
	spinner  spinner.Model
	bar      progress.Model
	output   viewport.Model
	lines    []string
	partial  string
	width    int
	quitting bool
}

// NewProgress creates a progress view.
func NewProgress(opts ProgressOptions) ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	return ProgressModel{
		opts:    opts,
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		output:  viewport.New(80, 12),
		width:   80,
	}
}

func (m ProgressModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.opts.Start != nil {
		cmds = append(cmds, runSetup(m.opts.Start))
	}
	return tea.Batch(cmds...)
}

func runSetup(fn func() error) tea.Cmd {
	return func() tea.Msg {
		return setupDoneMsg{err: fn()}
	}
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(msg.Width-4, 60)
		m.output.Width = msg.Width - 2
		m.output.Height = max(msg.Height-10, 3)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			if m.status.Stage == sandbox.StageFailed && m.opts.Restart != nil {
				m.err = nil
				m.clearOutput()
				return m, runSetup(m.opts.Restart)
			}
			return m, nil
		}

	case StatusMsg:
		m.status = sandbox.Status(msg)
		return m, nil

	case OutputMsg:
		m.appendOutput(string(msg))
		return m, nil

	case clearMsg:
		m.clearOutput()
		return m, nil

	case setupDoneMsg:
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.output, cmd = m.output.Update(msg)
	return m, cmd
}

// appendOutput adds a chunk, normalizing "\r\n" line endings and keeping
// an unterminated tail until the rest of the line arrives.
func (m *ProgressModel) appendOutput(chunk string) {
	text := m.partial + strings.ReplaceAll(chunk, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	m.partial = parts[len(parts)-1]
	for _, line := range parts[:len(parts)-1] {
		// a bare carriage return rewrites the line
		if i := strings.LastIndex(line, "\r"); i >= 0 {
			line = line[i+1:]
		}
		m.lines = append(m.lines, line)
	}
	if over := len(m.lines) - maxOutputLines; over > 0 {
		m.lines = append(m.lines[:0], m.lines[over:]...)
	}
	m.refreshOutput()
}

func (m *ProgressModel) clearOutput() {
	m.lines = nil
	m.partial = ""
	m.refreshOutput()
}

func (m *ProgressModel) refreshOutput() {
	content := strings.Join(m.lines, "\n")
	if m.partial != "" {
		if content != "" {
			content += "\n"
		}
		content += m.partial
	}
	atBottom := m.output.AtBottom()
	m.output.SetContent(content)
	if atBottom {
		m.output.GotoBottom()
	}
}

func (m ProgressModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	title := "forage-play"
	if m.opts.Workspace != "" {
		title += " - " + m.opts.Workspace
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	label := stageLabels[m.status.Stage]
	switch {
	case m.status.Busy():
		b.WriteString(fmt.Sprintf("%s %s...\n", m.spinner.View(), label))
	case m.status.Ready():
		b.WriteString(urlStyle.Render("Development server is running at: " + m.status.ServerURL))
		b.WriteString("\n")
	case m.status.Stage == sandbox.StageFailed:
		b.WriteString(errStyle.Render("Error during setup: " + m.status.Err))
		b.WriteString("\n")
	default:
		b.WriteString(label + "\n")
	}

	b.WriteString(m.bar.ViewAs(float64(m.status.Step) / float64(sandbox.TotalSteps)))
	b.WriteString(fmt.Sprintf("  %d/%d\n", m.status.Step, sandbox.TotalSteps))
	if m.err != nil && m.status.Stage != sandbox.StageFailed {
		b.WriteString(errStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString(outputStyle.Render(m.output.View()))
	b.WriteString("\n")

	keys := "[pgup/pgdn] Scroll  [q] Stop"
	if m.status.Stage == sandbox.StageFailed && m.opts.Restart != nil {
		keys = "[r] Restart  " + keys
	}
	b.WriteString(helpStyle.Render(keys))

	return b.String()
}

// Status returns the last status the view received.
func (m ProgressModel) Status() sandbox.Status {
	return m.status
}

// ProgramSink is a terminal sink that forwards output to a running program.
type ProgramSink struct {
	p *tea.Program
}

// NewProgramSink returns a sink sending to p.
func NewProgramSink(p *tea.Program) *ProgramSink {
	return &ProgramSink{p: p}
}

func (s *ProgramSink) Write(chunk string) { s.p.Send(OutputMsg(chunk)) }
func (s *ProgramSink) Clear()             { s.p.Send(clearMsg{}) }

// Focus is a no-op; the output pane is always visible.
func (s *ProgramSink) Focus() {}

// Follow forwards controller status changes to p until cancel is called.
// Changes are coalesced, so a slow program only skips intermediate states.
func Follow(p interface{ Send(tea.Msg) }, ctrl *sandbox.Controller) (cancel func()) {
	var (
		mu     sync.Mutex
		latest sandbox.Status
	)
	wake := make(chan struct{}, 1)
	done := make(chan struct{})

	unsubscribe := ctrl.Subscribe(func(s sandbox.Status) {
		mu.Lock()
		latest = s
		mu.Unlock()
		select {
		case wake <- struct{}{}:
		default:
		}
	})

	go func() {
		for {
			select {
			case <-done:
				return
			case <-wake:
				mu.Lock()
				s := latest
				mu.Unlock()
				p.Send(StatusMsg(s))
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			close(done)
		})
	}
}
