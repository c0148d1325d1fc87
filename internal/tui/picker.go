// Package tui provides terminal user interface components for forage-play
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/store"
)

// Action represents the action to take after picker selection
type Action int

const (
	ActionNone Action = iota
	ActionOpen
	ActionNew
	ActionQuit
)

// PickerResult holds the result of the picker
type PickerResult struct {
	Action    Action
	Workspace *store.Entry

	// CreateOptions is set when ActionNew came out of the wizard
	CreateOptions *CreateOptions
}

// PickerOptions configures the picker.
type PickerOptions struct {
	// AllowCreate runs the creation wizard on "n" instead of returning
	// ActionNew right away
	AllowCreate bool

	// Templates offered by the wizard
	Templates []TemplateChoice

	// Now anchors the recency groups; zero means time.Now
	Now time.Time
}

func (o PickerOptions) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// workspaceItem implements list.Item for workspace display
type workspaceItem struct {
	entry store.Entry
	now   time.Time
}

func (i workspaceItem) Title() string {
	return i.entry.ID
}

func (i workspaceItem) Description() string {
	return fmt.Sprintf("saved %s | %s",
		humanize.RelTime(i.entry.UpdatedAt, i.now, "ago", "from now"),
		humanize.Bytes(uint64(i.entry.Size)),
	)
}

func (i workspaceItem) FilterValue() string {
	return i.entry.ID
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)
)

type pickerMode int

const (
	modeList pickerMode = iota
	modeWizard
)

// Model is the bubbletea model for the workspace picker
type Model struct {
	list     list.Model
	wizard   wizardModel
	mode     pickerMode
	opts     PickerOptions
	taken    []string
	result   PickerResult
	quitting bool
	width    int
	height   int
}

// NewPicker creates a new workspace picker
func NewPicker(entries []store.Entry, opts PickerOptions) Model {
	items := buildGroupedItems(entries, opts.now())

	l := list.New(items, newGroupedDelegate(), 80, 20)
	l.Title = "forage-play - Select Workspace"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	if len(items) > 0 {
		skipHeaders(&l, 1)
	}

	taken := make([]string, 0, len(entries))
	for _, e := range entries {
		taken = append(taken, e.ID)
	}

	return Model{
		list:  l,
		opts:  opts,
		taken: taken,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = size.Width
		m.height = size.Height
		m.list.SetSize(size.Width, size.Height-4)
		m.wizard.width = size.Width
		m.wizard.height = size.Height
	}

	if m.mode == modeWizard {
		return m.updateWizard(msg)
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch keyMsg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(workspaceItem); ok {
				entry := item.entry
				m.result = PickerResult{Action: ActionOpen, Workspace: &entry}
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil

		case "n":
			if m.opts.AllowCreate {
				return m.startWizard()
			}
			m.result = PickerResult{Action: ActionNew}
			m.quitting = true
			return m, tea.Quit

		case "q", "esc", "ctrl+c":
			m.result = PickerResult{Action: ActionQuit}
			m.quitting = true
			return m, tea.Quit

		case "up", "k", "down", "j":
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			if isHeaderSelected(&m.list) {
				skipHeaders(&m.list, navigationDirection(keyMsg))
			}
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) startWizard() (tea.Model, tea.Cmd) {
	m.wizard = newWizardModel(m.opts.Templates, m.taken)
	m.wizard.width = m.width
	m.wizard.height = m.height
	m.mode = modeWizard
	return m, m.wizard.Init()
}

func (m Model) updateWizard(msg tea.Msg) (tea.Model, tea.Cmd) {
	done, opts, cmd := m.wizard.Update(msg)
	if !done {
		return m, cmd
	}
	if opts == nil {
		if len(m.list.Items()) == 0 {
			m.result = PickerResult{Action: ActionQuit}
			m.quitting = true
			return m, tea.Quit
		}
		m.mode = modeList
		return m, nil
	}
	m.result = PickerResult{Action: ActionNew, CreateOptions: opts}
	m.quitting = true
	return m, tea.Quit
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.mode == modeWizard {
		return m.wizard.View()
	}

	keys := "[enter] Open  [n] New  [/] Filter  [q] Quit"
	if n := len(m.list.Items()) - headerCount(m.list.Items()); n > 0 {
		keys = fmt.Sprintf("%d workspaces  %s", n, keys)
	}
	return m.list.View() + "\n" + helpStyle.Render(keys)
}

// Result returns the picker result
func (m Model) Result() PickerResult {
	return m.result
}

// RunPicker runs the interactive workspace picker. With no workspaces it
// goes straight to the wizard, or returns ActionNew when creation is not
// allowed.
func RunPicker(entries []store.Entry, opts PickerOptions) (PickerResult, error) {
	if len(entries) == 0 && !opts.AllowCreate {
		return PickerResult{Action: ActionNew}, nil
	}

	m := NewPicker(entries, opts)
	var start tea.Model = m
	if len(entries) == 0 {
		start, _ = m.startWizard()
	}

	p := tea.NewProgram(start, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return PickerResult{}, err
	}

	return finalModel.(Model).Result(), nil
}

// SimplePicker is a non-interactive rendering of the workspace list
func SimplePicker(entries []store.Entry, now time.Time) string {
	var sb strings.Builder

	sb.WriteString("forage-play - Workspaces\n")
	sb.WriteString(strings.Repeat("─", 60) + "\n\n")

	if len(entries) == 0 {
		sb.WriteString("No workspaces found.\n")
		sb.WriteString("Create one with: forage-play new -t <template>\n")
		return sb.String()
	}

	n := 0
	for _, item := range buildGroupedItems(entries, now) {
		switch it := item.(type) {
		case headerItem:
			sb.WriteString(it.label + "\n")
		case workspaceItem:
			n++
			sb.WriteString(fmt.Sprintf("  %d. %s\n", n, it.Title()))
			sb.WriteString(fmt.Sprintf("     %s\n", it.Description()))
		}
	}

	return sb.String()
}
