package tui

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/config"
)

// CreateOptions is what the wizard collected.
type CreateOptions struct {
	Template string

	// ID is the workspace id; empty means generate one
	ID string
}

// TemplateChoice is a template offered by the wizard.
type TemplateChoice struct {
	Key         string
	Description string
}

// wizardStep identifies the current step.
type wizardStep int

const (
	stepTemplate wizardStep = iota
	stepName
	stepConfirm
)

// wizardModel drives the workspace creation wizard.
type wizardModel struct {
	step  wizardStep
	taken map[string]bool

	// Step 1: template
	templateList list.Model

	// Step 2: name
	nameInput textinput.Model
	nameErr   string

	selectedTemplate string
	selectedName     string

	width  int
	height int
}

// templateItem implements list.Item for template selection.
type templateItem struct {
	name        string
	description string
}

func (t templateItem) Title() string       { return t.name }
func (t templateItem) Description() string { return t.description }
func (t templateItem) FilterValue() string { return t.name }

// wizardStyles
var (
	wizardTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				MarginBottom(1)

	wizardStepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	wizardActiveStepStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39"))

	wizardLabelStyle = lipgloss.NewStyle().
				Bold(true).
				MarginBottom(1)

	wizardValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39"))

	wizardDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	wizardErrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

func newWizardModel(templates []TemplateChoice, taken []string) wizardModel {
	ni := textinput.New()
	ni.Placeholder = "leave empty for a generated id"
	ni.CharLimit = 63
	ni.Width = 40

	w := wizardModel{
		step:      stepTemplate,
		taken:     make(map[string]bool, len(taken)),
		nameInput: ni,
	}
	for _, id := range taken {
		w.taken[id] = true
	}
	w.loadTemplates(templates)
	return w
}

func (w *wizardModel) Init() tea.Cmd {
	return nil
}

// Update processes a message and returns (done, createOptions, cmd).
// done=true with non-nil opts means wizard completed successfully.
// done=true with nil opts means wizard was cancelled.
func (w *wizardModel) Update(msg tea.Msg) (bool, *CreateOptions, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyCtrlC:
			return true, nil, nil
		case tea.KeyEsc:
			return w.handleBack()
		}
	}

	switch w.step {
	case stepTemplate:
		return w.updateTemplate(msg)
	case stepName:
		return w.updateName(msg)
	case stepConfirm:
		return w.updateConfirm(msg)
	}

	return false, nil, nil
}

func (w *wizardModel) handleBack() (bool, *CreateOptions, tea.Cmd) {
	switch w.step {
	case stepTemplate:
		// Esc at first step cancels wizard
		return true, nil, nil
	case stepName:
		w.step = stepTemplate
		w.nameInput.Blur()
		w.nameErr = ""
		return false, nil, nil
	case stepConfirm:
		w.step = stepName
		w.nameInput.Focus()
		return false, nil, textinput.Blink
	}
	return false, nil, nil
}

func (w *wizardModel) updateTemplate(msg tea.Msg) (bool, *CreateOptions, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter {
		if item, ok := w.templateList.SelectedItem().(templateItem); ok {
			w.selectedTemplate = item.name
			w.step = stepName
			w.nameInput.SetValue(suggestName(w.selectedTemplate, w.taken))
			w.nameInput.Focus()
			return false, nil, textinput.Blink
		}
		return false, nil, nil
	}

	var cmd tea.Cmd
	w.templateList, cmd = w.templateList.Update(msg)
	return false, nil, cmd
}

func (w *wizardModel) updateName(msg tea.Msg) (bool, *CreateOptions, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter {
		name := strings.TrimSpace(w.nameInput.Value())
		if name != "" {
			if err := config.ValidateWorkspaceID(name); err != nil {
				w.nameErr = err.Error()
				return false, nil, nil
			}
			if w.taken[name] {
				w.nameErr = fmt.Sprintf("workspace %q already exists", name)
				return false, nil, nil
			}
		}
		w.nameErr = ""
		w.selectedName = name
		w.step = stepConfirm
		w.nameInput.Blur()
		return false, nil, nil
	}

	var cmd tea.Cmd
	w.nameInput, cmd = w.nameInput.Update(msg)
	return false, nil, cmd
}

func (w *wizardModel) updateConfirm(msg tea.Msg) (bool, *CreateOptions, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter", "y":
			return true, &CreateOptions{
				Template: w.selectedTemplate,
				ID:       w.selectedName,
			}, nil
		case "n":
			// Restart wizard
			w.step = stepTemplate
			w.selectedTemplate = ""
			w.selectedName = ""
			w.nameInput.SetValue("")
			return false, nil, nil
		}
	}
	return false, nil, nil
}

func (w *wizardModel) View() string {
	var b strings.Builder

	b.WriteString(wizardTitleStyle.Render("Create New Workspace"))
	b.WriteString("\n")
	b.WriteString(w.progressBar())
	b.WriteString("\n\n")

	switch w.step {
	case stepTemplate:
		b.WriteString(wizardLabelStyle.Render("Select template:"))
		b.WriteString("\n")
		b.WriteString(w.templateList.View())
	case stepName:
		b.WriteString(wizardLabelStyle.Render("Workspace id:"))
		b.WriteString("\n")
		b.WriteString(w.nameInput.View())
		b.WriteString("\n\n")
		if w.nameErr != "" {
			b.WriteString(wizardErrStyle.Render(w.nameErr))
			b.WriteString("\n")
		}
		b.WriteString(wizardDimStyle.Render("Lowercase letters, digits, '-' and '_'. Enter to continue."))
	case stepConfirm:
		name := w.selectedName
		if name == "" {
			name = "(generated)"
		}
		b.WriteString(wizardLabelStyle.Render("Confirm:"))
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("  Template: %s\n", wizardValueStyle.Render(w.selectedTemplate)))
		b.WriteString(fmt.Sprintf("  Id:       %s\n", wizardValueStyle.Render(name)))
		b.WriteString("\n")
		b.WriteString(wizardDimStyle.Render("Enter to create, n to restart, Esc to go back."))
	}

	return b.String()
}

func (w *wizardModel) progressBar() string {
	steps := []string{"Template", "Id", "Confirm"}

	parts := make([]string, 0, len(steps))
	for i, name := range steps {
		label := fmt.Sprintf("%d. %s", i+1, name)
		if i == int(w.step) {
			parts = append(parts, wizardActiveStepStyle.Render(label))
		} else {
			parts = append(parts, wizardStepStyle.Render(label))
		}
	}

	return strings.Join(parts, wizardDimStyle.Render(" > "))
}

func (w *wizardModel) loadTemplates(templates []TemplateChoice) {
	items := make([]list.Item, 0, len(templates))
	for _, t := range templates {
		items = append(items, templateItem{name: t.Key, description: t.Description})
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = selectedStyle
	delegate.Styles.SelectedDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	l := list.New(items, delegate, 60, 14)
	l.Title = ""
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	if w.width > 0 {
		l.SetWidth(w.width - 4)
	}
	if w.height > 0 {
		l.SetHeight(w.height - 10)
	}

	w.templateList = l
}

// sanitizeNameRegex matches characters not valid in workspace ids.
var sanitizeNameRegex = regexp.MustCompile(`[^a-z0-9_-]`)

// suggestName derives a free workspace id from a template key, adding a
// numeric suffix when the plain name is taken.
func suggestName(template string, taken map[string]bool) string {
	base := strings.ToLower(template)
	base = sanitizeNameRegex.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-_")
	if base == "" {
		base = "workspace"
	}
	base += "-playground"
	if len(base) > 56 {
		base = strings.TrimRight(base[:56], "-_")
	}

	name := base
	for n := 2; taken[name]; n++ {
		name = base + "-" + strconv.Itoa(n)
	}
	return name
}
