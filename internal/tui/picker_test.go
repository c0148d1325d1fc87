package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/store"
)

func testEntries() []store.Entry {
	return []store.Entry{
		entryAt("react-playground", time.Hour),
		entryAt("vue-demo", 10*24*time.Hour),
	}
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestWorkspaceItemMethods(t *testing.T) {
	item := workspaceItem{entry: entryAt("react-playground", 3*time.Hour), now: testNow}

	if got := item.Title(); got != "react-playground" {
		t.Errorf("Title() = %q, want %q", got, "react-playground")
	}
	if got := item.FilterValue(); got != "react-playground" {
		t.Errorf("FilterValue() = %q, want %q", got, "react-playground")
	}

	desc := item.Description()
	if !strings.Contains(desc, "3 hours ago") {
		t.Errorf("Description() = %q, want the save age", desc)
	}
	if !strings.Contains(desc, "kB") {
		t.Errorf("Description() = %q, want the document size", desc)
	}
}

func TestNewPickerSkipsLeadingHeader(t *testing.T) {
	m := NewPicker(testEntries(), PickerOptions{Now: testNow})
	if _, ok := m.list.SelectedItem().(workspaceItem); !ok {
		t.Errorf("selected item = %#v, want a workspace", m.list.SelectedItem())
	}
}

func TestModelKeyHandling(t *testing.T) {
	t.Run("open with enter", func(t *testing.T) {
		m := NewPicker(testEntries(), PickerOptions{Now: testNow})
		newModel, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		model := newModel.(Model)

		if model.result.Action != ActionOpen {
			t.Fatalf("Action = %v, want ActionOpen", model.result.Action)
		}
		if model.result.Workspace == nil || model.result.Workspace.ID != "react-playground" {
			t.Errorf("Workspace = %+v, want react-playground", model.result.Workspace)
		}
		if cmd == nil {
			t.Error("Should return tea.Quit command")
		}
	})

	t.Run("quit with q", func(t *testing.T) {
		m := NewPicker(testEntries(), PickerOptions{Now: testNow})
		newModel, cmd := m.Update(keyRune('q'))
		model := newModel.(Model)

		if model.result.Action != ActionQuit {
			t.Errorf("Action = %v, want ActionQuit", model.result.Action)
		}
		if !model.quitting {
			t.Error("Model should be quitting")
		}
		if cmd == nil {
			t.Error("Should return tea.Quit command")
		}
	})

	t.Run("quit with esc", func(t *testing.T) {
		m := NewPicker(testEntries(), PickerOptions{Now: testNow})
		newModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if got := newModel.(Model).result.Action; got != ActionQuit {
			t.Errorf("Action = %v, want ActionQuit", got)
		}
	})

	t.Run("new without wizard", func(t *testing.T) {
		m := NewPicker(testEntries(), PickerOptions{Now: testNow})
		newModel, _ := m.Update(keyRune('n'))
		if got := newModel.(Model).result.Action; got != ActionNew {
			t.Errorf("Action = %v, want ActionNew", got)
		}
	})

	t.Run("down skips headers", func(t *testing.T) {
		m := NewPicker(testEntries(), PickerOptions{Now: testNow})
		newModel, _ := m.Update(keyRune('j'))
		model := newModel.(Model)
		item, ok := model.list.SelectedItem().(workspaceItem)
		if !ok || item.entry.ID != "vue-demo" {
			t.Errorf("selected = %#v, want vue-demo", model.list.SelectedItem())
		}
	})

	t.Run("window size update", func(t *testing.T) {
		m := NewPicker(testEntries(), PickerOptions{Now: testNow})
		newModel, cmd := m.Update(tea.WindowSizeMsg{Width: 100, Height: 50})
		model := newModel.(Model)

		if model.width != 100 || model.height != 50 {
			t.Errorf("size = %dx%d, want 100x50", model.width, model.height)
		}
		if cmd != nil {
			t.Error("Window size update should not return a command")
		}
	})
}

func TestPickerWizardFlow(t *testing.T) {
	opts := PickerOptions{
		AllowCreate: true,
		Now:         testNow,
		Templates:   []TemplateChoice{{Key: "REACT", Description: "react"}},
	}

	t.Run("create", func(t *testing.T) {
		var model tea.Model = NewPicker(testEntries(), opts)
		model, _ = model.Update(keyRune('n'))
		if model.(Model).mode != modeWizard {
			t.Fatal("n should open the wizard")
		}

		model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter}) // template
		model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter}) // suggested id
		model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})

		result := model.(Model).Result()
		if result.Action != ActionNew || result.CreateOptions == nil {
			t.Fatalf("result = %+v, want ActionNew with options", result)
		}
		if result.CreateOptions.Template != "REACT" {
			t.Errorf("Template = %q, want REACT", result.CreateOptions.Template)
		}
		if result.CreateOptions.ID != "react-playground-2" {
			t.Errorf("ID = %q, want react-playground-2", result.CreateOptions.ID)
		}
		if cmd == nil {
			t.Error("Should return tea.Quit command")
		}
	})

	t.Run("cancel returns to list", func(t *testing.T) {
		var model tea.Model = NewPicker(testEntries(), opts)
		model, _ = model.Update(keyRune('n'))
		model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})

		m := model.(Model)
		if m.mode != modeList {
			t.Error("esc on first wizard step should return to the list")
		}
		if m.result.Action != ActionNone {
			t.Errorf("Action = %v, want ActionNone", m.result.Action)
		}
	})
}

func TestModelView(t *testing.T) {
	t.Run("normal view contains help", func(t *testing.T) {
		view := NewPicker(testEntries(), PickerOptions{Now: testNow}).View()

		for _, want := range []string{"[enter] Open", "[n] New", "[q] Quit", "2 workspaces"} {
			if !strings.Contains(view, want) {
				t.Errorf("View should contain %q", want)
			}
		}
	})

	t.Run("quitting view is empty", func(t *testing.T) {
		m := NewPicker(testEntries(), PickerOptions{Now: testNow})
		m.quitting = true
		if view := m.View(); view != "" {
			t.Errorf("Quitting view should be empty, got %q", view)
		}
	})
}

func TestRunPickerEmptyWithoutCreate(t *testing.T) {
	result, err := RunPicker(nil, PickerOptions{})
	if err != nil {
		t.Fatalf("RunPicker with no workspaces failed: %v", err)
	}
	if result.Action != ActionNew {
		t.Errorf("no workspaces should return ActionNew, got %v", result.Action)
	}
}

func TestSimplePicker(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		output := SimplePicker(nil, testNow)

		if !strings.Contains(output, "No workspaces found") {
			t.Error("Should indicate no workspaces found")
		}
		if !strings.Contains(output, "forage-play new") {
			t.Error("Should show how to create a workspace")
		}
	})

	t.Run("with workspaces", func(t *testing.T) {
		output := SimplePicker(testEntries(), testNow)

		for _, want := range []string{"forage-play - Workspaces", "Today", "Older", "1. react-playground", "2. vue-demo"} {
			if !strings.Contains(output, want) {
				t.Errorf("output should contain %q:\n%s", want, output)
			}
		}
	})
}

func TestActionConstants(t *testing.T) {
	actions := []Action{ActionNone, ActionOpen, ActionNew, ActionQuit}
	seen := make(map[Action]bool)

	for _, a := range actions {
		if seen[a] {
			t.Errorf("Duplicate action value: %v", a)
		}
		seen[a] = true
	}
}
