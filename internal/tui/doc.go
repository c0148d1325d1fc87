// Package tui provides terminal user interface components for forage-play.
//
// This package uses the Bubble Tea framework for the workspace picker, the
// creation wizard and the sandbox boot view.
//
// # Workspace Picker
//
// The picker lists saved workspaces grouped by when they were last saved:
//
//	opts := tui.PickerOptions{AllowCreate: true, Templates: choices}
//	result, err := tui.RunPicker(entries, opts)
//	switch result.Action {
//	case tui.ActionOpen:
//	    // Open result.Workspace.ID
//	case tui.ActionNew:
//	    if result.CreateOptions != nil {
//	        // Create from the wizard's template and id
//	    }
//	case tui.ActionQuit:
//	    // Exit
//	}
//
// Keys: Enter (open), n (new/wizard), / (filter), q (quit). Group headers
// (Today, This week, Older) are skipped by the cursor.
//
// # Boot View
//
// ProgressModel follows a sandbox.Controller: a spinner with the current
// stage, a progress bar over the setup steps, the server URL once ready and
// a scrollable pane with the sandbox terminal output.
//
//	p := tea.NewProgram(tui.NewProgress(tui.ProgressOptions{...}))
//	sink := tui.NewProgramSink(p)       // pass to sandbox.WithSink
//	cancel := tui.Follow(p, controller) // status updates
//	defer cancel()
//	_, err := p.Run()
//
// # Dependencies
//
// Uses the Charm libraries:
//   - github.com/charmbracelet/bubbletea - TUI framework
//   - github.com/charmbracelet/bubbles - UI components
//   - github.com/charmbracelet/lipgloss - Styling
package tui
