package tui

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/sandbox"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tree"
)

func update(m tea.Model, msgs ...tea.Msg) ProgressModel {
	for _, msg := range msgs {
		m, _ = m.Update(msg)
	}
	return m.(ProgressModel)
}

func TestProgressStages(t *testing.T) {
	m := NewProgress(ProgressOptions{Workspace: "react-playground"})

	m = update(m, StatusMsg(sandbox.Status{Stage: sandbox.StageInstalling, Step: 3}))
	view := m.View()
	if !strings.Contains(view, "react-playground") {
		t.Error("view should name the workspace")
	}
	if !strings.Contains(view, "Installing dependencies...") {
		t.Errorf("view should show the stage:\n%s", view)
	}
	if !strings.Contains(view, "3/4") {
		t.Errorf("view should show the step counter:\n%s", view)
	}

	m = update(m, StatusMsg(sandbox.Status{Stage: sandbox.StageReady, Step: 4, ServerURL: "http://localhost:5173"}))
	if !strings.Contains(m.View(), "Development server is running at: http://localhost:5173") {
		t.Errorf("view should show the server url:\n%s", m.View())
	}
	if m.Status().Port != 0 || !m.Status().Ready() {
		t.Errorf("Status() = %+v", m.Status())
	}
}

func TestProgressFailureAndRestart(t *testing.T) {
	restarted := make(chan struct{}, 1)
	m := NewProgress(ProgressOptions{Restart: func() error {
		restarted <- struct{}{}
		return nil
	}})

	m = update(m, StatusMsg(sandbox.Status{Stage: sandbox.StageFailed, Step: 3, Err: "exit code 1"}))
	view := m.View()
	if !strings.Contains(view, "Error during setup: exit code 1") {
		t.Errorf("view should show the failure:\n%s", view)
	}
	if !strings.Contains(view, "[r] Restart") {
		t.Error("view should offer a restart")
	}

	_, cmd := m.Update(keyRune('r'))
	if cmd == nil {
		t.Fatal("r should run the restart")
	}
	if msg, ok := cmd().(setupDoneMsg); !ok || msg.err != nil {
		t.Errorf("restart msg = %#v", msg)
	}
	select {
	case <-restarted:
	default:
		t.Error("Restart was not called")
	}
}

func TestProgressRestartOnlyWhenFailed(t *testing.T) {
	m := NewProgress(ProgressOptions{Restart: func() error { return nil }})
	m = update(m, StatusMsg(sandbox.Status{Stage: sandbox.StageStarting, Step: 4}))
	if _, cmd := m.Update(keyRune('r')); cmd != nil {
		t.Error("r should do nothing while setup runs")
	}
}

func TestProgressSetupError(t *testing.T) {
	m := NewProgress(ProgressOptions{})
	m = update(m, setupDoneMsg{err: errors.New("sandbox setup already in progress")})
	if !strings.Contains(m.View(), "already in progress") {
		t.Error("view should show the setup error")
	}
}

func TestProgressOutput(t *testing.T) {
	m := NewProgress(ProgressOptions{})

	m = update(m,
		OutputMsg("Installing dependencies...\r\n"),
		OutputMsg("added 12 pack"),
		OutputMsg("ages\r\n"),
		OutputMsg("50%\r100%\r\n"),
		OutputMsg("tail"),
	)
	want := []string{"Installing dependencies...", "added 12 packages", "100%"}
	if len(m.lines) != len(want) {
		t.Fatalf("lines = %q, want %q", m.lines, want)
	}
	for i := range want {
		if m.lines[i] != want[i] {
			t.Errorf("lines[%d] = %q, want %q", i, m.lines[i], want[i])
		}
	}
	if m.partial != "tail" {
		t.Errorf("partial = %q, want tail", m.partial)
	}

	m = update(m, clearMsg{})
	if len(m.lines) != 0 || m.partial != "" {
		t.Errorf("clear left %q / %q", m.lines, m.partial)
	}
}

func TestProgressOutputBounded(t *testing.T) {
	m := NewProgress(ProgressOptions{})
	for i := 0; i < maxOutputLines+10; i++ {
		m.appendOutput("line\n")
	}
	if len(m.lines) != maxOutputLines {
		t.Errorf("kept %d lines, want %d", len(m.lines), maxOutputLines)
	}
}

func TestProgressQuit(t *testing.T) {
	m := NewProgress(ProgressOptions{})
	next, cmd := m.Update(keyRune('q'))
	if cmd == nil {
		t.Error("q should quit")
	}
	if next.View() != "" {
		t.Error("quitting view should be empty")
	}
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingSender) last() (StatusMsg, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.msgs) - 1; i >= 0; i-- {
		if s, ok := r.msgs[i].(StatusMsg); ok {
			return s, true
		}
	}
	return StatusMsg{}, false
}

func TestFollow(t *testing.T) {
	rt := runtime.NewMockRuntime()
	ctrl := sandbox.NewController(rt)
	sender := &recordingSender{}

	cancel := Follow(sender, ctrl)
	defer cancel()

	waitFor := func(stage sandbox.Stage) {
		t.Helper()
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if s, ok := sender.last(); ok && s.Stage == stage {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Fatalf("never received stage %v", stage)
	}

	waitFor(sandbox.StageIdle)

	rt.SetError("Boot", errors.New("no capacity"))
	_ = ctrl.Start(t.Context(), tree.NewRoot())
	waitFor(sandbox.StageFailed)

	cancel()
	cancel()
}
