package sandbox

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"github.com/go-git/go-billy/v5/util"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/audit"
	ferrors "github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/terminal"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tree"
)

const testURL = "http://localhost:3000"

func projectTree() *tree.Folder {
	return tree.NewRoot(
		&tree.File{Name: "package", Extension: "json", Content: `{"scripts":{"start":"node index.js"}}`},
		&tree.Folder{Name: "src", Items: []tree.Node{
			&tree.File{Name: "index", Extension: "js", Content: "console.log(1)"},
		}},
	)
}

type harness struct {
	rt   *runtime.MockRuntime
	sink *terminal.Recorder
	ctrl *Controller

	mu     sync.Mutex
	stages []Stage
	seen   []Status
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{rt: runtime.NewMockRuntime(), sink: terminal.NewRecorder()}
	h.rt.SetScript("npm install", &ProcessScript{Output: []string{"added 3 packages"}})
	h.rt.SetScript("npm run start", &ProcessScript{
		Output: []string{"> node index.js"},
		Ready:  &runtime.ReadyEvent{Port: 3000, URL: testURL},
		Hold:   true,
	})

	opts = append([]Option{WithSink(h.sink), WithWorkspace("ws-test")}, opts...)
	h.ctrl = NewController(h.rt, opts...)
	cancel := h.ctrl.Subscribe(func(s Status) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.seen = append(h.seen, s)
		if len(h.stages) == 0 || h.stages[len(h.stages)-1] != s.Stage {
			h.stages = append(h.stages, s.Stage)
		}
	})
	t.Cleanup(func() {
		cancel()
		_ = h.ctrl.Teardown()
	})
	return h
}

// ProcessScript is shorthand for the mock runtime's script type.
type ProcessScript = runtime.ProcessScript

func (h *harness) stageLog() []Stage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Stage(nil), h.stages...)
}

func (h *harness) waitStage(t *testing.T, want Stage) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if h.ctrl.Status().Stage == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("stage = %s, want %s", h.ctrl.Status().Stage, want)
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func spawned(rt *runtime.MockRuntime) []string {
	var out []string
	for _, call := range rt.GetCallsFor("Spawn") {
		out = append(out, call.Args[0].(string))
	}
	return out
}

func TestController_FullSetup(t *testing.T) {
	h := newHarness(t)

	if err := h.ctrl.Start(context.Background(), projectTree()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	st, err := h.ctrl.WaitReady(waitCtx(t))
	if err != nil {
		t.Fatalf("WaitReady() error = %v", err)
	}
	if st.ServerURL != testURL || st.Port != 3000 || !st.Ready() || st.Step != TotalSteps {
		t.Errorf("status = %+v", st)
	}

	want := []Stage{StageIdle, StageBooting, StageTransforming, StageMounting, StageInstalling, StageStarting, StageReady}
	got := h.stageLog()
	if len(got) != len(want) {
		t.Fatalf("stages = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("stage %d = %s, want %s", i, got[i], want[i])
		}
	}

	if calls := spawned(h.rt); len(calls) != 2 || calls[0] != "npm install" || calls[1] != "npm run start" {
		t.Errorf("spawned = %v, want install then start", calls)
	}

	handle := h.ctrl.Handle()
	if data, err := handle.ReadFile(context.Background(), "src/index.js"); err != nil || string(data) != "console.log(1)" {
		t.Errorf("mounted src/index.js = (%q, %v)", data, err)
	}
	if _, err := handle.ReadFile(context.Background(), DefaultInstallMarker); err != nil {
		t.Errorf("install marker not written: %v", err)
	}

	out := h.sink.String()
	for _, msg := range []string{
		"Transforming template files...",
		"Mounting files...",
		"Installing dependencies...",
		"added 3 packages",
		"Starting development server...",
		"Development server is running at: " + testURL,
	} {
		if !strings.Contains(out, msg) {
			t.Errorf("sink output missing %q:\n%s", msg, out)
		}
	}
	if strings.Index(out, "added 3 packages") > strings.Index(out, "Starting development server...") {
		t.Error("install output must precede start")
	}
}

func TestController_InstallFailure(t *testing.T) {
	h := newHarness(t)
	h.rt.SetScript("npm install", &ProcessScript{Output: []string{"npm ERR! missing script"}, ExitCode: 1})

	err := h.ctrl.Start(context.Background(), projectTree())
	if !ferrors.HasCode(err, ferrors.ExitSandboxFailed) {
		t.Fatalf("Start() error = %v, want sandbox failure", err)
	}

	st := h.ctrl.Status()
	if st.Stage != StageFailed {
		t.Errorf("stage = %s, want failed", st.Stage)
	}
	if !strings.Contains(st.Err, "exit code 1") {
		t.Errorf("Err = %q, want exit code 1", st.Err)
	}
	if calls := spawned(h.rt); len(calls) != 1 {
		t.Errorf("spawned = %v, start must not run after failed install", calls)
	}
	for _, s := range h.stageLog() {
		if s == StageStarting {
			t.Error("StageStarting observed after failed install")
		}
	}
	if !strings.Contains(h.sink.String(), "Error during setup: npm install failed with exit code 1") {
		t.Errorf("sink output = %q", h.sink.String())
	}

	if _, err := h.ctrl.WaitReady(waitCtx(t)); !ferrors.HasCode(err, ferrors.ExitSandboxFailed) {
		t.Errorf("WaitReady() error = %v, want sandbox failure", err)
	}
}

func TestController_StageFailures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*runtime.MockRuntime)
		wantStage string
		wantMsg   string
	}{
		{
			name:      "boot",
			setup:     func(rt *runtime.MockRuntime) { rt.SetError("Boot", errors.New("quota exceeded")) },
			wantStage: "booting",
			wantMsg:   "failed to boot sandbox: quota exceeded",
		},
		{
			name:      "mount",
			setup:     func(rt *runtime.MockRuntime) { rt.SetError("Mount", errors.New("disk full")) },
			wantStage: "mounting",
			wantMsg:   "failed to mount files: disk full",
		},
		{
			name: "start exits early",
			setup: func(rt *runtime.MockRuntime) {
				rt.SetScript("npm run start", &ProcessScript{Output: []string{"Error: Cannot find module"}, ExitCode: 1})
			},
			wantStage: "starting",
			wantMsg:   "npm run start exited with code 1 before the server was ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.setup(h.rt)

			_ = h.ctrl.Start(context.Background(), projectTree())
			_, err := h.ctrl.WaitReady(waitCtx(t))

			var fe *ferrors.ForageError
			if !errors.As(err, &fe) || fe.Message != "sandbox "+tt.wantStage+" failed" {
				t.Fatalf("WaitReady() error = %v, want failure in %s", err, tt.wantStage)
			}
			if st := h.ctrl.Status(); st.Err != tt.wantMsg {
				t.Errorf("Err = %q, want %q", st.Err, tt.wantMsg)
			}
		})
	}
}

func TestController_ReuseExistingSandbox(t *testing.T) {
	h := newHarness(t)
	_ = util.WriteFile(h.rt.FS, "package.json", []byte(`{"name":"x"}`), 0o644)
	_ = util.WriteFile(h.rt.FS, DefaultInstallMarker, []byte("done"), 0o644)

	if err := h.ctrl.Start(context.Background(), projectTree()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	st := h.ctrl.Status()
	if st.Stage != StageReadyIdle || !st.Reused {
		t.Fatalf("status = %+v, want reused ready-idle", st)
	}
	if n := len(h.rt.GetCallsFor("Mount")); n != 0 {
		t.Errorf("Mount called %d times on reuse", n)
	}
	if calls := spawned(h.rt); len(calls) != 0 {
		t.Errorf("spawned %v on reuse", calls)
	}
	if !strings.Contains(h.sink.String(), "Reconnecting to existing sandbox instance...") {
		t.Errorf("sink output = %q", h.sink.String())
	}

	h.rt.LastHandle().EmitServerReady(runtime.ReadyEvent{Port: 5173, URL: "http://localhost:5173"})
	st, err := h.ctrl.WaitReady(waitCtx(t))
	if err != nil || st.ServerURL != "http://localhost:5173" {
		t.Errorf("WaitReady() = (%+v, %v)", st, err)
	}
}

func TestController_ManifestWithoutInstallRunsFullSetup(t *testing.T) {
	h := newHarness(t)
	_ = util.WriteFile(h.rt.FS, "package.json", []byte(`{"name":"x"}`), 0o644)

	if err := h.ctrl.Start(context.Background(), projectTree()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := h.ctrl.WaitReady(waitCtx(t)); err != nil {
		t.Fatalf("WaitReady() error = %v", err)
	}
	if n := len(h.rt.GetCallsFor("Mount")); n != 1 {
		t.Errorf("Mount called %d times, want 1", n)
	}
	if h.ctrl.Status().Reused {
		t.Error("Reused should be false")
	}
	if !strings.Contains(h.sink.String(), "without a completed install") {
		t.Errorf("sink output = %q", h.sink.String())
	}
}

func TestController_SetupGuard(t *testing.T) {
	h := newHarness(t)
	gate := make(chan struct{})
	h.rt.SetScript("npm install", &ProcessScript{Gate: gate})

	done := make(chan error, 1)
	go func() { done <- h.ctrl.Start(context.Background(), projectTree()) }()
	h.waitStage(t, StageInstalling)

	if err := h.ctrl.Start(context.Background(), projectTree()); !errors.Is(err, ErrSetupInProgress) {
		t.Errorf("second Start() error = %v, want ErrSetupInProgress", err)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	if _, err := h.ctrl.WaitReady(waitCtx(t)); err != nil {
		t.Fatal(err)
	}

	if err := h.ctrl.Start(context.Background(), projectTree()); err != nil {
		t.Errorf("Start() after completion error = %v, want nil", err)
	}
	if n := len(h.rt.GetCallsFor("Boot")); n != 1 {
		t.Errorf("Boot called %d times, want 1", n)
	}
	if n := len(spawned(h.rt)); n != 2 {
		t.Errorf("spawned %d processes, want exactly one install and one start", n)
	}
}

func TestController_ReadinessIsLevelTriggered(t *testing.T) {
	h := newHarness(t)
	_ = h.ctrl.Start(context.Background(), projectTree())
	if _, err := h.ctrl.WaitReady(waitCtx(t)); err != nil {
		t.Fatal(err)
	}

	h.mu.Lock()
	before := len(h.seen)
	h.mu.Unlock()

	handle := h.rt.LastHandle()
	handle.EmitServerReady(runtime.ReadyEvent{Port: 3000, URL: testURL})
	handle.EmitServerReady(runtime.ReadyEvent{Port: 3001, URL: "http://localhost:3001"})

	h.mu.Lock()
	after := h.seen[before:]
	h.mu.Unlock()
	if len(after) != 2 {
		t.Fatalf("got %d publications for 2 ready events", len(after))
	}
	if after[1].ServerURL != "http://localhost:3001" || after[1].Port != 3001 {
		t.Errorf("latest status = %+v", after[1])
	}
	if st := h.ctrl.Status(); st.ServerURL != "http://localhost:3001" {
		t.Errorf("Status().ServerURL = %q", st.ServerURL)
	}
}

func TestController_TeardownAbortsInFlightSetup(t *testing.T) {
	h := newHarness(t)
	gate := make(chan struct{})
	h.rt.SetScript("npm install", &ProcessScript{Gate: gate})

	done := make(chan error, 1)
	go func() { done <- h.ctrl.Start(context.Background(), projectTree()) }()
	h.waitStage(t, StageInstalling)
	handle := h.rt.LastHandle()

	if err := h.ctrl.Teardown(); err != nil {
		t.Fatalf("Teardown() error = %v", err)
	}
	err := <-done
	if err == nil {
		t.Fatal("in-flight Start() should fail after teardown")
	}
	if !handle.Closed() {
		t.Error("handle not torn down")
	}
	if st := h.ctrl.Status(); st.Stage != StageIdle {
		t.Errorf("stage after teardown = %s, want idle", st.Stage)
	}
	for _, s := range h.stageLog() {
		if s == StageStarting || s == StageFailed {
			t.Errorf("stale generation published %s", s)
		}
	}
	if err := h.ctrl.WriteFile(context.Background(), "a.js", "x"); !errors.Is(err, ErrNoSandbox) {
		t.Errorf("WriteFile() after teardown error = %v, want ErrNoSandbox", err)
	}
}

func TestController_ForceRestart(t *testing.T) {
	logger := audit.NewLogger(t.TempDir())
	h := newHarness(t, WithAuditLogger(logger))
	h.rt.SetScript("npm install", &ProcessScript{ExitCode: 1})

	_ = h.ctrl.Start(context.Background(), projectTree())
	if h.ctrl.Status().Stage != StageFailed {
		t.Fatalf("stage = %s, want failed", h.ctrl.Status().Stage)
	}
	if err := h.ctrl.Start(context.Background(), projectTree()); !ferrors.HasCode(err, ferrors.ExitSandboxFailed) {
		t.Fatalf("Start() after failure error = %v, want the recorded failure", err)
	}
	if n := len(h.rt.GetCallsFor("Boot")); n != 1 {
		t.Fatalf("Start() after failure booted again (%d boots)", n)
	}

	h.rt.SetScript("npm install", &ProcessScript{})
	first := h.rt.LastHandle()
	if err := h.ctrl.ForceRestart(context.Background(), projectTree()); err != nil {
		t.Fatalf("ForceRestart() error = %v", err)
	}
	st, err := h.ctrl.WaitReady(waitCtx(t))
	if err != nil || st.ServerURL != testURL {
		t.Fatalf("WaitReady() = (%+v, %v)", st, err)
	}
	if !first.Closed() {
		t.Error("previous sandbox should be torn down")
	}
	if h.sink.Clears() != 1 {
		t.Errorf("sink cleared %d times, want 1", h.sink.Clears())
	}

	events, _ := logger.Events("ws-test")
	var types []string
	for _, e := range events {
		types = append(types, string(e.Type))
	}
	joined := strings.Join(types, ",")
	for _, want := range []string{"boot", "failed", "restart", "teardown", "ready"} {
		if !strings.Contains(joined, want) {
			t.Errorf("audit events %s missing %s", joined, want)
		}
	}
}

func TestController_WriteFile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.ctrl.WriteFile(ctx, "src/a.js", "x"); !errors.Is(err, ErrNoSandbox) {
		t.Errorf("WriteFile() before boot error = %v, want ErrNoSandbox", err)
	}

	_ = h.ctrl.Start(ctx, projectTree())
	if err := h.ctrl.WriteFile(ctx, "src/deep/nested/new.js", "fresh"); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	data, err := h.ctrl.Handle().ReadFile(ctx, "src/deep/nested/new.js")
	if err != nil || string(data) != "fresh" {
		t.Errorf("ReadFile() = (%q, %v)", data, err)
	}
	if calls := h.rt.GetCallsFor("MkdirAll"); len(calls) == 0 || calls[len(calls)-1].Args[0] != "src/deep/nested" {
		t.Errorf("parent directory not created first: %v", calls)
	}
}

func TestController_OutputIsLineOrdered(t *testing.T) {
	sink := terminal.NewRecorder()
	ctrl := NewController(runtime.NewMockRuntime(), WithSink(sink))

	ctrl.pump(iotest.OneByteReader(strings.NewReader("added 3 packages\r\nready on :3000\npartial")))

	want := []string{"added 3 packages\r\n", "ready on :3000\n", "partial"}
	got := sink.Chunks()
	if len(got) != len(want) {
		t.Fatalf("Chunks() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStageString(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageIdle, "idle"},
		{StageInstalling, "installing"},
		{StageReadyIdle, "ready-idle"},
		{StageFailed, "failed"},
		{Stage(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.stage.String(); got != tt.want {
			t.Errorf("Stage(%d).String() = %q, want %q", tt.stage, got, tt.want)
		}
	}
}
