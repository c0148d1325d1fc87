package integration

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/sandbox"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/terminal"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/workspace"
)

// TemplateKey is the key of the harness template.
const TemplateKey = "NODE"

// Harness provides utilities for integration testing with real sandboxes.
type Harness struct {
	t       *testing.T
	tempDir string
	cfg     *config.Config
	app     *app.App
	output  *terminal.Recorder

	// Track booted sandboxes for teardown
	controllers []*sandbox.Controller
}

// NewHarness creates a new test harness.
// It will skip the test if FORAGE_INTEGRATION_TESTS is not set.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	if os.Getenv("FORAGE_INTEGRATION_TESTS") == "" {
		t.Skip("integration tests disabled (set FORAGE_INTEGRATION_TESTS=1 to enable)")
	}
	for _, bin := range []string{"node", "npm"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not on PATH", bin)
		}
	}

	tempDir := t.TempDir()

	cfg := config.Default()
	cfg.StateDir = filepath.Join(tempDir, "state")
	cfg.Store.Backend = "sqlite"
	cfg.Sandbox.Runtime = string(runtime.RuntimeLocal)
	cfg.Sandbox.Install = "npm install --no-audit --no-fund"
	cfg.Sandbox.Start = "npm run start"
	cfg.Templates.Dir = filepath.Join(tempDir, "templates")
	cfg.Templates.Paths = map[string]string{TemplateKey: "node"}

	h := &Harness{
		t:       t,
		tempDir: tempDir,
		cfg:     cfg,
		output:  terminal.NewRecorder(),
	}
	h.writeTemplate(filepath.Join(cfg.Templates.Dir, "node"))
	h.app = app.New(app.WithConfig(cfg))
	if h.app.Runtime == nil {
		t.Skip("local runtime not available")
	}

	t.Cleanup(h.Cleanup)

	return h
}

func (h *Harness) writeTemplate(dir string) {
	h.t.Helper()

	for name, content := range DefaultTemplate() {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			h.t.Fatalf("Failed to create template directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			h.t.Fatalf("Failed to write template file %s: %v", name, err)
		}
	}
}

// Config returns the harness configuration.
func (h *Harness) Config() *config.Config {
	return h.cfg
}

// App returns the application wired to the local runtime.
func (h *Harness) App() *app.App {
	return h.app
}

// Output returns everything the sandboxes printed.
func (h *Harness) Output() *terminal.Recorder {
	return h.output
}

// OpenSession opens workspace id, seeding it from the harness template.
func (h *Harness) OpenSession(id string) *workspace.Session {
	h.t.Helper()

	s, err := h.app.OpenSession(context.Background(), id, TemplateKey, nil)
	if err != nil {
		h.t.Fatalf("Failed to open session %s: %v", id, err)
	}
	return s
}

// Boot starts a sandbox for session and attaches it.
func (h *Harness) Boot(s *workspace.Session) *sandbox.Controller {
	h.t.Helper()

	ctrl, err := h.app.Controller(s.ID(), h.output)
	if err != nil {
		h.t.Fatalf("Failed to create controller: %v", err)
	}
	h.controllers = append(h.controllers, ctrl)
	s.AttachSandbox(ctrl)

	if err := ctrl.Start(context.Background(), s.Tree()); err != nil {
		h.t.Fatalf("Failed to start sandbox: %v\n%s", err, h.output.String())
	}
	return ctrl
}

// WaitReady waits for the development server of ctrl.
func (h *Harness) WaitReady(ctrl *sandbox.Controller, timeout time.Duration) sandbox.Status {
	h.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	st, err := ctrl.WaitReady(ctx)
	if err != nil {
		h.t.Fatalf("Sandbox not ready after %v: %v\n%s", timeout, err, h.output.String())
	}
	return st
}

// Cleanup tears down every booted sandbox and closes the store.
func (h *Harness) Cleanup() {
	for _, ctrl := range h.controllers {
		if err := ctrl.Teardown(); err != nil {
			h.t.Logf("Warning: failed to tear down sandbox: %v", err)
		}
	}
	h.controllers = nil

	if err := h.app.Close(); err != nil {
		h.t.Logf("Warning: failed to close store: %v", err)
	}
}

// DefaultTemplate returns the files of a dependency-free node server that
// prints its URL once listening.
func DefaultTemplate() map[string]string {
	return map[string]string{
		"package.json": `{
  "name": "forage-play-integration",
  "private": true,
  "scripts": {
    "start": "node server.js"
  }
}
`,
		"server.js": `const http = require("http");
const fs = require("fs");

const server = http.createServer((req, res) => {
  res.end(fs.readFileSync(__dirname + "/public/index.html"));
});

server.listen(0, "127.0.0.1", () => {
  console.log("Server listening at http://localhost:" + server.address().port);
});
`,
		"public/index.html": "<h1>integration</h1>\n",
	}
}
