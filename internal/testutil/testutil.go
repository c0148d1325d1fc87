// Package testutil provides test utilities for packages that wire the
// whole engine together.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/store"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/template"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tree"
)

// TestEnv holds the test environment
type TestEnv struct {
	T       *testing.T
	TmpDir  string
	Config  *config.Config
	Paths   *config.Paths
	Runtime *runtime.MockRuntime
	Store   *store.Memory
	App     *app.App
	cleanup func()
}

// NewTestEnv creates a test environment with a mock runtime, an in-memory
// store and the fixture templates, and installs it as app.Default until
// the test ends.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	tmpDir := t.TempDir()

	cfg := config.Default()
	cfg.StateDir = filepath.Join(tmpDir, "state")
	cfg.Sandbox.Runtime = string(runtime.RuntimeMock)
	cfg.Templates.Dir = filepath.Join(tmpDir, "templates")
	cfg.Templates.Paths = TemplatePaths

	paths := cfg.Paths()
	if err := paths.EnsureDirs(); err != nil {
		t.Fatalf("Failed to create state directories: %v", err)
	}

	mockRuntime := runtime.NewMockRuntime()
	mem := store.NewMemory()

	testApp := app.New(
		app.WithConfig(cfg),
		app.WithPaths(paths),
		app.WithRuntime(mockRuntime),
		app.WithStore(mem),
		app.WithTemplates(template.NewFSProvider(Templates(), TemplatePaths)),
	)

	original := app.Default
	app.SetDefault(testApp)

	env := &TestEnv{
		T:       t,
		TmpDir:  tmpDir,
		Config:  cfg,
		Paths:   paths,
		Runtime: mockRuntime,
		Store:   mem,
		App:     testApp,
		cleanup: func() {
			app.SetDefault(original)
		},
	}
	t.Cleanup(env.Cleanup)

	return env
}

// Cleanup restores the original app default
func (e *TestEnv) Cleanup() {
	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}
}

// AddWorkspace stores root under id.
func (e *TestEnv) AddWorkspace(id string, root *tree.Folder) {
	e.T.Helper()

	if err := e.Store.Save(context.Background(), id, root); err != nil {
		e.T.Fatalf("Failed to save workspace %s: %v", id, err)
	}
}

// AddPlayground stores the playground fixture under id.
func (e *TestEnv) AddPlayground(id string) *tree.Folder {
	e.T.Helper()

	root, err := Playground()
	if err != nil {
		e.T.Fatalf("Failed to load playground fixture: %v", err)
	}
	e.AddWorkspace(id, root)
	return root
}

// GetWorkspace loads a stored workspace, or nil.
func (e *TestEnv) GetWorkspace(id string) *tree.Folder {
	e.T.Helper()

	root, err := e.Store.Load(context.Background(), id)
	if err != nil {
		return nil
	}
	return root
}

// WorkspaceExists checks if a workspace is stored
func (e *TestEnv) WorkspaceExists(id string) bool {
	return e.GetWorkspace(id) != nil
}

// CreateDir creates a directory under the test's temp dir.
func (e *TestEnv) CreateDir(name string) string {
	e.T.Helper()

	path := filepath.Join(e.TmpDir, name)
	if err := os.MkdirAll(path, 0755); err != nil {
		e.T.Fatalf("Failed to create directory: %v", err)
	}
	return path
}
