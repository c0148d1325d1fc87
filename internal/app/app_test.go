package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/completion"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/store"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/template"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tree"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.StateDir = t.TempDir()
	cfg.Templates.Dir = filepath.Join(cfg.StateDir, "templates")
	cfg.Sandbox.Runtime = string(runtime.RuntimeMock)
	return cfg
}

func TestNew(t *testing.T) {
	app := New(WithConfig(testConfig(t)))

	if app.Config == nil || app.Paths == nil {
		t.Fatal("Config and Paths should be set")
	}
	if app.Templates == nil {
		t.Error("Templates should default to the template directory")
	}
	if app.Audit == nil {
		t.Error("Audit should not be nil")
	}
	if app.Runtime == nil || app.Runtime.Name() != "mock" {
		t.Errorf("Runtime = %v, want the configured mock runtime", app.Runtime)
	}
}

func TestNew_WithPaths(t *testing.T) {
	customPaths := &config.Paths{
		StateDir:  "/custom/state",
		StoreDir:  "/custom/state/store",
		AuditDir:  "/custom/state/audit",
		WorkDir:   "/custom/state/sandboxes",
		Templates: "/custom/templates",
	}

	app := New(WithConfig(testConfig(t)), WithPaths(customPaths))

	if app.Paths != customPaths {
		t.Error("WithPaths did not set custom paths")
	}
}

func TestNew_MultipleOptions(t *testing.T) {
	mockRuntime := runtime.NewMockRuntime()
	mem := store.NewMemory()
	templates := template.NewFSProvider(nil, nil)

	app := New(
		WithConfig(testConfig(t)),
		WithRuntime(mockRuntime),
		WithStore(mem),
		WithTemplates(templates),
	)

	if app.Runtime != mockRuntime {
		t.Error("Runtime not set correctly")
	}
	if app.Templates != templates {
		t.Error("Templates not set correctly")
	}
	s, err := app.Store()
	if err != nil {
		t.Fatalf("Store() error: %v", err)
	}
	if s != mem {
		t.Error("Store not set correctly")
	}
}

func TestStore_OpensConfiguredBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Backend = "sqlite"
	app := New(WithConfig(cfg))
	defer app.Close()

	s, err := app.Store()
	if err != nil {
		t.Fatalf("Store() error: %v", err)
	}
	again, err := app.Store()
	if err != nil || again != s {
		t.Error("Store() should return the same store on later calls")
	}

	ctx := context.Background()
	root := tree.NewRoot(&tree.File{Name: "index", Extension: "js", Content: "x"})
	if err := s.Save(ctx, "w", root); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	if err := app.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := app.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

func TestOpenSession_SeedsFromTemplate(t *testing.T) {
	cfg := testConfig(t)
	templates := template.NewFSProvider(testTemplateFS(), map[string]string{"REACT": "react"})
	app := New(WithConfig(cfg), WithStore(store.NewMemory()), WithTemplates(templates))

	s, err := app.OpenSession(context.Background(), "w1", "REACT", nil)
	if err != nil {
		t.Fatalf("OpenSession() error: %v", err)
	}
	if _, ok := tree.Lookup(s.Tree(), "src/index.js"); !ok {
		t.Error("session tree should come from the template")
	}
}

func testTemplateFS() fstest.MapFS {
	return fstest.MapFS{
		"react/package.json":  {Data: []byte(`{"name":"react"}`)},
		"react/src/index.js":   {Data: []byte("console.log('hi')")},
		"react/node_modules/x": {Data: []byte("ignored")},
	}
}

func TestController(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sandbox.Install = "pnpm install"
	app := New(WithConfig(cfg))

	ctrl, err := app.Controller("w1", nil)
	if err != nil {
		t.Fatalf("Controller() error: %v", err)
	}
	if ctrl.Status().Stage.String() != "idle" {
		t.Errorf("Stage = %v, want idle", ctrl.Status().Stage)
	}

	app.Runtime = nil
	if _, err := app.Controller("w1", nil); err == nil {
		t.Error("Controller() without a runtime should fail")
	}
}

func TestCompletion(t *testing.T) {
	cfg := testConfig(t)
	app := New(WithConfig(cfg))

	if _, err := app.Completion(); !errors.Is(err, completion.ErrNoService) {
		t.Errorf("Completion() error = %v, want ErrNoService", err)
	}

	cfg.Completion.URL = "http://localhost:9/complete"
	if c, err := app.Completion(); err != nil || c == nil {
		t.Errorf("Completion() = %v, %v", c, err)
	}
}

func TestSetDefault(t *testing.T) {
	original := Default
	defer func() { Default = original }()

	customApp := New(WithConfig(testConfig(t)))
	SetDefault(customApp)

	if Default != customApp {
		t.Error("SetDefault did not update Default")
	}
}

func TestResetDefault(t *testing.T) {
	original := Default
	defer func() { Default = original }()

	customApp := New(WithConfig(testConfig(t)))
	SetDefault(customApp)

	ResetDefault()

	if Default == customApp {
		t.Error("ResetDefault did not create new Default")
	}
	if Default.Paths == nil {
		t.Error("ResetDefault should create app with default paths")
	}
}

func TestClose_LeavesInjectedStore(t *testing.T) {
	mem := store.NewMemory()
	app := New(WithConfig(testConfig(t)), WithStore(mem))

	if err := app.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	s, err := app.Store()
	if err != nil {
		t.Fatalf("Store() error: %v", err)
	}
	if s != mem {
		t.Error("Close() should keep an injected store")
	}
}
