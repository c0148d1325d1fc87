// Package app provides the application context for forage-play.
// It allows dependency injection for testing.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/completion"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/sandbox"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/store"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/template"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/terminal"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/workspace"
)

// App holds the application dependencies
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	// Paths holds the state layout derived from Config
	Paths *config.Paths

	// Runtime boots sandboxes; nil when none is available
	Runtime runtime.Runtime

	// Templates materializes starter trees
	Templates template.Provider

	// Audit records lifecycle events
	Audit *audit.Logger

	storeMu   sync.Mutex
	store     store.Store
	ownsStore bool
}

// Option is a function that configures the App
type Option func(*App)

// WithConfig sets the configuration
func WithConfig(cfg *config.Config) Option {
	return func(a *App) {
		a.Config = cfg
	}
}

// WithPaths sets custom paths
func WithPaths(paths *config.Paths) Option {
	return func(a *App) {
		a.Paths = paths
	}
}

// WithRuntime sets a custom runtime
func WithRuntime(r runtime.Runtime) Option {
	return func(a *App) {
		a.Runtime = r
	}
}

// WithStore sets the persistence store. The caller keeps ownership:
// Close leaves it open.
func WithStore(s store.Store) Option {
	return func(a *App) {
		a.store = s
	}
}

// WithTemplates sets a custom template provider
func WithTemplates(p template.Provider) Option {
	return func(a *App) {
		a.Templates = p
	}
}

// WithAudit sets a custom audit logger
func WithAudit(l *audit.Logger) Option {
	return func(a *App) {
		a.Audit = l
	}
}

// New creates a new App with the given options.
// Dependencies not provided are built from the configuration. The store is
// opened on first use.
func New(opts ...Option) *App {
	app := &App{}
	for _, opt := range opts {
		opt(app)
	}

	if app.Config == nil {
		app.Config = config.Default()
	}
	if app.Paths == nil {
		app.Paths = app.Config.Paths()
	}
	if app.Templates == nil {
		app.Templates = template.NewDirProvider(app.Paths.Templates, app.Config.Templates.Paths)
	}
	if app.Audit == nil {
		app.Audit = audit.NewLogger(app.Paths.AuditDir)
	}

	if app.Runtime == nil {
		rt, err := runtime.New(&runtime.Config{
			Type:        runtime.RuntimeType(app.Config.Sandbox.Runtime),
			BaseDir:     app.Paths.WorkDir,
			KeepWorkDir: app.Config.Sandbox.KeepWorkDir,
		})
		if err != nil {
			logging.Debug("failed to initialize runtime", "error", err)
		} else {
			app.Runtime = rt
		}
	}

	return app
}

// Store returns the persistence store, opening it on first use.
func (a *App) Store() (store.Store, error) {
	a.storeMu.Lock()
	defer a.storeMu.Unlock()

	if a.store != nil {
		return a.store, nil
	}
	if err := a.Paths.EnsureDirs(); err != nil {
		return nil, err
	}
	s, err := store.Open(store.Config{
		Backend:   store.Backend(a.Config.Store.Backend),
		Path:      a.Config.StorePath(),
		DSN:       a.Config.Store.DSN,
		CacheSize: a.Config.Store.CacheSize,
	})
	if err != nil {
		return nil, err
	}
	a.store = s
	a.ownsStore = true
	return s, nil
}

// OpenSession loads workspace id, seeding it from templateKey when the
// store has nothing for it.
func (a *App) OpenSession(ctx context.Context, id, templateKey string, notifier workspace.Notifier) (*workspace.Session, error) {
	s, err := a.Store()
	if err != nil {
		return nil, err
	}
	return workspace.Open(ctx, id, s, a.Templates, workspace.Options{
		TemplateKey: templateKey,
		Notifier:    notifier,
		Audit:       a.Audit,
	})
}

// Controller builds a sandbox controller for workspace id with the
// configured commands.
func (a *App) Controller(id string, sink terminal.Sink) (*sandbox.Controller, error) {
	if a.Runtime == nil {
		return nil, fmt.Errorf("no sandbox runtime available (configured: %q)", a.Config.Sandbox.Runtime)
	}
	install, err := a.Config.InstallCommand()
	if err != nil {
		return nil, err
	}
	start, err := a.Config.StartCommand()
	if err != nil {
		return nil, err
	}

	opts := []sandbox.Option{
		sandbox.WithWorkspace(id),
		sandbox.WithAuditLogger(a.Audit),
		sandbox.WithCommands(install, start),
	}
	if a.Config.Sandbox.Manifest != "" {
		opts = append(opts, sandbox.WithManifest(a.Config.Sandbox.Manifest))
	}
	if sink != nil {
		opts = append(opts, sandbox.WithSink(sink))
	}
	return sandbox.NewController(a.Runtime, opts...), nil
}

// Completion returns a client for the configured completion service.
func (a *App) Completion() (*completion.Client, error) {
	if a.Config.Completion.URL == "" {
		return nil, completion.ErrNoService
	}
	return completion.NewClient(a.Config.Completion.URL, a.Config.Completion.Timeout), nil
}

// Close releases the store if the App opened it.
func (a *App) Close() error {
	a.storeMu.Lock()
	defer a.storeMu.Unlock()

	if a.store == nil || !a.ownsStore {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	a.ownsStore = false
	return err
}

// Default is the default application instance
var Default = New()

// SetDefault sets the default application instance (used for testing)
func SetDefault(app *App) {
	Default = app
}

// ResetDefault resets to the default application instance
func ResetDefault() {
	Default = New()
}
