// Package app provides the application context for forage-play.
//
// This package manages application-wide dependencies using the functional
// options pattern, enabling easy testing through dependency injection.
//
// # App Context
//
// The App struct holds core dependencies:
//
//	type App struct {
//	    Config    *config.Config     // Loaded config.toml
//	    Paths     *config.Paths      // State layout
//	    Runtime   runtime.Runtime    // Sandbox runtime
//	    Templates template.Provider  // Starter templates
//	    Audit     *audit.Logger      // Lifecycle events
//	}
//
// The persistence store is opened lazily by Store and released by Close.
//
// # Creating an App
//
//	// Production usage
//	a := app.New(app.WithConfig(cfg))
//	defer a.Close()
//
//	// Testing with custom dependencies
//	a := app.New(
//	    app.WithConfig(cfg),
//	    app.WithRuntime(runtime.NewMockRuntime()),
//	    app.WithStore(store.NewMemory()),
//	)
//
// # Wiring
//
//	session, err := a.OpenSession(ctx, id, templateKey, notifier)
//	ctrl, err := a.Controller(id, sink)
//	session.AttachSandbox(ctrl)
//	err = ctrl.Start(ctx, session.Tree())
package app
