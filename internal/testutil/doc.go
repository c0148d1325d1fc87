// Package testutil provides test fixtures and a wired test environment.
//
// # Fixtures
//
// Fixtures are embedded using go:embed:
//
//	fixtures/valid_config.toml
//	fixtures/invalid_config.toml
//	fixtures/playground.json   // a persisted workspace tree
//	templates/react, templates/vue
//
//	cfg, err := testutil.ValidConfig()
//	root, err := testutil.Playground()
//	provider := template.NewFSProvider(testutil.Templates(), testutil.TemplatePaths)
//
// # Test Environment
//
// NewTestEnv builds an app.App over a mock runtime, an in-memory store and
// the fixture templates, and makes it app.Default for the test:
//
//	env := testutil.NewTestEnv(t)
//	env.AddPlayground("demo")
//	session, err := env.App.OpenSession(ctx, "demo", "", nil)
package testutil
