// Package integration provides a test harness for integration tests that
// boot real sandboxes with the local runtime.
//
// Integration tests are skipped unless the FORAGE_INTEGRATION_TESTS
// environment variable is set. These tests require:
//   - node and npm on PATH
//   - a free loopback port for the development server
//
// # Test Harness
//
// Harness manages test environments:
//
//	func TestMyIntegration(t *testing.T) {
//	    h := integration.NewHarness(t) // Skips if env var not set
//
//	    session := h.OpenSession("my-workspace")
//	    ctrl := h.Boot(session)
//	    status := h.WaitReady(ctrl, time.Minute)
//
//	    // Talk to status.ServerURL, edit files, ...
//
//	    // Cleanup is automatic via t.Cleanup
//	}
//
// # Harness Features
//
// The harness provides:
//   - An isolated state directory with a sqlite store
//   - A starter template serving a plain node HTTP server
//   - Sandbox tracking for teardown
//
// Workflow tests in this package run the same paths against the mock
// runtime and always run.
//
// # Running Integration Tests
//
//	FORAGE_INTEGRATION_TESTS=1 go test -v ./internal/integration/...
package integration
