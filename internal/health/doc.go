// Package health checks that the pieces a workspace session depends on
// are usable: the store, the sandbox runtime, the starter templates and
// the completion service.
//
// # Health Status
//
// Each check reports a Status:
//
//	StatusHealthy   - component works
//	StatusDegraded  - optional component unavailable (completion service)
//	StatusUnhealthy - sessions cannot run (store or runtime broken)
//	StatusSkipped   - component not configured
//
// # Check Functions
//
// Individual checks:
//
//	health.CheckStore(ctx, s)              // list workspaces
//	health.CheckRuntime(ctx, rt, commands) // boot and tear down a sandbox
//	health.CheckTemplates(ctx, p)          // materialize every template
//	health.CheckCompletion(ctx, url)       // dial the service
//
// Combined checks:
//
//	report := health.Check(ctx, opts)
//	// report.Results, report.Summary()
package health
