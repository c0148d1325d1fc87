// Package sandbox drives a workspace's sandbox through its setup stages
// and reports progress to observers.
//
// # Controller
//
// A Controller owns at most one live sandbox:
//
//	ctrl := sandbox.NewController(rt,
//	    sandbox.WithWorkspace(id),
//	    sandbox.WithSink(term),
//	)
//	if err := ctrl.Start(ctx, root); err != nil {
//	    return err
//	}
//	st, err := ctrl.WaitReady(ctx)
//
// # Setup Flow
//
// Start runs these steps, publishing a Status at each one:
//  1. Boots a sandbox from the runtime
//  2. Reconnects if the manifest and install marker are already present
//  3. Transforms the tree into a mount mapping
//  4. Mounts the mapping
//  5. Runs the install command and writes the install marker
//  6. Spawns the start command
//
// Readiness is level-triggered: every server-ready event moves the status
// to StageReady, including repeats after a restart of the dev server.
//
// A failed setup stays failed until ForceRestart. Teardown advances the
// controller's generation so work belonging to the old sandbox never
// publishes again.
package sandbox
