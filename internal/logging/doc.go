// Package logging provides logging utilities for forage-play.
//
// Two kinds of output live here:
//   - Debug logging: structured logs via slog, configured once by Setup
//   - User output: short status lines for people at a terminal
//
// # Debug Logging
//
//	logging.Debug("stage changed", "workspace", id, "stage", stage)
//	logging.Warn("persist failed", "workspace", id, "error", err)
//
// # User Output
//
//	logging.UserInfo("Booting sandbox for %s...", id)
//	logging.UserSuccess("Saved %d file(s)", n)
//	logging.UserWarning("No sandbox running; %s saved to store only", path)
//	logging.UserError("Save failed: %v", err)
//
// UserInfo and UserSuccess write to Stdout, UserWarning and UserError to
// Stderr. Both writers can be swapped (the boot view does this while it owns
// the terminal).
package logging
