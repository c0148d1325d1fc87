// Package errors provides typed errors with exit codes for forage-play.
//
// ForageError wraps a message, an optional cause and the exit code the CLI
// should terminate with:
//
//	ExitSuccess           = 0  // Success
//	ExitGeneralError      = 1  // General/unknown errors
//	ExitWorkspaceNotFound = 2  // No persisted tree for the workspace
//	ExitTemplateNotFound  = 3  // Template key cannot be materialized
//	ExitPathNotFound      = 4  // Tree path does not resolve
//	ExitNameCollision     = 5  // Sibling with the same name already exists
//	ExitSandboxFailed     = 6  // A sandbox boot stage failed
//	ExitConfigError       = 7  // Configuration error
//	ExitPersistence       = 8  // Store load/save failed
//
// Constructors keep messages consistent:
//
//	errors.PathNotFound("src/app.js")
//	errors.SandboxFailed("install", err)
//
// HasCode matches an error chain by code, which is how callers tell a
// missing path from a collision without string matching:
//
//	if errors.HasCode(err, errors.ExitPathNotFound) { ... }
package errors
