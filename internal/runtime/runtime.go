// Package runtime defines the sandbox runtime interface for forage-play.
// A runtime boots isolated sandboxes that expose a filesystem, can run
// processes and announce when a development server starts listening.
package runtime

import (
	"context"
	"errors"
	"io"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/transform"
)

// ErrTornDown is returned by Handle and Process operations after the
// sandbox was torn down.
var ErrTornDown = errors.New("sandbox torn down")

// ReadyEvent announces a server listening inside the sandbox.
type ReadyEvent struct {
	Port int
	URL  string
}

// Runtime is the interface that sandbox backends must implement.
// All methods should be safe for concurrent use.
type Runtime interface {
	// Name returns the runtime identifier (e.g., "local", "mock")
	Name() string

	// Boot starts a new sandbox
	Boot(ctx context.Context) (Handle, error)
}

// Handle is a live sandbox.
type Handle interface {
	// ReadFile reads a file; a missing file yields an error matching
	// fs.ErrNotExist
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// WriteFile writes a file; the parent directory must exist
	WriteFile(ctx context.Context, path string, data []byte) error

	// MkdirAll creates a directory and any missing parents
	MkdirAll(ctx context.Context, path string) error

	// Mount writes a whole mapping into the sandbox root
	Mount(ctx context.Context, m transform.Mapping) error

	// Spawn starts a process in the sandbox root
	Spawn(ctx context.Context, name string, args ...string) (Process, error)

	// OnServerReady registers fn for every server-ready event until
	// cancel is called
	OnServerReady(fn func(ReadyEvent)) (cancel func())

	// Teardown stops all processes and releases the sandbox. Later calls
	// on the handle fail with ErrTornDown.
	Teardown() error
}

// Process is a process running inside a sandbox.
type Process interface {
	// Output streams combined stdout and stderr until the process exits.
	// It must be drained for the process to make progress.
	Output() io.Reader

	// Wait blocks until the process exits and returns its exit code
	Wait(ctx context.Context) (int, error)

	// Kill terminates the process
	Kill() error
}
