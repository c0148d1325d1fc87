package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/transform"
)

// LocalRuntime runs sandboxes as host processes inside a private working
// directory. Every Boot gets a fresh directory under BaseDir.
type LocalRuntime struct {
	// BaseDir holds sandbox working directories (os.TempDir when empty)
	BaseDir string

	// Env is appended to the host environment of spawned processes
	Env []string

	// KeepWorkDir leaves the working directory on disk after Teardown
	KeepWorkDir bool
}

// NewLocalRuntime creates a local runtime rooted at baseDir.
func NewLocalRuntime(baseDir string) *LocalRuntime {
	return &LocalRuntime{BaseDir: baseDir}
}

// Name returns the runtime identifier
func (r *LocalRuntime) Name() string {
	return string(RuntimeLocal)
}

// Boot creates the working directory for a new sandbox.
func (r *LocalRuntime) Boot(ctx context.Context) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.BaseDir != "" {
		if err := os.MkdirAll(r.BaseDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sandbox base dir: %w", err)
		}
	}
	dir, err := os.MkdirTemp(r.BaseDir, "forage-play-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox dir: %w", err)
	}
	logging.Debug("booted local sandbox", "dir", dir)

	return &localHandle{
		root:       dir,
		env:        append(os.Environ(), r.Env...),
		removeRoot: !r.KeepWorkDir,
		procs:      make(map[*localProcess]struct{}),
	}, nil
}

// Dir returns the host directory backing h, or "" for non-local handles.
func Dir(h Handle) string {
	if lh, ok := h.(*localHandle); ok {
		return lh.root
	}
	return ""
}

type localHandle struct {
	root       string
	env        []string
	removeRoot bool
	ready      readyBus

	mu     sync.Mutex
	closed bool
	procs  map[*localProcess]struct{}
}

// resolve maps a sandbox path to a host path that cannot escape root.
func (h *localHandle) resolve(p string) (string, error) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return "", ErrTornDown
	}
	return securejoin.SecureJoin(h.root, p)
}

func (h *localHandle) ReadFile(ctx context.Context, path string) ([]byte, error) {
	p, err := h.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

func (h *localHandle) WriteFile(ctx context.Context, path string, data []byte) error {
	p, err := h.resolve(path)
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

func (h *localHandle) MkdirAll(ctx context.Context, path string) error {
	p, err := h.resolve(path)
	if err != nil {
		return err
	}
	return os.MkdirAll(p, 0o755)
}

func (h *localHandle) Mount(ctx context.Context, m transform.Mapping) error {
	return mountMapping(ctx, h, m)
}

func (h *localHandle) Spawn(ctx context.Context, name string, args ...string) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(name, args...)
	cmd.Dir = h.root
	cmd.Env = h.env
	configureProcAttr(cmd)

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrTornDown
	}
	if err := cmd.Start(); err != nil {
		h.mu.Unlock()
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}
	proc := &localProcess{cmd: cmd, done: make(chan struct{})}
	proc.out = io.TeeReader(pr, &lineWriter{fn: func(line string) {
		if ev, ok := DetectReady(line); ok {
			h.ready.publish(ev)
		}
	}})
	h.procs[proc] = struct{}{}
	h.mu.Unlock()

	logging.Debug("spawned sandbox process", "cmd", name, "args", args, "pid", cmd.Process.Pid)

	go func() {
		err := cmd.Wait()
		proc.code, proc.err = exitCode(err)
		pw.Close()
		close(proc.done)

		h.mu.Lock()
		delete(h.procs, proc)
		h.mu.Unlock()
	}()

	return proc, nil
}

func (h *localHandle) OnServerReady(fn func(ReadyEvent)) func() {
	return h.ready.subscribe(fn)
}

func (h *localHandle) Teardown() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	procs := make([]*localProcess, 0, len(h.procs))
	for p := range h.procs {
		procs = append(procs, p)
	}
	h.mu.Unlock()

	for _, p := range procs {
		if err := p.Kill(); err != nil {
			logging.Debug("failed to kill sandbox process", "pid", p.cmd.Process.Pid, "error", err)
		}
	}
	h.ready.clear()

	if h.removeRoot {
		if err := os.RemoveAll(h.root); err != nil {
			return fmt.Errorf("failed to remove sandbox dir: %w", err)
		}
	}
	logging.Debug("tore down local sandbox", "dir", h.root)
	return nil
}

type localProcess struct {
	cmd  *exec.Cmd
	out  io.Reader
	done chan struct{}
	code int
	err  error
}

func (p *localProcess) Output() io.Reader { return p.out }

func (p *localProcess) Wait(ctx context.Context) (int, error) {
	select {
	case <-p.done:
		return p.code, p.err
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

func (p *localProcess) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	return killProcess(p.cmd)
}

func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
