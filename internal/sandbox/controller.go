package sandbox

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"
	"time"

	shellquote "github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/audit"
	ferrors "github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/metrics"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/transform"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tree"
)

var (
	// ErrSetupInProgress is returned by Start while a setup is running.
	ErrSetupInProgress = errors.New("sandbox setup already in progress")

	// ErrNoSandbox is returned by file operations when no sandbox is booted.
	ErrNoSandbox = errors.New("no sandbox running")
)

// Controller drives one sandbox through boot, mount, install and start,
// and keeps a live Status that observers can follow.
//
// Every boot belongs to a generation. Teardown and ForceRestart advance
// the generation; work still running for an older generation stops at its
// next step and never publishes.
type Controller struct {
	rt   runtime.Runtime
	opts options

	// pubMu serializes transitions so listeners see them in order.
	pubMu sync.Mutex

	mu          sync.Mutex
	gen         int
	status      Status
	lastErr     error
	changed     chan struct{}
	listeners   map[int]func(Status)
	nextID      int
	handle      runtime.Handle
	inProgress  bool
	completed   bool
	cancelReady func()
	stageSince  time.Time
}

// NewController creates a controller for rt.
func NewController(rt runtime.Runtime, opts ...Option) *Controller {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Controller{
		rt:        rt,
		opts:      o,
		changed:   make(chan struct{}),
		listeners: make(map[int]func(Status)),
	}
}

// Status returns the current snapshot.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Handle returns the live sandbox, or nil.
func (c *Controller) Handle() runtime.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

// Subscribe calls fn with the current status and then with every change
// until cancel is called. fn runs synchronously and must not call Start,
// ForceRestart or Teardown.
func (c *Controller) Subscribe(fn func(Status)) (cancel func()) {
	c.pubMu.Lock()
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	current := c.status
	c.mu.Unlock()
	fn(current)
	c.pubMu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// WaitReady blocks until a server is ready or setup fails.
func (c *Controller) WaitReady(ctx context.Context) (Status, error) {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	for {
		c.mu.Lock()
		st, ch, lastErr, current := c.status, c.changed, c.lastErr, c.gen == gen
		c.mu.Unlock()

		if !current {
			return st, runtime.ErrTornDown
		}
		switch st.Stage {
		case StageReady:
			return st, nil
		case StageFailed:
			return st, lastErr
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

// Start boots a sandbox and runs setup for root. It returns once the start
// command has been spawned (or the sandbox was reused); readiness arrives
// later through the status. Start returns ErrSetupInProgress while another
// setup runs, does nothing once setup completed and returns the failure
// again after a failed setup (use ForceRestart).
func (c *Controller) Start(ctx context.Context, root *tree.Folder) error {
	c.pubMu.Lock()
	c.mu.Lock()
	if c.inProgress {
		c.mu.Unlock()
		c.pubMu.Unlock()
		return ErrSetupInProgress
	}
	if c.completed {
		c.mu.Unlock()
		c.pubMu.Unlock()
		logging.Debug("sandbox already set up", "workspace", c.opts.workspace)
		return nil
	}
	if c.status.Stage == StageFailed {
		err := c.lastErr
		c.mu.Unlock()
		c.pubMu.Unlock()
		return err
	}
	c.inProgress = true
	c.lastErr = nil
	gen := c.gen
	c.mu.Unlock()
	c.pubMu.Unlock()

	c.logEvent(audit.EventBoot, "runtime="+c.rt.Name())
	if !c.transition(gen, func() { c.status = Status{Stage: StageBooting} }) {
		return runtime.ErrTornDown
	}

	return c.boot(ctx, gen, root)
}

// ForceRestart tears down the current sandbox and boots a new one.
func (c *Controller) ForceRestart(ctx context.Context, root *tree.Folder) error {
	c.logEvent(audit.EventRestart, "")
	if err := c.Teardown(); err != nil {
		logging.Warn("teardown before restart failed", "workspace", c.opts.workspace, "error", err)
	}
	c.opts.sink.Clear()
	return c.Start(ctx, root)
}

// Teardown releases the sandbox and resets the controller to idle.
func (c *Controller) Teardown() error {
	c.pubMu.Lock()
	c.mu.Lock()
	c.gen++
	h := c.handle
	cancelReady := c.cancelReady
	c.handle = nil
	c.cancelReady = nil
	c.inProgress = false
	c.completed = false
	c.lastErr = nil
	c.status = Status{Stage: StageIdle}
	snap, fns := c.snapshotLocked()
	c.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
	c.pubMu.Unlock()

	if cancelReady != nil {
		cancelReady()
	}
	if h == nil {
		return nil
	}
	c.logEvent(audit.EventTeardown, "")
	if err := h.Teardown(); err != nil {
		return ferrors.SandboxFailed("teardown", err)
	}
	return nil
}

// WriteFile writes content at filePath inside the sandbox, creating the
// parent directory first.
func (c *Controller) WriteFile(ctx context.Context, filePath, content string) error {
	h := c.Handle()
	if h == nil {
		return ErrNoSandbox
	}

	filePath = cleanPath(filePath)
	if dir := path.Dir(filePath); dir != "." {
		if err := h.MkdirAll(ctx, dir); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := h.WriteFile(ctx, filePath, []byte(content)); err != nil {
		return fmt.Errorf("failed to write %s: %w", filePath, err)
	}
	logging.Debug("wrote file to sandbox", "workspace", c.opts.workspace, "path", filePath, "bytes", len(content))
	return nil
}

// MkdirAll creates a directory inside the sandbox.
func (c *Controller) MkdirAll(ctx context.Context, dir string) error {
	h := c.Handle()
	if h == nil {
		return ErrNoSandbox
	}
	return h.MkdirAll(ctx, cleanPath(dir))
}

// cleanPath makes p relative to the sandbox root.
func cleanPath(p string) string {
	return strings.TrimLeft(path.Clean("/"+p), "/")
}

func (c *Controller) boot(ctx context.Context, gen int, root *tree.Folder) error {
	handle, err := c.rt.Boot(ctx)
	if err != nil {
		return c.fail(gen, StageBooting, fmt.Errorf("failed to boot sandbox: %w", err))
	}
	if !c.attach(gen, handle) {
		_ = handle.Teardown()
		return runtime.ErrTornDown
	}

	reused, err := c.reuse(ctx, gen, handle)
	if err != nil {
		return c.fail(gen, StageBooting, err)
	}
	if reused {
		return nil
	}

	if err := c.enter(gen, StageTransforming, 1, "Transforming template files..."); err != nil {
		return err
	}
	mapping := transform.Transform(root)

	if err := c.enter(gen, StageMounting, 2, "Mounting files..."); err != nil {
		return err
	}
	if err := handle.Mount(ctx, mapping); err != nil {
		return c.fail(gen, StageMounting, fmt.Errorf("failed to mount files: %w", err))
	}
	c.opts.sink.Write("Files mounted successfully.\r\n")

	if err := c.enter(gen, StageInstalling, 3, "Installing dependencies..."); err != nil {
		return err
	}
	code, err := c.run(ctx, handle, c.opts.install)
	if err != nil {
		return c.fail(gen, StageInstalling, fmt.Errorf("failed to run %s: %w", shellquote.Join(c.opts.install...), err))
	}
	if code != 0 {
		return c.fail(gen, StageInstalling, fmt.Errorf("%s failed with exit code %d", shellquote.Join(c.opts.install...), code))
	}
	c.opts.sink.Write("Dependencies installed successfully.\r\n")
	c.markInstalled(ctx, handle)

	if err := c.enter(gen, StageStarting, 4, "Starting development server..."); err != nil {
		return err
	}
	c.listenReady(gen, handle)
	proc, err := handle.Spawn(ctx, c.opts.start[0], c.opts.start[1:]...)
	if err != nil {
		return c.fail(gen, StageStarting, fmt.Errorf("failed to start development server: %w", err))
	}
	go c.watchStart(gen, proc)
	return nil
}

// reuse reattaches to a sandbox whose project was mounted and installed
// by an earlier setup. A manifest without the install marker means that
// setup never finished, so the full sequence runs again.
func (c *Controller) reuse(ctx context.Context, gen int, h runtime.Handle) (bool, error) {
	manifest, err := h.ReadFile(ctx, c.opts.manifest)
	if err != nil {
		if errors.Is(err, runtime.ErrTornDown) {
			return false, err
		}
		if !errors.Is(err, fs.ErrNotExist) {
			logging.Debug("manifest check failed", "workspace", c.opts.workspace, "error", err)
		}
		return false, nil
	}
	if len(bytes.TrimSpace(manifest)) == 0 {
		return false, nil
	}

	if _, err := h.ReadFile(ctx, c.opts.marker); err != nil {
		logging.Warn("found manifest without completed install", "workspace", c.opts.workspace, "manifest", c.opts.manifest)
		c.opts.sink.Write(fmt.Sprintf("Found %s without a completed install, running full setup...\r\n", c.opts.manifest))
		return false, nil
	}

	c.listenReady(gen, h)
	ok := c.transition(gen, func() {
		c.inProgress = false
		c.completed = true
		c.status.Stage = StageReadyIdle
		c.status.Step = TotalSteps
		c.status.Reused = true
	})
	if !ok {
		return false, runtime.ErrTornDown
	}
	c.opts.sink.Write("Reconnecting to existing sandbox instance...\r\n")
	metrics.RecordBoot("reused")
	c.logEvent(audit.EventReuse, c.opts.manifest)
	return true, nil
}

func (c *Controller) markInstalled(ctx context.Context, h runtime.Handle) {
	if dir := path.Dir(c.opts.marker); dir != "." {
		if err := h.MkdirAll(ctx, dir); err != nil {
			logging.Warn("failed to create install marker dir", "workspace", c.opts.workspace, "error", err)
			return
		}
	}
	stamp := []byte(time.Now().UTC().Format(time.RFC3339) + "\n")
	if err := h.WriteFile(ctx, c.opts.marker, stamp); err != nil {
		logging.Warn("failed to write install marker", "workspace", c.opts.workspace, "error", err)
	}
}

// run spawns argv, streams its output to the sink and waits for it.
func (c *Controller) run(ctx context.Context, h runtime.Handle, argv []string) (int, error) {
	proc, err := h.Spawn(ctx, argv[0], argv[1:]...)
	if err != nil {
		return -1, err
	}
	c.pump(proc.Output())
	return proc.Wait(ctx)
}

// pump forwards process output to the sink one line at a time, in the
// order it was produced. A trailing partial line is flushed when the
// stream ends.
func (c *Controller) pump(r io.Reader) {
	br := bufio.NewReaderSize(r, 4096)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			c.opts.sink.Write(line)
		}
		if err != nil {
			return
		}
	}
}

func (c *Controller) watchStart(gen int, proc runtime.Process) {
	c.pump(proc.Output())
	code, err := proc.Wait(context.Background())

	c.mu.Lock()
	current, stage := c.gen == gen, c.status.Stage
	c.mu.Unlock()
	if !current {
		return
	}

	if stage == StageStarting {
		if err == nil {
			err = fmt.Errorf("%s exited with code %d before the server was ready", shellquote.Join(c.opts.start...), code)
		}
		_ = c.fail(gen, StageStarting, err)
		return
	}
	logging.Warn("development server exited", "workspace", c.opts.workspace, "code", code, "error", err)
	c.opts.sink.Write(fmt.Sprintf("Development server exited with code %d\r\n", code))
}

func (c *Controller) listenReady(gen int, h runtime.Handle) {
	cancel := h.OnServerReady(func(ev runtime.ReadyEvent) { c.onReady(gen, ev) })

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		cancel()
		return
	}
	prev := c.cancelReady
	c.cancelReady = cancel
	c.mu.Unlock()
	if prev != nil {
		prev()
	}
}

// onReady handles every server-ready event; repeats republish the status.
func (c *Controller) onReady(gen int, ev runtime.ReadyEvent) {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	c.mu.Lock()
	current, st := c.gen == gen, c.status
	c.mu.Unlock()
	if !current || st.Stage == StageFailed {
		return
	}

	first := st.Stage != StageReady
	if first || st.ServerURL != ev.URL {
		c.opts.sink.Write(fmt.Sprintf("Development server is running at: %s\r\n", ev.URL))
		c.logEvent(audit.EventReady, ev.URL)
	}
	if first {
		metrics.RecordBoot("ready")
	}
	metrics.RecordReadyEvent()

	c.apply(gen, func() {
		c.inProgress = false
		c.completed = true
		c.status.Stage = StageReady
		c.status.Step = TotalSteps
		c.status.ServerURL = ev.URL
		c.status.Port = ev.Port
		c.status.Err = ""
	})
}

func (c *Controller) attach(gen int, h runtime.Handle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.handle = h
	return true
}

// enter moves to stage and writes msg to the sink.
func (c *Controller) enter(gen int, stage Stage, step int, msg string) error {
	ok := c.transition(gen, func() {
		c.status.Stage = stage
		c.status.Step = step
	})
	if !ok {
		return runtime.ErrTornDown
	}
	c.opts.sink.Write(msg + "\r\n")
	c.logEvent(audit.EventStage, stage.String())
	return nil
}

// fail moves to StageFailed and returns the error for the caller. A
// superseded generation returns ErrTornDown without touching the status.
func (c *Controller) fail(gen int, stage Stage, cause error) error {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	c.mu.Lock()
	stale := c.gen != gen
	c.mu.Unlock()
	if stale {
		return runtime.ErrTornDown
	}

	err := ferrors.SandboxFailed(stage.String(), cause)
	logging.Error("sandbox setup failed", "workspace", c.opts.workspace, "stage", stage.String(), "error", cause)
	c.opts.sink.Write(fmt.Sprintf("Error during setup: %s\r\n", cause))
	metrics.RecordBoot("failed")
	c.logEvent(audit.EventFailed, stage.String()+": "+cause.Error())

	c.apply(gen, func() {
		c.inProgress = false
		c.lastErr = err
		c.status.Stage = StageFailed
		c.status.Err = cause.Error()
	})
	return err
}

// transition applies mut under the lock when gen is current and publishes
// the resulting status. It reports whether gen was current.
func (c *Controller) transition(gen int, mut func()) bool {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	return c.apply(gen, mut)
}

// apply is transition for callers already holding pubMu.
func (c *Controller) apply(gen int, mut func()) bool {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return false
	}
	prev := c.status.Stage
	mut()
	if c.status.Stage != prev {
		now := time.Now()
		if !c.stageSince.IsZero() && prev != StageIdle {
			metrics.RecordStage(prev.String(), now.Sub(c.stageSince))
		}
		c.stageSince = now
		logging.Debug("sandbox stage", "workspace", c.opts.workspace, "from", prev.String(), "to", c.status.Stage.String())
	}
	snap, fns := c.snapshotLocked()
	c.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
	return true
}

func (c *Controller) snapshotLocked() (Status, []func(Status)) {
	close(c.changed)
	c.changed = make(chan struct{})
	fns := make([]func(Status), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	return c.status, fns
}

func (c *Controller) logEvent(t audit.EventType, details string) {
	if err := c.opts.audit.LogEvent(t, c.opts.workspace, details); err != nil {
		logging.Debug("failed to write audit event", "type", t, "error", err)
	}
}
