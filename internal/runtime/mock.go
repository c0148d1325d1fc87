package runtime

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/transform"
)

// MockRuntime is a mock implementation of Runtime for testing. Its
// filesystem outlives individual handles, so a second Boot sees what an
// earlier sandbox left behind.
type MockRuntime struct {
	mu sync.RWMutex

	// FS is the sandbox filesystem shared by every handle
	FS billy.Filesystem

	// Scripts maps a command line ("npm install") to its scripted behavior
	Scripts map[string]*ProcessScript

	// Errors allows injecting errors for specific operations
	Errors map[string]error

	// CallLog records all method calls for verification
	CallLog []MockCall

	handles []*MockHandle
}

// MockCall represents a recorded method call
type MockCall struct {
	Method string
	Args   []interface{}
}

// ProcessScript describes what a mock process does once spawned.
type ProcessScript struct {
	// Output lines written to the process output, in order
	Output []string

	// ExitCode returned by Wait
	ExitCode int

	// Ready is emitted as a server-ready event after Output
	Ready *ReadyEvent

	// Hold keeps the process running until it is killed
	Hold bool

	// Gate, when non-nil, must be closed before the process produces output
	Gate chan struct{}
}

// NewMockRuntime creates a new mock runtime
func NewMockRuntime() *MockRuntime {
	return &MockRuntime{
		FS:      memfs.New(),
		Scripts: make(map[string]*ProcessScript),
		Errors:  make(map[string]error),
		CallLog: make([]MockCall, 0),
	}
}

func (m *MockRuntime) record(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallLog = append(m.CallLog, MockCall{Method: method, Args: args})
}

func (m *MockRuntime) injected(method string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Errors[method]
}

// SetError sets an error to be returned for a specific operation
func (m *MockRuntime) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[operation] = err
}

// SetScript sets the behavior of processes spawned with cmdline
func (m *MockRuntime) SetScript(cmdline string, script *ProcessScript) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Scripts[cmdline] = script
}

// GetCalls returns all recorded calls
func (m *MockRuntime) GetCalls() []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]MockCall, len(m.CallLog))
	copy(calls, m.CallLog)
	return calls
}

// GetCallsFor returns all calls for a specific method
func (m *MockRuntime) GetCallsFor(method string) []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var calls []MockCall
	for _, call := range m.CallLog {
		if call.Method == method {
			calls = append(calls, call)
		}
	}
	return calls
}

// LastHandle returns the handle from the most recent Boot
func (m *MockRuntime) LastHandle() *MockHandle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.handles) == 0 {
		return nil
	}
	return m.handles[len(m.handles)-1]
}

// Reset clears all state, including the filesystem
func (m *MockRuntime) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FS = memfs.New()
	m.Scripts = make(map[string]*ProcessScript)
	m.Errors = make(map[string]error)
	m.CallLog = make([]MockCall, 0)
	m.handles = nil
}

// Name returns the runtime identifier
func (m *MockRuntime) Name() string {
	return string(RuntimeMock)
}

// Boot returns a handle over the shared filesystem
func (m *MockRuntime) Boot(ctx context.Context) (Handle, error) {
	m.record("Boot")
	if err := m.injected("Boot"); err != nil {
		return nil, err
	}

	h := &MockHandle{rt: m}
	m.mu.Lock()
	m.handles = append(m.handles, h)
	m.mu.Unlock()
	return h, nil
}

// MockHandle is the Handle returned by MockRuntime.
type MockHandle struct {
	rt    *MockRuntime
	ready readyBus

	mu     sync.Mutex
	closed bool
	procs  []*mockProcess
}

func (h *MockHandle) enter(method string, args ...interface{}) error {
	h.rt.record(method, args...)
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return ErrTornDown
	}
	return h.rt.injected(method)
}

func (h *MockHandle) fs() billy.Filesystem {
	h.rt.mu.RLock()
	defer h.rt.mu.RUnlock()
	return h.rt.FS
}

func (h *MockHandle) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := h.enter("ReadFile", path); err != nil {
		return nil, err
	}
	f, err := h.fs().Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *MockHandle) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := h.enter("WriteFile", path, string(data)); err != nil {
		return err
	}
	return util.WriteFile(h.fs(), path, data, 0o644)
}

func (h *MockHandle) MkdirAll(ctx context.Context, path string) error {
	if err := h.enter("MkdirAll", path); err != nil {
		return err
	}
	return h.fs().MkdirAll(path, 0o755)
}

func (h *MockHandle) Mount(ctx context.Context, m transform.Mapping) error {
	if err := h.enter("Mount", m); err != nil {
		return err
	}
	return mountMapping(ctx, h, m)
}

func (h *MockHandle) Spawn(ctx context.Context, name string, args ...string) (Process, error) {
	cmdline := strings.Join(append([]string{name}, args...), " ")
	if err := h.enter("Spawn", cmdline); err != nil {
		return nil, err
	}

	h.rt.mu.RLock()
	script := h.rt.Scripts[cmdline]
	h.rt.mu.RUnlock()
	if script == nil {
		script = &ProcessScript{}
	}

	pr, pw := io.Pipe()
	p := &mockProcess{out: pr, done: make(chan struct{}), killed: make(chan struct{})}
	h.mu.Lock()
	h.procs = append(h.procs, p)
	h.mu.Unlock()

	go p.run(h, script, pw)
	return p, nil
}

// EmitServerReady delivers ev to every registered listener
func (h *MockHandle) EmitServerReady(ev ReadyEvent) {
	h.ready.publish(ev)
}

func (h *MockHandle) OnServerReady(fn func(ReadyEvent)) func() {
	return h.ready.subscribe(fn)
}

func (h *MockHandle) Teardown() error {
	h.rt.record("Teardown")
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	procs := h.procs
	h.procs = nil
	h.mu.Unlock()

	for _, p := range procs {
		_ = p.Kill()
	}
	h.ready.clear()
	return h.rt.injected("Teardown")
}

// Closed reports whether Teardown was called
func (h *MockHandle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

type mockProcess struct {
	out      *io.PipeReader
	done     chan struct{}
	killed   chan struct{}
	killOnce sync.Once
	code     int
}

func (p *mockProcess) run(h *MockHandle, s *ProcessScript, pw *io.PipeWriter) {
	defer close(p.done)
	defer pw.Close()

	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-p.killed:
			p.code = -1
			return
		}
	}
	for _, line := range s.Output {
		if _, err := fmt.Fprintln(pw, line); err != nil {
			p.code = -1
			return
		}
	}
	if s.Ready != nil {
		h.EmitServerReady(*s.Ready)
	}
	if s.Hold {
		<-p.killed
		p.code = -1
		return
	}
	p.code = s.ExitCode
}

func (p *mockProcess) Output() io.Reader { return p.out }

func (p *mockProcess) Wait(ctx context.Context) (int, error) {
	select {
	case <-p.done:
		return p.code, nil
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

func (p *mockProcess) Kill() error {
	p.killOnce.Do(func() {
		close(p.killed)
		p.out.CloseWithError(ErrTornDown)
	})
	return nil
}
