package runtime

import (
	"fmt"
	"os/exec"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/logging"
)

// RuntimeType identifies which sandbox runtime to use
type RuntimeType string

const (
	RuntimeLocal RuntimeType = "local"
	RuntimeMock  RuntimeType = "mock"
	RuntimeAuto  RuntimeType = "auto"
)

// Config holds runtime configuration
type Config struct {
	// Type specifies which runtime to use (or "auto" for auto-detection)
	Type RuntimeType

	// BaseDir holds sandbox working directories for the local runtime
	BaseDir string

	// Env is added to the environment of sandbox processes
	Env []string

	// KeepWorkDir leaves local working directories behind after teardown
	KeepWorkDir bool

	// Tool is the executable auto-detection looks for
	Tool string
}

// DefaultConfig returns the default runtime configuration
func DefaultConfig() *Config {
	return &Config{
		Type: RuntimeAuto,
		Tool: "npm",
	}
}

// Detect determines which runtime can run sandboxes on this host.
func Detect(tool string) (RuntimeType, error) {
	if tool == "" {
		tool = "npm"
	}
	if path, err := exec.LookPath(tool); err == nil {
		logging.Debug("detected sandbox tool", "tool", tool, "path", path)
		return RuntimeLocal, nil
	}
	return "", fmt.Errorf("no supported sandbox runtime found (%s not in PATH)", tool)
}

// Available returns the runtimes usable on this host.
func Available() []RuntimeType {
	available := []RuntimeType{RuntimeMock}
	if _, err := Detect(""); err == nil {
		available = append(available, RuntimeLocal)
	}
	return available
}

// New creates a runtime from cfg. A nil cfg uses DefaultConfig.
func New(cfg *Config) (Runtime, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	rtType := cfg.Type
	if rtType == RuntimeAuto || rtType == "" {
		detected, err := Detect(cfg.Tool)
		if err != nil {
			return nil, err
		}
		rtType = detected
	}

	switch rtType {
	case RuntimeLocal:
		return &LocalRuntime{BaseDir: cfg.BaseDir, Env: cfg.Env, KeepWorkDir: cfg.KeepWorkDir}, nil
	case RuntimeMock:
		return NewMockRuntime(), nil
	default:
		return nil, fmt.Errorf("unknown runtime type: %s", rtType)
	}
}
