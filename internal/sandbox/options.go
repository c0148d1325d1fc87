package sandbox

import (
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/terminal"
)

// Defaults for a Node.js project.
const (
	DefaultManifest      = "package.json"
	DefaultInstallMarker = ".forage-play/installed"
)

var (
	DefaultInstallCommand = []string{"npm", "install"}
	DefaultStartCommand   = []string{"npm", "run", "start"}
)

type options struct {
	workspace string
	manifest  string
	marker    string
	install   []string
	start     []string
	sink      terminal.Sink
	audit     *audit.Logger
}

func defaultOptions() options {
	return options{
		manifest: DefaultManifest,
		marker:   DefaultInstallMarker,
		install:  DefaultInstallCommand,
		start:    DefaultStartCommand,
		sink:     terminal.Discard,
	}
}

// Option configures a Controller.
type Option func(*options)

// WithWorkspace sets the workspace id used in logs and audit events.
func WithWorkspace(id string) Option {
	return func(o *options) { o.workspace = id }
}

// WithSink sets where process output and status messages go.
func WithSink(s terminal.Sink) Option {
	return func(o *options) {
		if s != nil {
			o.sink = s
		}
	}
}

// WithAuditLogger records lifecycle events.
func WithAuditLogger(l *audit.Logger) Option {
	return func(o *options) { o.audit = l }
}

// WithCommands overrides the install and start command lines. Empty
// slices keep the defaults.
func WithCommands(install, start []string) Option {
	return func(o *options) {
		if len(install) > 0 {
			o.install = install
		}
		if len(start) > 0 {
			o.start = start
		}
	}
}

// WithManifest sets the dependency manifest whose presence marks a
// sandbox that was set up before.
func WithManifest(path string) Option {
	return func(o *options) {
		if path != "" {
			o.manifest = path
		}
	}
}

// WithInstallMarker sets the file written after a successful install.
func WithInstallMarker(path string) Option {
	return func(o *options) {
		if path != "" {
			o.marker = path
		}
	}
}
