package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
	shellquote "github.com/kballard/go-shellquote"
)

// workspaceIDRegex validates workspace ids.
// Ids must start with a lowercase letter or digit, followed by lowercase letters, digits, underscores, or hyphens.
var workspaceIDRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,62}$`)

// ValidateWorkspaceID checks if a workspace id is valid.
// Valid ids:
//   - Start with a lowercase letter or digit
//   - Contain only lowercase letters, digits, underscores, or hyphens
//   - Are between 1 and 63 characters long
func ValidateWorkspaceID(id string) error {
	if id == "" {
		return fmt.Errorf("workspace id cannot be empty")
	}

	if !workspaceIDRegex.MatchString(id) {
		return fmt.Errorf("invalid workspace id %q: must start with a lowercase letter or digit, contain only lowercase letters, digits, underscores, or hyphens, and be at most 63 characters", id)
	}

	return nil
}

const (
	// EnvConfig overrides the config file location
	EnvConfig = "FORAGE_PLAY_CONFIG"

	DefaultStoreBackend      = "badger"
	DefaultRuntime           = "local"
	DefaultManifest          = "package.json"
	DefaultInstallCommand    = "npm install"
	DefaultStartCommand      = "npm run start"
	DefaultCompletionTimeout = 30 * time.Second
)

// Config is the contents of config.toml.
type Config struct {
	StateDir   string           `toml:"state_dir"`
	Store      StoreConfig      `toml:"store"`
	Sandbox    SandboxConfig    `toml:"sandbox"`
	Templates  TemplatesConfig  `toml:"templates"`
	Completion CompletionConfig `toml:"completion"`
	Metrics    MetricsConfig    `toml:"metrics"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend   string `toml:"backend"`    // badger, sqlite or postgres
	Path      string `toml:"path"`       // badger dir or sqlite file; defaults under state_dir
	DSN       string `toml:"dsn"`        // postgres only
	CacheSize int    `toml:"cache_size"` // 0 disables the tree cache
}

// SandboxConfig configures sandbox boots.
type SandboxConfig struct {
	Runtime     string `toml:"runtime"` // local or mock
	WorkDir     string `toml:"work_dir"`
	Manifest    string `toml:"manifest"`
	Install     string `toml:"install"`
	Start       string `toml:"start"`
	KeepWorkDir bool   `toml:"keep_work_dir"`
}

// TemplatesConfig locates starter templates.
type TemplatesConfig struct {
	Dir   string            `toml:"dir"`
	Paths map[string]string `toml:"paths"` // template key -> directory under Dir
}

// CompletionConfig points at the code completion service.
type CompletionConfig struct {
	URL     string        `toml:"url"`
	Timeout time.Duration `toml:"timeout"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// DefaultTemplatePaths maps the built-in template keys to their directories.
var DefaultTemplatePaths = map[string]string{
	"REACT":   "react",
	"NEXTJS":  "nextjs",
	"EXPRESS": "express",
	"VUE":     "vue",
	"HONO":    "hono",
	"ANGULAR": "angular",
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	stateDir := defaultStateDir()
	paths := make(map[string]string, len(DefaultTemplatePaths))
	for k, v := range DefaultTemplatePaths {
		paths[k] = v
	}
	return &Config{
		StateDir: stateDir,
		Store:    StoreConfig{Backend: DefaultStoreBackend},
		Sandbox: SandboxConfig{
			Runtime:  DefaultRuntime,
			Manifest: DefaultManifest,
			Install:  DefaultInstallCommand,
			Start:    DefaultStartCommand,
		},
		Templates:  TemplatesConfig{Dir: filepath.Join(stateDir, "templates"), Paths: paths},
		Completion: CompletionConfig{Timeout: DefaultCompletionTimeout},
	}
}

func defaultStateDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "forage-play")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "forage-play")
	}
	return filepath.Join(home, ".local", "share", "forage-play")
}

// DefaultConfigPath returns $FORAGE_PLAY_CONFIG or ~/.config/forage-play/config.toml.
func DefaultConfigPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(dir, "forage-play", "config.toml")
}

// Load reads the config at path over the defaults. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return parse(data, path)
}

// Parse decodes a config.toml document over the defaults.
func Parse(data []byte) (*Config, error) {
	return parse(data, "config")
}

func parse(data []byte, source string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", source, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown config keys in %s: %v", source, keys)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", source, err)
	}
	return cfg, nil
}

// applyDefaults fills fields a file left empty.
func (c *Config) applyDefaults() {
	def := Default()
	if c.StateDir == "" {
		c.StateDir = def.StateDir
	}
	if c.Store.Backend == "" {
		c.Store.Backend = def.Store.Backend
	}
	if c.Sandbox.Runtime == "" {
		c.Sandbox.Runtime = def.Sandbox.Runtime
	}
	if c.Sandbox.Manifest == "" {
		c.Sandbox.Manifest = def.Sandbox.Manifest
	}
	if c.Sandbox.Install == "" {
		c.Sandbox.Install = def.Sandbox.Install
	}
	if c.Sandbox.Start == "" {
		c.Sandbox.Start = def.Sandbox.Start
	}
	if c.Templates.Dir == "" {
		c.Templates.Dir = filepath.Join(c.StateDir, "templates")
	}
	if c.Completion.Timeout == 0 {
		c.Completion.Timeout = def.Completion.Timeout
	}
}

// Validate checks that the Config is valid.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "badger", "sqlite":
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("invalid store backend: %s (must be badger, sqlite, or postgres)", c.Store.Backend)
	}
	if c.Store.CacheSize < 0 {
		return fmt.Errorf("store.cache_size must not be negative (got %d)", c.Store.CacheSize)
	}

	validRuntimes := map[string]bool{"local": true, "mock": true, "auto": true}
	if !validRuntimes[c.Sandbox.Runtime] {
		return fmt.Errorf("invalid sandbox runtime: %s (must be local, mock, or auto)", c.Sandbox.Runtime)
	}
	if _, err := c.InstallCommand(); err != nil {
		return err
	}
	if _, err := c.StartCommand(); err != nil {
		return err
	}

	for key, dir := range c.Templates.Paths {
		if dir == "" || filepath.IsAbs(dir) {
			return fmt.Errorf("template %s: path must be relative to templates.dir (got %q)", key, dir)
		}
	}
	if c.Completion.Timeout < 0 {
		return fmt.Errorf("completion.timeout must not be negative")
	}
	return nil
}

// InstallCommand splits sandbox.install into argv.
func (c *Config) InstallCommand() ([]string, error) {
	return splitCommand("sandbox.install", c.Sandbox.Install)
}

// StartCommand splits sandbox.start into argv.
func (c *Config) StartCommand() ([]string, error) {
	return splitCommand("sandbox.start", c.Sandbox.Start)
}

func splitCommand(key, line string) ([]string, error) {
	argv, err := shellquote.Split(line)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("%s must not be empty", key)
	}
	return argv, nil
}

// TemplateKeys returns the configured template keys in order.
func (c *Config) TemplateKeys() []string {
	keys := make([]string, 0, len(c.Templates.Paths))
	for k := range c.Templates.Paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Paths holds the directories derived from state_dir
type Paths struct {
	StateDir  string
	StoreDir  string
	AuditDir  string
	WorkDir   string
	Templates string
}

// Paths resolves the state layout.
func (c *Config) Paths() *Paths {
	p := &Paths{
		StateDir:  c.StateDir,
		StoreDir:  filepath.Join(c.StateDir, "store"),
		AuditDir:  filepath.Join(c.StateDir, "audit"),
		WorkDir:   filepath.Join(c.StateDir, "sandboxes"),
		Templates: c.Templates.Dir,
	}
	if c.Sandbox.WorkDir != "" {
		p.WorkDir = c.Sandbox.WorkDir
	}
	return p
}

// StorePath returns store.path or the backend's default location.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	dir := c.Paths().StoreDir
	if c.Store.Backend == "sqlite" {
		return filepath.Join(dir, "playgrounds.db")
	}
	return dir
}

// EnsureDirs creates the state directories.
func (p *Paths) EnsureDirs() error {
	for _, dir := range []string{p.StateDir, p.StoreDir, p.AuditDir, p.WorkDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
