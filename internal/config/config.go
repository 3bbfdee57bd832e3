package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// sandboxIDRegex validates sandbox ids.
// Ids must start with a lowercase letter or digit, followed by lowercase letters, digits, underscores, or hyphens.
// Maximum length is 63 characters (common container name limit).
var sandboxIDRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,62}$`)

// ValidateSandboxID checks if a sandbox id is usable as a container name
// suffix and as a file name in the state directory.
func ValidateSandboxID(id string) error {
	if id == "" {
		return fmt.Errorf("sandbox id cannot be empty")
	}

	if !sandboxIDRegex.MatchString(id) {
		return fmt.Errorf("invalid sandbox id %q: must start with a lowercase letter or digit, contain only lowercase letters, digits, underscores, or hyphens, and be at most 63 characters", id)
	}

	return nil
}

const (
	DefaultListen        = "127.0.0.1:3100"
	DefaultImage         = "node:20-bookworm"
	DefaultAppDir        = "/home/user/app"
	DefaultDevPort       = 5173
	DefaultEditBaseURL   = "https://api.morphllm.com/v1"
	DefaultEditModel     = "morph-v3-large"
	DefaultMaxCommandLen = 1000
	ContainerPrefix      = "lovable-"
)

// Edit backends
const (
	EditBackendNone  = ""
	EditBackendMorph = "morph"
	EditBackendLocal = "local"
)

// Duration is a time.Duration that decodes from TOML strings like "60s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the lovable-ctl configuration file.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Sandbox  SandboxConfig  `toml:"sandbox"`
	Packages PackagesConfig `toml:"packages"`
	Edits    EditsConfig    `toml:"edits"`
	Mirror   MirrorConfig   `toml:"mirror"`
	State    StateConfig    `toml:"state"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen            string   `toml:"listen"`
	LocalhostOnly     bool     `toml:"localhost_only"`
	RateLimitRequests int      `toml:"rate_limit_requests"`
	RateLimitWindow   Duration `toml:"rate_limit_window"`
	RestartCooldown   Duration `toml:"restart_cooldown"`
	MaxCommandLength  int      `toml:"max_command_length"`
}

// SandboxConfig configures the container that hosts the dev server.
type SandboxConfig struct {
	Runtime         string   `toml:"runtime"` // auto, docker, podman
	Image           string   `toml:"image"`
	ContainerPrefix string   `toml:"container_prefix"`
	AppDir          string   `toml:"app_dir"`
	DevPort         int      `toml:"dev_port"`
	HostPortFrom    int      `toml:"host_port_from"`
	HostPortTo      int      `toml:"host_port_to"`
	CommandTimeout  Duration `toml:"command_timeout"`
	StartupDelay    Duration `toml:"startup_delay"`
}

// PackagesConfig configures npm installs inside the sandbox.
type PackagesConfig struct {
	LegacyPeerDeps       bool `toml:"legacy_peer_deps"`
	AutoRestartDevServer bool `toml:"auto_restart_dev_server"`
}

// EditsConfig configures the precision edit backend.
type EditsConfig struct {
	Backend string   `toml:"backend"`
	APIKey  string   `toml:"api_key"`
	BaseURL string   `toml:"base_url"`
	Model   string   `toml:"model"`
	Timeout Duration `toml:"timeout"`
}

// MirrorConfig configures the external folder mirror.
type MirrorConfig struct {
	Folder string `toml:"folder"`
}

// StateConfig configures where session history is kept.
type StateConfig struct {
	Dir string `toml:"dir"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:            DefaultListen,
			LocalhostOnly:     true,
			RateLimitRequests: 10,
			RateLimitWindow:   Duration{time.Minute},
			RestartCooldown:   Duration{5 * time.Second},
			MaxCommandLength:  DefaultMaxCommandLen,
		},
		Sandbox: SandboxConfig{
			Runtime:         "auto",
			Image:           DefaultImage,
			ContainerPrefix: ContainerPrefix,
			AppDir:          DefaultAppDir,
			DevPort:         DefaultDevPort,
			HostPortFrom:    DefaultDevPort,
			HostPortTo:      DefaultDevPort + 100,
			CommandTimeout:  Duration{2 * time.Minute},
			StartupDelay:    Duration{3 * time.Second},
		},
		Packages: PackagesConfig{
			LegacyPeerDeps:       true,
			AutoRestartDevServer: true,
		},
		Edits: EditsConfig{
			BaseURL: DefaultEditBaseURL,
			Model:   DefaultEditModel,
			Timeout: Duration{time.Minute},
		},
		State: StateConfig{
			Dir: defaultStateDir(),
		},
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "lovable-ctl")
	}
	return filepath.Join(home, ".local", "state", "lovable-ctl")
}

// DefaultConfigPath returns ~/.config/lovable-ctl/config.toml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "lovable-ctl", "config.toml")
}

// Load reads the configuration file at path on top of the defaults.
// A missing file is not an error. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies environment overrides.
func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("EXTERNAL_FOLDER"); v != "" {
		c.Mirror.Folder = v
	}
	if v := getenv("MORPH_API_KEY"); v != "" {
		c.Edits.APIKey = v
		if c.Edits.Backend == EditBackendNone {
			c.Edits.Backend = EditBackendMorph
		}
	}
	if v := getenv("LOVABLE_LISTEN"); v != "" {
		c.Server.Listen = v
	}
	if strings.HasPrefix(c.State.Dir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			c.State.Dir = filepath.Join(home, c.State.Dir[2:])
		}
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	switch c.Sandbox.Runtime {
	case "auto", "docker", "podman":
	default:
		return fmt.Errorf("sandbox.runtime must be auto, docker or podman, got %q", c.Sandbox.Runtime)
	}
	switch c.Edits.Backend {
	case EditBackendNone, EditBackendMorph, EditBackendLocal:
	default:
		return fmt.Errorf("edits.backend must be morph, local or empty, got %q", c.Edits.Backend)
	}
	if c.Edits.Backend == EditBackendMorph && c.Edits.APIKey == "" {
		return fmt.Errorf("edits.backend %q requires an api_key (or MORPH_API_KEY)", c.Edits.Backend)
	}
	if c.Sandbox.DevPort <= 0 || c.Sandbox.DevPort > 65535 {
		return fmt.Errorf("sandbox.dev_port out of range: %d", c.Sandbox.DevPort)
	}
	if c.Sandbox.HostPortFrom <= 0 || c.Sandbox.HostPortTo > 65535 || c.Sandbox.HostPortFrom > c.Sandbox.HostPortTo {
		return fmt.Errorf("invalid sandbox host port range %d-%d", c.Sandbox.HostPortFrom, c.Sandbox.HostPortTo)
	}
	if c.Sandbox.AppDir == "" || !strings.HasPrefix(c.Sandbox.AppDir, "/") {
		return fmt.Errorf("sandbox.app_dir must be an absolute path, got %q", c.Sandbox.AppDir)
	}
	if c.Server.MaxCommandLength <= 0 {
		return fmt.Errorf("server.max_command_length must be positive")
	}
	if c.Server.RateLimitRequests < 0 {
		return fmt.Errorf("server.rate_limit_requests must not be negative")
	}
	return nil
}

// EditsEnabled reports whether a precision edit backend is configured
func (c *Config) EditsEnabled() bool {
	return c.Edits.Backend != EditBackendNone
}
