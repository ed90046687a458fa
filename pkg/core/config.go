// pkg/core/config.go
package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrConfigKeyMissing is returned when a required configuration key is unset
var ErrConfigKeyMissing = errors.New("configuration key missing")

// Config holds upkgd configuration
type Config struct {
	Daemon   DaemonConfig              `yaml:"daemon" mapstructure:"daemon"`
	History  HistoryConfig             `yaml:"history" mapstructure:"history"`
	Metrics  MetricsConfig             `yaml:"metrics" mapstructure:"metrics"`
	Debug    bool                      `yaml:"debug" mapstructure:"debug"`
	Backends map[string]map[string]any `yaml:"backends" mapstructure:"backends"`
}

// DaemonConfig selects and locates the backend module
type DaemonConfig struct {
	// DefaultBackend is the backend identifier to load, e.g. "dummy"
	DefaultBackend string `yaml:"default_backend" mapstructure:"default_backend"`

	// LocalDir is the build tree searched before InstallDir
	LocalDir string `yaml:"local_dir" mapstructure:"local_dir"`

	// InstallDir is where installed backend modules live
	InstallDir string `yaml:"install_dir" mapstructure:"install_dir"`
}

// HistoryConfig configures the transaction history database
type HistoryConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Listen  string `yaml:"listen" mapstructure:"listen"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Daemon: DaemonConfig{
			DefaultBackend: "",
			LocalDir:       filepath.Join("..", "backends"),
			InstallDir:     getDefaultInstallDir(),
		},
		History: HistoryConfig{
			Path: filepath.Join(getDefaultStateDir(), "history.db"),
		},
		Metrics: MetricsConfig{
			Listen: "127.0.0.1:9477",
		},
		Backends: make(map[string]map[string]any),
	}
}

// DefaultBackendName returns the configured backend identifier
func (c *Config) DefaultBackendName() (string, error) {
	if c == nil || c.Daemon.DefaultBackend == "" {
		return "", fmt.Errorf("%w: daemon.default_backend", ErrConfigKeyMissing)
	}
	return c.Daemon.DefaultBackend, nil
}

// BackendOptions returns the opaque option map for one backend, never nil
func (c *Config) BackendOptions(name string) map[string]any {
	if c == nil || c.Backends == nil {
		return map[string]any{}
	}
	if opts, ok := c.Backends[name]; ok && opts != nil {
		return opts
	}
	return map[string]any{}
}

// LoadConfig loads configuration from file; UPKGD_* environment variables
// override file values (e.g. UPKGD_DAEMON_DEFAULT_BACKEND)
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		// without a home directory only defaults and the environment apply
		path, _ = DefaultConfigPath()
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("UPKGD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("daemon.default_backend", defaults.Daemon.DefaultBackend)
	v.SetDefault("daemon.local_dir", defaults.Daemon.LocalDir)
	v.SetDefault("daemon.install_dir", defaults.Daemon.InstallDir)
	v.SetDefault("history.path", defaults.History.Path)
	v.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	v.SetDefault("metrics.listen", defaults.Metrics.Listen)
	v.SetDefault("debug", false)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Backends == nil {
		cfg.Backends = make(map[string]map[string]any)
	}

	return &cfg, nil
}

// DefaultConfigPath is $HOME/.config/upkgd/config.yaml
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "upkgd", "config.yaml"), nil
}

// EncodeConfig writes cfg as YAML
func EncodeConfig(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return enc.Close()
}

// SaveConfig saves configuration to file
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return err
		}
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := EncodeConfig(&buf, cfg); err != nil {
		return err
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

func getDefaultInstallDir() string {
	if path := os.Getenv("UPKGD_BACKEND_DIR"); path != "" {
		return path
	}
	return "/usr/lib/upkgd-backend"
}

func getDefaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "upkgd")
	}
	return filepath.Join(home, ".local", "state", "upkgd")
}
