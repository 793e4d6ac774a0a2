// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/themesync/internal/theme"
)

// AppName is used for XDG directory names.
const AppName = "themesync"

// Device preference sources.
const (
	DeviceSourcePortal   = "portal"
	DeviceSourceTerminal = "terminal"
	DeviceSourceNone     = "none"
)

// Config represents the themesync configuration.
type Config struct {
	Controller ControllerConfig `toml:"controller"`
	Surface    SurfaceConfig    `toml:"surface"`
	Device     DeviceConfig     `toml:"device"`
}

// ControllerConfig holds theme controller settings.
type ControllerConfig struct {
	FollowDevice bool   `toml:"follow_device"` // Apply OS light/dark changes
	MarkerPrefix string `toml:"marker_prefix"` // Prepended to theme names, e.g. "dt-"
}

// SurfaceConfig holds the marker file location.
type SurfaceConfig struct {
	Path string `toml:"path"` // Empty = default state path
}

// DeviceConfig selects the OS preference source.
type DeviceConfig struct {
	Source string `toml:"source"` // portal, terminal, none
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Controller: ControllerConfig{
			FollowDevice: false,
			MarkerPrefix: theme.DefaultMarkerPrefix,
		},
		Surface: SurfaceConfig{
			Path: "", // Resolved by SurfacePath
		},
		Device: DeviceConfig{
			Source: DeviceSourcePortal,
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, AppName, "config.toml")
}

// StatePath returns the path to the state directory.
// Uses XDG_STATE_HOME if set, otherwise ~/.local/state.
func StatePath() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, AppName)
}

// SurfacePath returns the configured marker file, or the default
// classes file in the state directory.
func (c *Config) SurfacePath() string {
	if c.Surface.Path != "" {
		return expandHome(c.Surface.Path)
	}
	return filepath.Join(StatePath(), "classes")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	// Start with defaults
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs []error

	prefix := c.Controller.MarkerPrefix
	if prefix == "" {
		errs = append(errs, errors.New("controller.marker_prefix must not be empty"))
	} else if strings.ContainsAny(prefix, " \t\r\n") {
		errs = append(errs, fmt.Errorf("controller.marker_prefix %q must not contain whitespace", prefix))
	}

	switch c.Device.Source {
	case DeviceSourcePortal, DeviceSourceTerminal, DeviceSourceNone:
	default:
		errs = append(errs, fmt.Errorf("device.source %q must be one of portal, terminal, none", c.Device.Source))
	}

	return errors.Join(errs...)
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
