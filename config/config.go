// Package config persists user preferences across runs, distinct from
// per-project state (which autosave handles separately): the last
// SoundFont used, theme choice, default note-entry velocity, and an
// optional override for insert mode's idle timeout.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Theme names the color palette the TUI should load at startup.
type Theme string

const (
	ThemeDefault Theme = "default"
	ThemeDark    Theme = "dark"
	ThemeLight   Theme = "light"
)

// Config is the main configuration structure, persisted as JSON under
// ~/.config/miditui/config.json.
type Config struct {
	LastSoundFontPath string `json:"lastSoundFontPath,omitempty"`
	Theme             Theme  `json:"theme,omitempty"`
	DefaultVelocity   uint8  `json:"defaultVelocity,omitempty"`

	// InsertIdleTimeoutMeasures is saved and loaded with the rest of the
	// config, but nothing reads it: insert mode always halts after
	// insert.IdleMeasures (2) idle measures.
	InsertIdleTimeoutMeasures int `json:"insertIdleTimeoutMeasures,omitempty"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Theme:           ThemeDefault,
		DefaultVelocity: 100,
	}
}

// Dir returns the config directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "miditui"), nil
}

// Path returns the full path to config.json.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to disk, creating the config directory if
// necessary.
func (c *Config) Save() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := Path()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
