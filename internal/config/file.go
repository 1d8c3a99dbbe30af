package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is relative to the user's config directory
	DefaultConfigDir = "lastapp"
	// DefaultConfigFilename is the settings file looked up when no path is given
	DefaultConfigFilename = "config.yaml"
)

// DefaultFilePath returns ~/.config/lastapp/config.yaml
func DefaultFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, DefaultConfigDir, DefaultConfigFilename), nil
}

// LoadFile overlays the YAML file at path onto cfg. An empty path reads the
// default location; a missing default file is not an error.
func LoadFile(path string, cfg *Config) error {
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultFilePath(); err != nil {
			return nil
		}
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("read settings: %w", err)
	}

	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return fmt.Errorf("unmarshal settings: %w", err)
	}
	return nil
}

// Save writes cfg as YAML to path
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
