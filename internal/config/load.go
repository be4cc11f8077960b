package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/densitybaker/pkg/volume"
)

// Load resolves the effective configuration: defaults, then the config file
// named by -config or found on the search path, then flag overrides. The
// result has passed Validate and yields valid bake parameters.
func Load() (*Config, error) {
	path := ConfigPath()
	if path == "" {
		path = findConfigFile()
	}
	return load(path, applyFlags)
}

// load layers the file at path (if any) and override over the defaults and
// checks the outcome.
func load(path string, override func(*Config)) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, err
		}
		cfg.Source = path
	}
	if override != nil {
		override(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, cfg.sourced(err)
	}
	if _, err := cfg.BakeParams(); err != nil {
		return nil, cfg.sourced(err)
	}
	return cfg, nil
}

func (c *Config) sourced(err error) error {
	if c.Source == "" {
		return err
	}
	return fmt.Errorf("%s: %w", c.Source, err)
}

// searchPaths lists the implicit config locations, most specific first.
func searchPaths() []string {
	return []string{
		"volbake.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}
}

// findConfigFile returns the first search path that exists, or "".
func findConfigFile() string {
	for _, path := range searchPaths() {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// ConfigDir returns the per-user config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "DensityBaker")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "DensityBaker")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "densitybaker")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "densitybaker")
}

// loadFromFile decodes path over cfg. Keys the file omits keep their current
// values; unknown keys are rejected so a misspelt setting cannot be silently
// ignored. An empty file is accepted.
func loadFromFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &volume.BakeError{Kind: volume.KindConfiguration, Op: "config file", Err: err}
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return volume.ConfigError("config file", "%s: %v", path, err)
	}
	return nil
}
