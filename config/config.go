// Package config handles koto.toml run configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up next to scripts.
const FileName = "koto.toml"

// Config represents a koto.toml file.
type Config struct {
	Log   Log   `toml:"log"`
	Debug Debug `toml:"debug"`
	Cache Cache `toml:"cache"`

	// Dir is the directory containing the koto.toml file (set at load time).
	// Empty when defaults are in use.
	Dir string `toml:"-"`
}

// Log configures the commonlog backend.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Debug toggles developer traces.
type Debug struct {
	PrintCode      bool `toml:"print_code"`
	TraceExecution bool `toml:"trace_execution"`
}

// Cache configures the compiled chunk cache.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Default returns the configuration used when no koto.toml is found.
func Default() *Config {
	return &Config{
		Cache: Cache{Path: filepath.Join(".koto", "cache.db")},
	}
}

// Load parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	if c.Cache.Path == "" {
		c.Cache.Path = Default().Cache.Path
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a koto.toml file and loads it.
// Returns Default() if none is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// CachePath returns the cache database path, resolved against Dir when relative.
func (c *Config) CachePath() string {
	if filepath.IsAbs(c.Cache.Path) || c.Dir == "" {
		return c.Cache.Path
	}
	return filepath.Join(c.Dir, c.Cache.Path)
}

// LogFile returns the configured log file or nil for stderr, in the form
// commonlog.Configure expects.
func (c *Config) LogFile() *string {
	if c.Log.File == "" {
		return nil
	}
	path := c.Log.File
	if !filepath.IsAbs(path) && c.Dir != "" {
		path = filepath.Join(c.Dir, path)
	}
	return &path
}
