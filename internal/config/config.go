// Package config loads the optional bookbuilder.yaml tool configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
)

// DefaultFileName is the tool configuration file looked up in the project root.
const DefaultFileName = "bookbuilder.yaml"

// Config represents the tool configuration. Book content is described by the
// bookspec, not here.
type Config struct {
	Build   BuildConfig   `yaml:"build"`
	Cache   CacheConfig   `yaml:"cache"`
	History HistoryConfig `yaml:"history"`
	Metrics MetricsConfig `yaml:"metrics"`
	Images  ImagesConfig  `yaml:"images"`
	Logging LoggingConfig `yaml:"logging"`
}

// BuildConfig controls where packages are assembled and how they are zipped.
type BuildConfig struct {
	Directory      string       `yaml:"directory"`
	Archiver       ArchiverKind `yaml:"archiver"`
	ArchiveProgram string       `yaml:"archive_program,omitempty"`
}

// CacheConfig controls the staleness cache.
type CacheConfig struct {
	Path    string `yaml:"path"`
	Enabled *bool  `yaml:"enabled,omitempty"`
}

// IsEnabled reports whether the cache is on. It defaults to true.
func (c CacheConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// HistoryConfig points at the sqlite build history. An empty path disables it.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// MetricsConfig controls the prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// ImagesConfig controls image downscaling.
type ImagesConfig struct {
	MaxPixels int `yaml:"max_pixels"`
}

// LoggingConfig holds the default log level.
type LoggingConfig struct {
	Level LogLevel `yaml:"level"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	if err := applyDefaults(cfg); err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the configuration at path. A missing file yields the defaults.
// Environment files next to the configuration are loaded first and
// ${VAR} references are expanded before parsing.
func Load(path string) (*Config, error) {
	if err := LoadEnvFiles(filepath.Dir(path)); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to read config file").
			WithContext("path", path).
			Build()
	}

	return Parse(data)
}

// Parse decodes configuration YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to parse config file").Build()
	}
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Resolve makes all relative paths absolute against root.
func (c *Config) Resolve(root string) {
	c.Build.Directory = resolvePath(root, c.Build.Directory)
	c.Cache.Path = resolvePath(root, c.Cache.Path)
	c.History.Path = resolvePath(root, c.History.Path)
	c.Metrics.Textfile = resolvePath(root, c.Metrics.Textfile)
}

func resolvePath(root, p string) string {
	if p == "" || p == ":memory:" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// Init writes an example configuration to path. Existing files are only
// replaced when force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return foundationerrors.ConfigError(fmt.Sprintf("configuration file already exists: %s", path)).
			WithContext("path", path).
			Build()
	}

	if err := os.WriteFile(path, []byte(exampleConfig), 0o600); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to write config file").
			WithContext("path", path).
			Build()
	}
	return nil
}

const exampleConfig = `# bookbuilder configuration
build:
  directory: .bookbuilder/build
  # zip builds the package in-process; command shells out to the zip program
  archiver: zip

cache:
  path: .bookbuilder/file_stats.yml
  enabled: true

history:
  # sqlite database with build events; leave empty to disable
  path: .bookbuilder/history.db

metrics:
  # prometheus textfile collector output
  textfile: ""

images:
  max_pixels: 2000000

logging:
  level: info
`
