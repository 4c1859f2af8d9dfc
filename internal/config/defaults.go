package config

import (
	"fmt"

	"git.home.luguber.info/inful/bookbuilder/internal/imaging"
)

const (
	defaultBuildDirectory = ".bookbuilder/build"
	defaultCachePath      = ".bookbuilder/file_stats.yml"
	defaultArchiveProgram = "zip"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// BuildDefaultApplier handles Build configuration defaults.
type BuildDefaultApplier struct{}

func (b *BuildDefaultApplier) Domain() string { return "build" }

func (b *BuildDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Build.Directory == "" {
		cfg.Build.Directory = defaultBuildDirectory
	}
	if cfg.Build.Archiver == "" {
		cfg.Build.Archiver = ArchiverZip
	} else if kind, err := archiverNormalizer.NormalizeWithError(string(cfg.Build.Archiver)); err == nil {
		cfg.Build.Archiver = kind
	}
	if cfg.Build.ArchiveProgram == "" {
		cfg.Build.ArchiveProgram = defaultArchiveProgram
	}
	return nil
}

// CacheDefaultApplier handles Cache configuration defaults.
type CacheDefaultApplier struct{}

func (c *CacheDefaultApplier) Domain() string { return "cache" }

func (c *CacheDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = defaultCachePath
	}
	return nil
}

// ImagesDefaultApplier handles Images configuration defaults.
type ImagesDefaultApplier struct{}

func (i *ImagesDefaultApplier) Domain() string { return "images" }

func (i *ImagesDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Images.MaxPixels == 0 {
		cfg.Images.MaxPixels = imaging.DefaultMaxPixels
	}
	return nil
}

// LoggingDefaultApplier handles Logging configuration defaults.
type LoggingDefaultApplier struct{}

func (l *LoggingDefaultApplier) Domain() string { return "logging" }

func (l *LoggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	return nil
}

// defaultAppliers lists the domain appliers in application order.
func defaultAppliers() []DefaultApplier {
	return []DefaultApplier{
		&BuildDefaultApplier{},
		&CacheDefaultApplier{},
		&ImagesDefaultApplier{},
		&LoggingDefaultApplier{},
	}
}

func applyDefaults(cfg *Config) error {
	for _, applier := range defaultAppliers() {
		if err := applier.ApplyDefaults(cfg); err != nil {
			return fmt.Errorf("applying defaults for %s: %w", applier.Domain(), err)
		}
	}
	return nil
}
