package config

import (
	"path/filepath"

	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
)

// ValidateConfig validates a configuration after defaults were applied.
func ValidateConfig(cfg *Config) error {
	return newConfigurationValidator(cfg).validate()
}

// Validate is a shorthand for ValidateConfig.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	if err := cv.validateBuild(); err != nil {
		return err
	}
	if err := cv.validateCache(); err != nil {
		return err
	}
	return cv.validateImages()
}

func (cv *configurationValidator) validateBuild() error {
	b := cv.config.Build
	if !archiverNormalizer.IsValid(b.Archiver) {
		return foundationerrors.ValidationError("build.archiver must be one of zip, command").
			WithContext("archiver", string(b.Archiver)).
			Build()
	}
	if filepath.Clean(b.Directory) == "." {
		return foundationerrors.ValidationError("build.directory must not be the project root").Build()
	}
	return nil
}

func (cv *configurationValidator) validateCache() error {
	if !cv.config.Cache.IsEnabled() {
		return nil
	}
	cache := filepath.Clean(cv.config.Cache.Path)
	build := filepath.Clean(cv.config.Build.Directory)
	if rel, err := filepath.Rel(build, cache); err == nil && filepath.IsLocal(rel) {
		return foundationerrors.ValidationError("cache.path must not be inside build.directory").
			WithContext("cache", cache).
			WithContext("build", build).
			Build()
	}
	return nil
}

func (cv *configurationValidator) validateImages() error {
	if cv.config.Images.MaxPixels < 0 {
		return foundationerrors.ValidationError("images.max_pixels must not be negative").
			WithContext("max_pixels", cv.config.Images.MaxPixels).
			Build()
	}
	return nil
}
