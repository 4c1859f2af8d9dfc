package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/bookbuilder/internal/book"
	"git.home.luguber.info/inful/bookbuilder/internal/config"
	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing files"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	dir, err := filepath.Abs(root.Project)
	if err != nil {
		return err
	}
	cfgPath := root.Config
	if !filepath.IsAbs(cfgPath) {
		cfgPath = filepath.Join(dir, cfgPath)
	}
	specPath, err := initProject(dir, cfgPath, i.Force)
	if err != nil {
		return err
	}

	fmt.Printf("Created bookspec: %s\n", specPath)
	fmt.Printf("Created configuration: %s\n", cfgPath)
	fmt.Println("Next steps:")
	fmt.Println("  1. Edit the bookspec and add chapters under text/")
	fmt.Println("  2. Run 'bookbuilder build' to create the .epub package")
	return nil
}

const sampleBookspec = `title: %s
authors:
  - Your Name
language: en
toc:
  - title: Introduction
    file: text/introduction
files:
  - pattern: "images/*"
    group: image
`

const sampleChapter = `# Introduction

Write the first chapter here.
`

// initProject writes a sample bookspec named after dir, one chapter and the
// tool configuration. It returns the bookspec path.
func initProject(dir, cfgPath string, force bool) (string, error) {
	if !force {
		if existing, err := book.Discover(dir); err == nil {
			return "", foundationerrors.ConfigError("bookspec already exists (use --force to overwrite)").
				WithContext("path", existing).
				Build()
		}
	}

	name := filepath.Base(dir)
	specPath := filepath.Join(dir, name+book.SpecExtension)
	if err := writeSample(specPath, fmt.Sprintf(sampleBookspec, name), force); err != nil {
		return "", err
	}
	if err := writeSample(filepath.Join(dir, "text", "introduction.md"), sampleChapter, force); err != nil {
		return "", err
	}
	if err := config.Init(cfgPath, force); err != nil {
		return "", err
	}
	return specPath, nil
}

func writeSample(path, content string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to stat file").
				WithContext("path", path).
				Build()
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to create directory").
			WithContext("path", filepath.Dir(path)).
			Build()
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to write file").
			WithContext("path", path).
			Build()
	}
	return nil
}
