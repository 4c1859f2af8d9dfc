package archive

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
)

// CommandRunner runs an external program in dir and returns its combined
// output.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	// #nosec G204 -- the program and its arguments are fixed by CommandArchiver
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// CommandArchiver packs with the external zip program.
type CommandArchiver struct {
	Program string
	Runner  CommandRunner
	logger  *slog.Logger
}

// NewCommandArchiver returns an archiver using the zip program on PATH.
func NewCommandArchiver() *CommandArchiver {
	return &CommandArchiver{Program: "zip", Runner: ExecRunner{}, logger: slog.Default()}
}

// WithLogger sets a custom logger.
func (c *CommandArchiver) WithLogger(logger *slog.Logger) *CommandArchiver {
	c.logger = logger
	return c
}

// Archive implements Archiver. The mimetype member is added first without
// compression, then the remaining files with maximum compression.
func (c *CommandArchiver) Archive(ctx context.Context, sourceDir, packagePath string) error {
	if err := requireMimetype(sourceDir); err != nil {
		return err
	}
	members, err := listMembers(sourceDir)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(packagePath)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryArchive, "invalid package path").
			WithContext("path", packagePath).
			Build()
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to remove previous package").
			WithContext("path", abs).
			Build()
	}

	if err := c.run(ctx, sourceDir, "-q0X", abs, MimetypeFile); err != nil {
		return err
	}
	args := append([]string{"-qXr9D", abs}, members...)
	args = append(args, "--exclude", "*.DS_Store")
	return c.run(ctx, sourceDir, args...)
}

func (c *CommandArchiver) run(ctx context.Context, dir string, args ...string) error {
	out, err := c.Runner.Run(ctx, dir, c.Program, args...)
	if len(out) > 0 {
		c.logger.Info("zip output", slog.String("output", string(out)))
	}
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryArchive, "zip command failed").
			WithContext("path", dir).
			WithContext("args", args).
			Build()
	}
	c.logger.Debug("zip command finished", logfields.Path(dir))
	return nil
}
