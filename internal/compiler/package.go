package compiler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/bookbuilder/internal/eventstore"
	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
	"git.home.luguber.info/inful/bookbuilder/internal/metrics"
	"git.home.luguber.info/inful/bookbuilder/internal/observability"
)

// PackageName returns the file name of the package: the explicit output
// base name, else the bookspec file stem, else the title, followed by the
// build version and, for a non-default target, the target name.
func (c *Compiler) PackageName() string {
	name := c.book.OutputBaseName
	if name == "" && c.book.SpecPath != "" {
		base := filepath.Base(c.book.SpecPath)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if name == "" {
		name = c.book.Title
	}
	name += c.book.BuildVersion
	if !c.target.IsDefault {
		name += "-" + c.target.Name
	}
	return name + ".epub"
}

// Archive packs the build directory of run into an .epub at path, which
// defaults to PackageName in the working directory. It returns the
// absolute package path.
func (c *Compiler) Archive(ctx context.Context, run *BuildRun, path string) (string, error) {
	if run == nil {
		return "", foundationerrors.InternalError("archive requires a compiled build").Build()
	}
	if path == "" {
		path = c.PackageName()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to resolve package path").
			WithContext("path", path).
			Build()
	}

	ctx = observability.WithBuildID(ctx, run.ID)
	ctx = observability.WithTarget(ctx, c.target.Name)
	ctx = observability.WithStage(ctx, StageArchive)

	start := time.Now()
	err = c.archiver.Archive(ctx, run.OutputDir, abs)
	c.recorder.ObserveStageDuration(StageArchive, time.Since(start))
	if err != nil {
		if isCanceled(err) {
			c.recorder.IncStageResult(StageArchive, metrics.ResultCanceled)
		} else {
			c.recorder.IncStageResult(StageArchive, metrics.ResultFatal)
		}
		if e, evErr := eventstore.NewBuildFailed(run.ID, StageArchive, err); evErr == nil {
			c.recordEvent(ctx, e)
		}
		return "", err
	}
	c.recorder.IncStageResult(StageArchive, metrics.ResultSuccess)

	var size int64
	if info, statErr := os.Stat(abs); statErr == nil {
		size = info.Size()
	}
	observability.InfoContext(ctx, "Package archived", logfields.Path(abs))
	if e, evErr := eventstore.NewPackageArchived(run.ID, abs, size); evErr == nil {
		c.recordEvent(ctx, e)
	}
	return abs, nil
}
