package compiler

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/bookbuilder/internal/book"
	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/bookbuilder/internal/fsutil"
	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
	"git.home.luguber.info/inful/bookbuilder/internal/metrics"
	"git.home.luguber.info/inful/bookbuilder/internal/render"
)

// processFile produces the output of f and adds it to the files of the run.
// A unit is processed at most once per run.
func (c *Compiler) processFile(ctx context.Context, f *book.File) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.processed.Has(f) {
		return nil
	}

	dest, err := c.DestinationPathOf(f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to create output directory").
			WithContext("path", filepath.Dir(dest)).
			Build()
	}

	if err := c.produce(ctx, f, dest, true); err != nil {
		return err
	}

	c.processed.Add(f)
	c.run.Files = append(c.run.Files, f)
	return nil
}

// produce dispatches on the state of f. Content that is older than its
// source is dropped and f is produced once more from the source.
func (c *Compiler) produce(ctx context.Context, f *book.File, dest string, retry bool) error {
	switch {
	case f.HasContent():
		if retry && f.RealSourcePath != "" && !fsutil.IsNewer(dest, f.RealSourcePath) {
			f.ClearContent()
			return c.produce(ctx, f, dest, false)
		}
		return c.WriteContent(f, dest)
	case f.RealSourcePath != "":
		return c.processSource(ctx, f, dest)
	default:
		return foundationerrors.BuildError("don't know what to do with file").
			WithContext("pattern", f.SourcePattern).
			WithContext("path", f.DestinationPath).
			Fatal().
			Build()
	}
}

func (c *Compiler) processSource(ctx context.Context, f *book.File, dest string) error {
	ext := strings.ToLower(filepath.Ext(f.RealSourcePath))
	switch {
	case book.GroupText.Contains(ext):
		return c.processText(ctx, f, dest)
	case book.GroupImage.Contains(ext):
		return c.processImage(ctx, f, dest)
	case book.IsStaticExtension(ext):
		return c.copyFile(f, dest)
	case ext == book.StylesheetExtension:
		return c.renderAndWrite(ctx, f, dest)
	default:
		return foundationerrors.BuildError("unknown file extension "+ext).
			WithContext("extension", ext).
			WithContext("path", f.RealSourcePath).
			Fatal().
			Build()
	}
}

// processText renders a text source unless the cache reports it and
// everything it includes as unchanged and its output exists.
func (c *Compiler) processText(ctx context.Context, f *book.File, dest string) error {
	if c.cache != nil && fsutil.Exists(dest) && c.cache.IsUpToDate(f.RealSourcePath) {
		existing, err := os.ReadFile(dest)
		if err == nil {
			f.SetContent(existing)
			if rec := c.cache.RecordFor(f.RealSourcePath); rec != nil {
				for _, d := range rec.DependencyPaths {
					f.AddDependency(d)
				}
			}
			c.recordAction(metrics.FileSkipped)
			c.logger.DebugContext(ctx, "Source unchanged, skipping render", logfields.Source(f.RealSourcePath))
			return nil
		}
	}

	if err := c.renderAndWrite(ctx, f, dest); err != nil {
		return err
	}
	return c.touchCache(f)
}

func (c *Compiler) renderAndWrite(ctx context.Context, f *book.File, dest string) error {
	ext := strings.ToLower(filepath.Ext(f.RealSourcePath))
	renderer, ok := c.registry.Lookup(ext)
	if !ok {
		return foundationerrors.BuildError("no renderer registered for "+ext).
			WithContext("extension", ext).
			WithContext("path", f.RealSourcePath).
			Fatal().
			Build()
	}

	// #nosec G304 -- source paths are resolved inside the project root
	source, err := os.ReadFile(f.RealSourcePath)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to read source").
			WithContext("path", f.RealSourcePath).
			Build()
	}

	res, err := renderer.Render(ctx, render.Request{
		Book:       c.book,
		Target:     c.target,
		File:       f,
		SourcePath: f.RealSourcePath,
		Source:     source,
	})
	if err != nil {
		if _, ok := foundationerrors.AsClassified(err); ok {
			return err
		}
		return foundationerrors.WrapError(err, foundationerrors.CategoryBuild, "failed to render source").
			WithContext("path", f.RealSourcePath).
			Fatal().
			Build()
	}

	f.SetContent(res.Content)
	for _, d := range res.Dependencies {
		f.AddDependency(d)
	}
	return c.WriteContent(f, dest)
}

// touchCache records f and the files it included. Includes are tracked as
// dependencies of the source so a changed include marks it changed.
func (c *Compiler) touchCache(f *book.File) error {
	if c.cache == nil {
		return nil
	}
	if err := c.cache.Touch(f.RealSourcePath); err != nil {
		return err
	}
	for _, d := range f.Dependencies {
		if err := c.cache.Touch(d); err != nil {
			return err
		}
		if err := c.cache.AddDependency(d, f.RealSourcePath); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) processImage(ctx context.Context, f *book.File, dest string) error {
	if fsutil.IsNewer(dest, f.RealSourcePath) {
		c.recordAction(metrics.FileSkipped)
		return nil
	}
	outcome, err := c.images.Process(ctx, f.RealSourcePath, dest)
	if err != nil {
		if _, ok := foundationerrors.AsClassified(err); ok {
			return err
		}
		return foundationerrors.WrapError(err, foundationerrors.CategoryBuild, "failed to process image").
			WithContext("path", f.RealSourcePath).
			Fatal().
			Build()
	}
	if outcome != nil && outcome.Resized {
		c.recordAction(metrics.FileResized)
		c.logger.DebugContext(ctx, "Downscaled image",
			logfields.Source(f.RealSourcePath),
			slog.Int("width", outcome.Width),
			slog.Int("height", outcome.Height))
		return nil
	}
	c.recordAction(metrics.FileCopied)
	return nil
}

// copyFile copies a static source unless the destination is up to date or
// already identical.
func (c *Compiler) copyFile(f *book.File, dest string) error {
	if fsutil.IsNewer(dest, f.RealSourcePath) {
		c.recordAction(metrics.FileSkipped)
		return nil
	}
	same, err := fsutil.SameContent(dest, f.RealSourcePath)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to compare files").
			WithContext("path", dest).
			Build()
	}
	if same {
		c.recordAction(metrics.FileUnchanged)
		return nil
	}
	c.logger.Debug("Copying file", logfields.Source(f.RealSourcePath), logfields.Destination(dest))
	if err := fsutil.CopyFile(f.RealSourcePath, dest); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to copy file").
			WithContext("path", f.RealSourcePath).
			Build()
	}
	c.recordAction(metrics.FileCopied)
	return nil
}

// WriteContent writes the content of f to dest unless dest already holds
// exactly these bytes.
func (c *Compiler) WriteContent(f *book.File, dest string) error {
	written, err := fsutil.WriteIfChanged(dest, f.Content())
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to write file").
			WithContext("path", dest).
			Build()
	}
	if !written {
		c.recordAction(metrics.FileUnchanged)
		return nil
	}
	c.logger.Debug("Wrote file", logfields.Destination(dest))
	c.recordAction(metrics.FileWritten)
	return nil
}

func (c *Compiler) recordAction(action metrics.FileAction) {
	c.recorder.IncFileAction(action)
	if c.run == nil {
		return
	}
	switch action {
	case metrics.FileWritten:
		c.run.Stats.Written++
	case metrics.FileUnchanged:
		c.run.Stats.Unchanged++
	case metrics.FileCopied:
		c.run.Stats.Copied++
	case metrics.FileResized:
		c.run.Stats.Resized++
	case metrics.FileSkipped:
		c.run.Stats.Skipped++
	case metrics.FileRemoved:
		c.run.Stats.Removed++
	}
}
