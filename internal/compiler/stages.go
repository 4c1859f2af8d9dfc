package compiler

import (
	"context"
	"path"
	"slices"

	"git.home.luguber.info/inful/bookbuilder/internal/book"
	"git.home.luguber.info/inful/bookbuilder/internal/epub"
	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
	"git.home.luguber.info/inful/bookbuilder/internal/metrics"
	"git.home.luguber.info/inful/bookbuilder/internal/observability"
	"git.home.luguber.info/inful/bookbuilder/internal/reconcile"
	"git.home.luguber.info/inful/bookbuilder/internal/util/sets"
)

// processToc processes the TOC units in pre-order and records the spine.
func (c *Compiler) processToc(ctx context.Context) error {
	for _, f := range c.target.TocFiles() {
		if _, err := c.DestinationPathOf(f); err != nil {
			return err
		}
		f = c.target.AddToAllFiles(f)
		c.spine = append(c.spine, f)
		if err := c.processFile(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// processTargetFiles expands pattern placeholders and processes every
// declared file of the target.
func (c *Compiler) processTargetFiles(ctx context.Context) error {
	for _, f := range slices.Clone(c.target.Files) {
		if f.OnlyOne || f.IsResolved() {
			continue
		}
		matches, err := c.FindFiles(f.SourcePattern, f.Group)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			observability.WarnContext(ctx, "Pattern matched no files", logfields.Pattern(f.SourcePattern))
		}
		units := make([]*book.File, 0, len(matches))
		for _, m := range matches {
			u := book.NewFile(f.SourcePattern, f.Group)
			u.RealSourcePath = m
			u.Properties = slices.Clone(f.Properties)
			units = append(units, u)
		}
		c.target.ReplaceFileWithFiles(f, units)
	}

	for _, f := range slices.Clone(c.target.Files) {
		if _, err := c.DestinationPathOf(f); err != nil {
			return err
		}
		f = c.target.AddToAllFiles(f)
		if err := c.processFile(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// processCover resolves the cover image and merges it with the unit of the
// same destination. A cover not otherwise part of the target is processed
// so the package contains it.
func (c *Compiler) processCover(ctx context.Context) error {
	cover := c.target.CoverImage
	if cover == nil {
		return nil
	}
	if _, err := c.DestinationPathOf(cover); err != nil {
		return err
	}
	return c.processFile(ctx, c.target.AddToAllFiles(cover))
}

// generateOtherFiles produces navigation, package document, mimetype and
// META-INF files.
func (c *Compiler) generateOtherFiles(ctx context.Context) error {
	nav, err := c.generators.Nav(c.book, c.target)
	if err != nil {
		return err
	}
	if err := c.processGenerated(ctx, nav, true); err != nil {
		return err
	}

	opf, err := c.generators.Package(c.book, c.target)
	if err != nil {
		return err
	}
	if err := c.processGenerated(ctx, opf, false); err != nil {
		return err
	}

	mimetype := book.NewGeneratedFile(epub.MimetypeDestination, []byte(epub.MimetypeContent))
	if err := c.processGenerated(ctx, mimetype, false); err != nil {
		return err
	}

	opfPath := path.Join(epub.ContentDir, opf.DestinationPath)
	files, err := c.generators.Container(c.book, c.target, opfPath)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := c.processGenerated(ctx, f, false); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) processGenerated(ctx context.Context, f *book.File, addToTarget bool) error {
	if f == nil || f.DestinationPath == "" {
		return foundationerrors.InternalError("generator returned a file without destination").Build()
	}
	if addToTarget {
		kept := c.target.AddToAllFiles(f)
		if kept != f {
			kept.SetContent(f.Content())
		}
		f = kept
	}
	return c.processFile(ctx, f)
}

// reconcile removes everything from the build directory that this run did
// not produce.
func (c *Compiler) reconcile(ctx context.Context) error {
	required := sets.New[string]()
	for _, f := range c.run.Files {
		required.Add(path.Clean(path.Join(epub.ContentDir, f.DestinationPath)))
	}

	res, err := reconcile.Reconcile(c.outputDir, required)
	if err != nil {
		return err
	}
	for _, p := range res.RemovedFiles {
		c.recordAction(metrics.FileRemoved)
		observability.InfoContext(ctx, "Removed unnecessary file", logfields.Path(p))
	}
	for _, p := range res.RemovedDirs {
		observability.DebugContext(ctx, "Removed empty directory", logfields.Path(p))
	}
	return nil
}

// saveCache drops cache records of files no longer part of the build and
// persists the cache.
func (c *Compiler) saveCache(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	keep := sets.New[string]()
	for _, f := range c.run.Files {
		if f.RealSourcePath != "" {
			keep.Add(f.RealSourcePath)
		}
		for _, d := range f.Dependencies {
			keep.Add(d)
		}
	}
	c.cache.Cleanup(keep)
	if err := c.cache.Save(); err != nil {
		return err
	}
	observability.DebugContext(ctx, "Saved file cache", logfields.Path(c.cache.Path()), logfields.Count(c.cache.Len()))
	return nil
}
