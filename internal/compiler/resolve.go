package compiler

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/bookbuilder/internal/book"
	"git.home.luguber.info/inful/bookbuilder/internal/epub"
	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
)

// DestinationPathOf resolves f to exactly one source on first use and
// returns the absolute output path of f. The destination is the source path
// relative to the project root with the extension renamed; once set it is
// reused verbatim.
func (c *Compiler) DestinationPathOf(f *book.File) (string, error) {
	if f.DestinationPath == "" {
		source := f.RealSourcePath
		if source == "" {
			matches, err := c.FindFiles(f.SourcePattern, f.Group)
			if err != nil {
				return "", err
			}
			switch len(matches) {
			case 0:
				return "", foundationerrors.ResolveError(fmt.Sprintf("not found file matching pattern %q", f.SourcePattern)).
					WithContext("pattern", f.SourcePattern).
					WithContext("group", string(f.Group)).
					Fatal().
					Build()
			case 1:
				source = matches[0]
			default:
				return "", foundationerrors.ResolveError(fmt.Sprintf("found too many files for pattern %q", f.SourcePattern)).
					WithContext("pattern", f.SourcePattern).
					WithContext("matches", strings.Join(matches, ", ")).
					Fatal().
					Build()
			}
		}

		rel, err := c.relativeSource(source)
		if err != nil {
			return "", err
		}
		f.RealSourcePath = source
		f.DestinationPath = norm.NFC.String(filepath.ToSlash(book.RenameExtension(rel)))
	}
	return filepath.Join(c.outputDir, epub.ContentDir, filepath.FromSlash(f.DestinationPath)), nil
}

func (c *Compiler) relativeSource(source string) (string, error) {
	if !filepath.IsAbs(source) {
		source = filepath.Join(c.root, source)
	}
	rel, err := filepath.Rel(c.root, source)
	if err != nil || !filepath.IsLocal(rel) {
		return "", foundationerrors.ResolveError("source is outside the project root").
			WithContext("path", source).
			Fatal().
			Build()
	}
	return rel, nil
}

// FindFiles returns the absolute paths of project files matching
// **/pattern, restricted to the extensions of group, sorted. When nothing
// matches, **/pattern.* is tried so patterns may omit the extension.
func (c *Compiler) FindFiles(pattern string, group book.Group) ([]string, error) {
	if !group.Valid() {
		return nil, foundationerrors.ResolveError(fmt.Sprintf("unknown file group %q", group)).
			WithContext("pattern", pattern).
			Fatal().
			Build()
	}
	pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")
	if pattern == "" {
		return nil, foundationerrors.ResolveError("empty source pattern").Fatal().Build()
	}

	sources, err := c.sourceFiles()
	if err != nil {
		return nil, err
	}

	matches, err := matchSources(sources, "**/"+pattern, group)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		matches, err = matchSources(sources, "**/"+pattern+".*", group)
		if err != nil {
			return nil, err
		}
	}

	out := make([]string, len(matches))
	for i, rel := range matches {
		out[i] = filepath.Join(c.root, filepath.FromSlash(rel))
	}
	slices.Sort(out)
	return out, nil
}

func matchSources(sources []string, pattern string, group book.Group) ([]string, error) {
	pattern = norm.NFC.String(pattern)
	if !doublestar.ValidatePattern(pattern) {
		return nil, foundationerrors.ResolveError("invalid source pattern").
			WithContext("pattern", pattern).
			Fatal().
			Build()
	}
	var out []string
	for _, rel := range sources {
		if !group.Contains(filepath.Ext(rel)) {
			continue
		}
		ok, err := doublestar.Match(pattern, norm.NFC.String(rel))
		if err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryResolve, "invalid source pattern").
				WithContext("pattern", pattern).
				Build()
		}
		if ok {
			out = append(out, rel)
		}
	}
	return out, nil
}

// sourceFiles lists the project files once per run as slash separated
// paths relative to the root. Hidden entries, the working directory, the
// build directory and excluded directories are skipped.
func (c *Compiler) sourceFiles() ([]string, error) {
	if c.sources != nil {
		return c.sources, nil
	}
	sources := []string{}
	err := filepath.WalkDir(c.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == c.root {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") || name == WorkingDirName || (c.outputDir != "" && p == c.outputDir) ||
				slices.Contains(c.excluded, p) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		rel, err := filepath.Rel(c.root, p)
		if err != nil {
			return err
		}
		sources = append(sources, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to list project files").
			WithContext("path", c.root).
			Build()
	}
	c.sources = sources
	return sources, nil
}
