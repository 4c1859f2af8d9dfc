// Package reconcile makes a build output directory contain exactly the files
// of the current build.
package reconcile

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
	"git.home.luguber.info/inful/bookbuilder/internal/util/sets"
)

// Result lists what Reconcile removed, relative to the output directory.
type Result struct {
	RemovedFiles []string
	RemovedDirs  []string
}

// Reconcile removes every file under outputDir whose path relative to
// outputDir is not in required, hidden files included, and then removes
// empty directories until none are left. outputDir itself is kept.
func Reconcile(outputDir string, required sets.Set[string]) (*Result, error) {
	res := &Result{}

	var files []string
	err := filepath.WalkDir(outputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(outputDir, path)
		if err != nil {
			return err
		}
		if !required.Has(filepath.ToSlash(rel)) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to scan output directory").
			WithContext("path", outputDir).
			Build()
	}

	sort.Strings(files)
	for _, rel := range files {
		slog.Info("Removing unnecessary file", logfields.Path(rel))
		if err := os.Remove(filepath.Join(outputDir, rel)); err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to remove file").
				WithContext("path", rel).
				Build()
		}
		res.RemovedFiles = append(res.RemovedFiles, filepath.ToSlash(rel))
	}

	for {
		removed, err := removeEmptyDirs(outputDir)
		if err != nil {
			return nil, err
		}
		if len(removed) == 0 {
			break
		}
		res.RemovedDirs = append(res.RemovedDirs, removed...)
	}
	return res, nil
}

// removeEmptyDirs removes the directories below root that are empty now,
// deepest first, and returns them.
func removeEmptyDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to scan output directory").
			WithContext("path", root).
			Build()
	}

	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	var removed []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to read directory").
				WithContext("path", dir).
				Build()
		}
		if len(entries) > 0 {
			continue
		}
		if err := os.Remove(dir); err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to remove directory").
				WithContext("path", dir).
				Build()
		}
		rel, _ := filepath.Rel(root, dir)
		slog.Debug("Removed empty directory", logfields.Path(rel))
		removed = append(removed, filepath.ToSlash(rel))
	}
	return removed, nil
}
