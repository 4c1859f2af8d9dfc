package filecache

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
	"git.home.luguber.info/inful/bookbuilder/internal/util/sets"
)

// DefaultFileName is the cache file name inside the working directory.
const DefaultFileName = "file_stats.yml"

// Database maps tracked paths to their last recorded stat.
// A Database is not safe for concurrent use.
type Database struct {
	path    string
	records map[string]*FileStat
	logger  *slog.Logger
}

// CheckOption tunes a single IsChanged query.
type CheckOption func(*checkOptions)

type checkOptions struct {
	transitive       bool
	defaultIfUnknown bool
}

// NonTransitive restricts the check to the path itself.
func NonTransitive() CheckOption {
	return func(o *checkOptions) { o.transitive = false }
}

// DefaultIfUnknown sets the answer for paths without a record.
func DefaultIfUnknown(changed bool) CheckOption {
	return func(o *checkOptions) { o.defaultIfUnknown = changed }
}

// New returns an empty database bound to path.
func New(path string) *Database {
	return &Database{
		path:    path,
		records: make(map[string]*FileStat),
		logger:  slog.Default(),
	}
}

// Open loads the database stored at path. A missing or unreadable file
// yields an empty database.
func Open(path string) *Database {
	db := New(path)

	data, err := os.ReadFile(path)
	if err != nil {
		db.logger.Debug("File cache not loaded", logfields.Path(path), logfields.Error(err))
		return db
	}

	records := make(map[string]*FileStat)
	if err := yaml.Unmarshal(data, &records); err != nil {
		db.logger.Debug("File cache unreadable, starting empty", logfields.Path(path), logfields.Error(err))
		return db
	}

	for p, rec := range records {
		if rec == nil {
			continue
		}
		if rec.Path == "" {
			rec.Path = p
		}
		db.records[p] = rec
	}
	return db
}

// WithLogger sets a custom logger.
func (d *Database) WithLogger(logger *slog.Logger) *Database {
	d.logger = logger
	return d
}

// Path returns the file the database is saved to.
func (d *Database) Path() string {
	return d.path
}

// Len returns the number of tracked paths.
func (d *Database) Len() int {
	return len(d.records)
}

// RecordFor returns the stored record for path, or nil.
func (d *Database) RecordFor(path string) *FileStat {
	return d.records[path]
}

// IsChanged reports whether path changed since it was last touched.
// Dependencies are checked transitively unless NonTransitive is given;
// untracked dependencies never count as changed.
func (d *Database) IsChanged(path string, opts ...CheckOption) bool {
	o := checkOptions{transitive: true, defaultIfUnknown: true}
	for _, opt := range opts {
		opt(&o)
	}
	return d.isChanged(path, o, sets.New[string]())
}

// IsUpToDate is the negation of IsChanged.
func (d *Database) IsUpToDate(path string, opts ...CheckOption) bool {
	return !d.IsChanged(path, opts...)
}

func (d *Database) isChanged(path string, o checkOptions, visited sets.Set[string]) bool {
	if visited.Has(path) {
		return false
	}
	visited.Add(path)

	rec, ok := d.records[path]
	if !ok {
		return o.defaultIfUnknown
	}

	current, err := NewFileStat(path)
	if err != nil {
		return true
	}
	if !rec.SameStat(current) {
		return true
	}
	if !o.transitive {
		return false
	}

	depOpts := checkOptions{transitive: true, defaultIfUnknown: false}
	for _, dep := range rec.DependencyPaths {
		if d.isChanged(dep, depOpts, visited) {
			return true
		}
	}
	return false
}

// Touch records the current stat of path, keeping its dependency list.
func (d *Database) Touch(path string) error {
	rec, err := NewFileStat(path)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to stat file").
			WithContext("path", path).
			Build()
	}
	if old, ok := d.records[path]; ok {
		rec.DependencyPaths = old.DependencyPaths
	}
	d.records[path] = rec
	return nil
}

// AddDependency records that to depends on path. The record for to must
// exist. A record for path is created when missing; a path that does not
// exist on disk is tolerated.
func (d *Database) AddDependency(path, to string) error {
	target, ok := d.records[to]
	if !ok {
		return foundationerrors.ConfigError("dependency target is not tracked").
			WithContext("path", to).
			WithContext("dependency", path).
			Build()
	}
	target.addDependency(path)

	if _, ok := d.records[path]; ok {
		return nil
	}
	if err := d.Touch(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Cleanup drops every record not in keep and prunes dependency lists of the
// surviving records to members of keep. One pass over all survivors covers
// every record a walk from keep through dependency edges could reach, so no
// recursion or cycle guard is needed.
func (d *Database) Cleanup(keep sets.Set[string]) {
	for p := range d.records {
		if !keep.Has(p) {
			delete(d.records, p)
		}
	}
	for _, rec := range d.records {
		kept := rec.DependencyPaths[:0]
		for _, dep := range rec.DependencyPaths {
			if keep.Has(dep) {
				kept = append(kept, dep)
			}
		}
		rec.DependencyPaths = kept
	}
}

// Paths returns all tracked paths in sorted order.
func (d *Database) Paths() []string {
	out := make([]string, 0, len(d.records))
	for p := range d.records {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Save writes the database to the path it was opened from.
func (d *Database) Save() error {
	return d.SaveTo(d.path)
}

// SaveTo writes the database to path, creating parent directories.
func (d *Database) SaveTo(path string) error {
	data, err := yaml.Marshal(d.records)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryCache, "failed to encode file cache").Build()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to create cache directory").
			WithContext("path", path).
			Build()
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to write file cache").
			WithContext("path", path).
			Build()
	}
	d.logger.Debug("File cache saved", logfields.Path(path), logfields.Count(len(d.records)))
	return nil
}
