package book

import (
	"slices"
	"strings"
)

// DefaultTargetName names the implicit target of a book without sub-targets.
const DefaultTargetName = "default"

// TocItem is a node of the table of contents.
type TocItem struct {
	Title    string
	File     *File
	Children []*TocItem
}

// Walk visits item and its descendants in pre-order. Returning false from
// fn stops the walk.
func (t *TocItem) Walk(fn func(item *TocItem, depth int) bool) {
	t.walk(fn, 0)
}

func (t *TocItem) walk(fn func(*TocItem, int) bool, depth int) bool {
	if t == nil {
		return true
	}
	if !fn(t, depth) {
		return false
	}
	for _, c := range t.Children {
		if !c.walk(fn, depth+1) {
			return false
		}
	}
	return true
}

// Files returns the files referenced by the tree in pre-order.
func (t *TocItem) Files() []*File {
	var out []*File
	t.Walk(func(item *TocItem, _ int) bool {
		if item.File != nil {
			out = append(out, item.File)
		}
		return true
	})
	return out
}

// Label returns the title, falling back to the file title or source pattern.
func (t *TocItem) Label() string {
	switch {
	case t.Title != "":
		return t.Title
	case t.File != nil && t.File.Title != "":
		return t.File.Title
	case t.File != nil:
		return t.File.SourcePattern
	default:
		return ""
	}
}

// Target is one build variant of a book.
type Target struct {
	Name       string
	IsDefault  bool
	ISBN       string
	RootToc    *TocItem
	Files      []*File
	CoverImage *File

	allFiles []*File
}

// NewTarget returns an empty target with a root TOC node.
func NewTarget(name string) *Target {
	return &Target{Name: name, RootToc: &TocItem{}}
}

// AllFiles returns every unit added to the target, in insertion order.
func (t *Target) AllFiles() []*File {
	return slices.Clone(t.allFiles)
}

// AddToAllFiles adds f unless an equivalent unit is already present, in
// which case f is merged into it. The unit kept in the collection is returned.
func (t *Target) AddToAllFiles(f *File) *File {
	if existing := t.Find(f); existing != nil {
		existing.MergeWith(f)
		return existing
	}
	t.allFiles = append(t.allFiles, f)
	return f
}

// Find returns the unit in the collection equivalent to f, or nil.
func (t *Target) Find(f *File) *File {
	for _, existing := range t.allFiles {
		if existing.SameAs(f) {
			return existing
		}
	}
	return nil
}

// FindByDestination returns the unit with the given destination path, or nil.
func (t *Target) FindByDestination(dest string) *File {
	for _, existing := range t.allFiles {
		if existing.DestinationPath == dest {
			return existing
		}
	}
	return nil
}

// ReplaceFileWithFiles replaces placeholder in Files by files, keeping order.
// It reports whether the placeholder was found.
func (t *Target) ReplaceFileWithFiles(placeholder *File, files []*File) bool {
	i := slices.Index(t.Files, placeholder)
	if i < 0 {
		return false
	}
	t.Files = slices.Replace(t.Files, i, i+1, files...)
	return true
}

// TocFiles returns the files referenced from the TOC in reading order.
func (t *Target) TocFiles() []*File {
	return t.RootToc.Files()
}

// Metadata is the descriptive information of a book.
type Metadata struct {
	Title          string
	Subtitle       string
	Authors        []string
	Publisher      string
	Language       string
	ISBN           string
	PrintISBN      string
	Published      string
	Identifier     string
	OutputBaseName string
	BuildVersion   string
}

// Book is a loaded book project.
type Book struct {
	Metadata

	// Root is the project directory sources are resolved against.
	Root string
	// SpecPath is the bookspec the book was loaded from, if any.
	SpecPath string

	defaultTarget *Target
	subTargets    []*Target
}

// New returns a book rooted at root with a single default target.
func New(root string, meta Metadata) *Book {
	def := NewTarget(DefaultTargetName)
	def.IsDefault = true
	return &Book{Metadata: meta, Root: root, defaultTarget: def}
}

// DefaultTarget returns the implicit target.
func (b *Book) DefaultTarget() *Target {
	return b.defaultTarget
}

// AddTarget registers a sub-target.
func (b *Book) AddTarget(t *Target) {
	t.IsDefault = false
	b.subTargets = append(b.subTargets, t)
}

// Targets returns the sub-targets, or the default target when none exist.
func (b *Book) Targets() []*Target {
	if len(b.subTargets) == 0 {
		return []*Target{b.defaultTarget}
	}
	return slices.Clone(b.subTargets)
}

// Target returns the target named name. The default target is found by its
// name only when the book has no sub-targets.
func (b *Book) Target(name string) (*Target, bool) {
	for _, t := range b.Targets() {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return nil, false
}

// IdentifierFor returns the ISBN of target, falling back to the book ISBN
// and then to the explicit identifier.
func (b *Book) IdentifierFor(t *Target) string {
	if t != nil && t.ISBN != "" {
		return t.ISBN
	}
	if b.ISBN != "" {
		return b.ISBN
	}
	return b.Identifier
}
