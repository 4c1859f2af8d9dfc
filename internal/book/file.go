package book

import (
	"path/filepath"
	"slices"
)

// File is one content unit of the book. A File starts as a source pattern
// and is resolved to a real source path and a destination path relative to
// the content root. Generated files carry content and may have no source.
type File struct {
	SourcePattern   string
	RealSourcePath  string
	DestinationPath string
	Group           Group
	Dependencies    []string
	OnlyOne         bool
	Title           string
	Properties      []string

	content    []byte
	hasContent bool
}

// NewFile returns a file that must resolve to exactly one source.
func NewFile(pattern string, group Group) *File {
	return &File{SourcePattern: pattern, Group: group, OnlyOne: true}
}

// NewPatternFile returns a placeholder expanded to every matching source.
func NewPatternFile(pattern string, group Group) *File {
	return &File{SourcePattern: pattern, Group: group}
}

// NewGeneratedFile returns a file with content and a fixed destination.
func NewGeneratedFile(destination string, content []byte) *File {
	f := &File{DestinationPath: destination, OnlyOne: true}
	f.SetContent(content)
	return f
}

// HasContent reports whether content has been generated.
func (f *File) HasContent() bool {
	return f.hasContent
}

// Content returns the generated content.
func (f *File) Content() []byte {
	return f.content
}

// SetContent stores generated content.
func (f *File) SetContent(b []byte) {
	f.content = b
	f.hasContent = true
}

// SetContentString stores generated content.
func (f *File) SetContentString(s string) {
	f.SetContent([]byte(s))
}

// ClearContent drops generated content.
func (f *File) ClearContent() {
	f.content = nil
	f.hasContent = false
}

// IsResolved reports whether the source has been located.
func (f *File) IsResolved() bool {
	return f.RealSourcePath != ""
}

// Extension returns the extension of the real source, falling back to the
// destination.
func (f *File) Extension() string {
	if f.RealSourcePath != "" {
		return filepath.Ext(f.RealSourcePath)
	}
	return filepath.Ext(f.DestinationPath)
}

// AddDependency appends path unless already present.
func (f *File) AddDependency(path string) {
	if !slices.Contains(f.Dependencies, path) {
		f.Dependencies = append(f.Dependencies, path)
	}
}

// AddProperty appends a manifest property unless already present.
func (f *File) AddProperty(p string) {
	if !slices.Contains(f.Properties, p) {
		f.Properties = append(f.Properties, p)
	}
}

// HasProperty reports whether the manifest property is set.
func (f *File) HasProperty(p string) bool {
	return slices.Contains(f.Properties, p)
}

// MergeWith fills unset fields from other and unions dependencies and
// properties. Content is taken from other only when f has none.
func (f *File) MergeWith(other *File) {
	if other == nil || other == f {
		return
	}
	if f.SourcePattern == "" {
		f.SourcePattern = other.SourcePattern
	}
	if f.RealSourcePath == "" {
		f.RealSourcePath = other.RealSourcePath
	}
	if f.DestinationPath == "" {
		f.DestinationPath = other.DestinationPath
	}
	if f.Group == GroupAny {
		f.Group = other.Group
	}
	if f.Title == "" {
		f.Title = other.Title
	}
	f.OnlyOne = f.OnlyOne || other.OnlyOne
	for _, d := range other.Dependencies {
		f.AddDependency(d)
	}
	for _, p := range other.Properties {
		f.AddProperty(p)
	}
	if !f.hasContent && other.hasContent {
		f.SetContent(other.content)
	}
}

// SameAs reports whether f and other describe the same content unit:
// the same pointer, the same destination, or two unresolved files with the
// same source pattern.
func (f *File) SameAs(other *File) bool {
	if f == other {
		return true
	}
	if f == nil || other == nil {
		return false
	}
	if f.DestinationPath != "" && f.DestinationPath == other.DestinationPath {
		return true
	}
	return !f.IsResolved() && !other.IsResolved() &&
		f.DestinationPath == "" && other.DestinationPath == "" &&
		f.SourcePattern != "" && f.SourcePattern == other.SourcePattern
}
