package book

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
)

// SpecExtension is the file extension of book descriptions.
const SpecExtension = ".bookspec"

// CoverImageProperty marks the cover image in the package manifest.
const CoverImageProperty = "cover-image"

// Spec is the YAML document describing a book.
type Spec struct {
	Title          string       `yaml:"title"`
	Subtitle       string       `yaml:"subtitle,omitempty"`
	Authors        []string     `yaml:"authors,omitempty"`
	Publisher      string       `yaml:"publisher,omitempty"`
	Language       string       `yaml:"language,omitempty"`
	ISBN           string       `yaml:"isbn,omitempty"`
	PrintISBN      string       `yaml:"print_isbn,omitempty"`
	Published      string       `yaml:"published,omitempty"`
	Identifier     string       `yaml:"identifier,omitempty"`
	OutputBaseName string       `yaml:"output_base_name,omitempty"`
	BuildVersion   string       `yaml:"build_version,omitempty"`
	CoverImage     string       `yaml:"cover_image,omitempty"`
	Toc            []TocSpec    `yaml:"toc"`
	Files          []FileSpec   `yaml:"files,omitempty"`
	Targets        []TargetSpec `yaml:"targets,omitempty"`
}

// TocSpec is one table of contents entry. File is a source pattern that must
// resolve to exactly one file.
type TocSpec struct {
	Title    string    `yaml:"title,omitempty"`
	File     string    `yaml:"file,omitempty"`
	Group    Group     `yaml:"group,omitempty"`
	Children []TocSpec `yaml:"children,omitempty"`
}

// FileSpec declares additional files. A plain string is accepted as a
// pattern expanded to every match.
type FileSpec struct {
	Pattern    string   `yaml:"pattern"`
	Group      Group    `yaml:"group,omitempty"`
	OnlyOne    bool     `yaml:"only_one,omitempty"`
	Properties []string `yaml:"properties,omitempty"`
}

// UnmarshalYAML accepts either a mapping or a bare pattern string.
func (f *FileSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		f.Pattern = value.Value
		return nil
	}
	type plain FileSpec
	return value.Decode((*plain)(f))
}

// TargetSpec declares a build variant. Empty fields inherit from the book.
type TargetSpec struct {
	Name       string     `yaml:"name"`
	ISBN       string     `yaml:"isbn,omitempty"`
	CoverImage string     `yaml:"cover_image,omitempty"`
	Files      []FileSpec `yaml:"files,omitempty"`
	Toc        []TocSpec  `yaml:"toc,omitempty"`
}

// Discover returns the single bookspec in dir.
func Discover(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+SpecExtension))
	if err != nil {
		return "", foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to search for bookspec").
			WithContext("path", dir).
			Build()
	}
	switch len(matches) {
	case 0:
		return "", foundationerrors.ConfigError("no bookspec found").
			WithContext("path", dir).
			Build()
	case 1:
		return matches[0], nil
	default:
		return "", foundationerrors.ConfigError(fmt.Sprintf("multiple bookspecs found: %s", strings.Join(matches, ", "))).
			WithContext("path", dir).
			Build()
	}
}

// ParseSpec decodes a bookspec after expanding environment variables.
func ParseSpec(data []byte) (*Spec, error) {
	expanded := os.ExpandEnv(string(data))

	var spec Spec
	if err := yaml.Unmarshal([]byte(expanded), &spec); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to parse bookspec").Build()
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks required fields, groups and target names.
func (s *Spec) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return foundationerrors.ConfigError("bookspec title is required").Build()
	}
	seen := make(map[string]bool, len(s.Targets))
	for _, t := range s.Targets {
		if t.Name == "" {
			return foundationerrors.ConfigError("target name is required").Build()
		}
		if t.Name == DefaultTargetName || seen[t.Name] {
			return foundationerrors.ConfigError("duplicate target name").
				WithContext("target", t.Name).
				Build()
		}
		seen[t.Name] = true
		if err := validateFiles(t.Files); err != nil {
			return err
		}
		if err := validateToc(t.Toc); err != nil {
			return err
		}
	}
	if err := validateFiles(s.Files); err != nil {
		return err
	}
	return validateToc(s.Toc)
}

func validateFiles(files []FileSpec) error {
	for _, f := range files {
		if f.Pattern == "" {
			return foundationerrors.ConfigError("file entry without pattern").Build()
		}
		if !f.Group.Valid() {
			return foundationerrors.ConfigError("unknown file group").
				WithContext("pattern", f.Pattern).
				WithContext("group", string(f.Group)).
				Build()
		}
	}
	return nil
}

func validateToc(items []TocSpec) error {
	for _, item := range items {
		if item.File == "" && item.Title == "" {
			return foundationerrors.ConfigError("toc entry needs a file or a title").Build()
		}
		if !item.Group.Valid() {
			return foundationerrors.ConfigError("unknown file group").
				WithContext("pattern", item.File).
				WithContext("group", string(item.Group)).
				Build()
		}
		if err := validateToc(item.Children); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the bookspec at path. The project root is the directory
// containing it.
func Load(path string) (*Book, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid bookspec path").
			WithContext("path", path).
			Build()
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to read bookspec").
			WithContext("path", abs).
			Build()
	}
	spec, err := ParseSpec(data)
	if err != nil {
		return nil, err
	}
	b := spec.Build(filepath.Dir(abs))
	b.SpecPath = abs
	return b, nil
}

// Build creates the book and its targets. Every target gets its own File
// values so builds of different targets never share state.
func (s *Spec) Build(root string) *Book {
	b := New(root, Metadata{
		Title:          s.Title,
		Subtitle:       s.Subtitle,
		Authors:        s.Authors,
		Publisher:      s.Publisher,
		Language:       s.Language,
		ISBN:           s.ISBN,
		PrintISBN:      s.PrintISBN,
		Published:      s.Published,
		Identifier:     s.Identifier,
		OutputBaseName: s.OutputBaseName,
		BuildVersion:   s.BuildVersion,
	})

	s.populate(b.DefaultTarget(), s.Toc, s.Files, s.CoverImage)

	for _, ts := range s.Targets {
		t := NewTarget(ts.Name)
		t.ISBN = ts.ISBN

		toc := s.Toc
		if len(ts.Toc) > 0 {
			toc = ts.Toc
		}
		cover := s.CoverImage
		if ts.CoverImage != "" {
			cover = ts.CoverImage
		}
		files := append(append([]FileSpec{}, s.Files...), ts.Files...)

		s.populate(t, toc, files, cover)
		b.AddTarget(t)
	}
	return b
}

func (s *Spec) populate(t *Target, toc []TocSpec, files []FileSpec, cover string) {
	t.RootToc = &TocItem{Title: s.Title, Children: buildToc(toc)}
	for _, fs := range files {
		f := NewPatternFile(fs.Pattern, fs.Group)
		f.OnlyOne = fs.OnlyOne
		for _, p := range fs.Properties {
			f.AddProperty(p)
		}
		t.Files = append(t.Files, f)
	}
	if cover != "" {
		t.CoverImage = NewFile(cover, GroupImage)
		t.CoverImage.AddProperty(CoverImageProperty)
	}
}

func buildToc(items []TocSpec) []*TocItem {
	out := make([]*TocItem, 0, len(items))
	for _, item := range items {
		node := &TocItem{Title: item.Title, Children: buildToc(item.Children)}
		if item.File != "" {
			group := item.Group
			if group == GroupAny {
				group = GroupText
			}
			node.File = NewFile(item.File, group)
			node.File.Title = item.Title
		}
		out = append(out, node)
	}
	return out
}
