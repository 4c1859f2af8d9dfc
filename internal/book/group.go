package book

import (
	"path/filepath"
	"slices"
	"strings"
)

// Group restricts which extensions a source pattern may resolve to.
type Group string

const (
	GroupAny   Group = ""
	GroupText  Group = "text"
	GroupImage Group = "image"
	GroupFont  Group = "font"
	GroupStyle Group = "style"
)

// Source extensions handled by dedicated renderers.
const (
	TemplateExtension        = ".bade"
	ReducedTemplateExtension = ".rxhtml"
	MarkdownExtension        = ".md"
	StylesheetExtension      = ".styl"
)

var groupExtensions = map[Group][]string{
	GroupText:  {".xhtml", ".html", MarkdownExtension, TemplateExtension, ReducedTemplateExtension},
	GroupImage: {".png", ".jpg", ".jpeg"},
	GroupFont:  {".otf", ".ttf"},
	GroupStyle: {".css", StylesheetExtension},
}

var staticExtensions = []string{".xhtml", ".html", ".png", ".jpg", ".jpeg", ".otf", ".ttf", ".css"}

var renamedExtensions = map[string]string{
	StylesheetExtension:      ".css",
	TemplateExtension:        ".xhtml",
	ReducedTemplateExtension: ".xhtml",
	MarkdownExtension:        ".xhtml",
}

// Extensions returns the extensions of group. The second result is false for
// unknown groups; GroupAny yields nil and true.
func (g Group) Extensions() ([]string, bool) {
	if g == GroupAny {
		return nil, true
	}
	exts, ok := groupExtensions[g]
	return exts, ok
}

// Contains reports whether ext belongs to the group. GroupAny accepts everything.
func (g Group) Contains(ext string) bool {
	if g == GroupAny {
		return true
	}
	return slices.Contains(groupExtensions[g], strings.ToLower(ext))
}

// Valid reports whether g is a known group.
func (g Group) Valid() bool {
	_, ok := g.Extensions()
	return ok
}

// IsStaticExtension reports whether files with ext are copied verbatim.
func IsStaticExtension(ext string) bool {
	return slices.Contains(staticExtensions, strings.ToLower(ext))
}

// DestinationExtension maps a source extension to its output extension.
func DestinationExtension(ext string) string {
	if renamed, ok := renamedExtensions[strings.ToLower(ext)]; ok {
		return renamed
	}
	return ext
}

// RenameExtension replaces the extension of path according to the rename table.
func RenameExtension(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return path
	}
	return strings.TrimSuffix(path, ext) + DestinationExtension(ext)
}
