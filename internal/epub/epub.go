// Package epub generates the descriptor documents of an EPUB 3 package:
// the navigation document, the package document (OPF) and META-INF files.
package epub

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/bookbuilder/internal/book"
)

// Layout of the package relative to the build output directory.
const (
	ContentDir           = "OEBPS"
	MimetypeDestination  = "../mimetype"
	MimetypeContent      = "application/epub+zip"
	ContainerDestination = "../META-INF/container.xml"
	OPFDestination       = "content.opf"
	NavDestination       = "nav.xhtml"
	NavProperty          = "nav"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

var mediaTypes = map[string]string{
	".xhtml": "application/xhtml+xml",
	".html":  "application/xhtml+xml",
	".css":   "text/css",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".svg":   "image/svg+xml",
	".otf":   "font/otf",
	".ttf":   "font/ttf",
	".woff":  "font/woff",
	".js":    "application/javascript",
	".ncx":   "application/x-dtbncx+xml",
}

// MediaType returns the media type for the extension of path.
func MediaType(path string) string {
	if mt, ok := mediaTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mt
	}
	return "application/octet-stream"
}

// Generator produces descriptor files for a book target.
type Generator struct {
	// Clock returns the modification timestamp of the package. When nil the
	// newest modification time of the book sources is used, so unchanged
	// sources produce an unchanged package document.
	Clock func() time.Time
}

// NewGenerator returns a generator with default settings.
func NewGenerator() *Generator {
	return &Generator{}
}

// IsIBooks reports whether the target produces the Apple Books flavour.
func IsIBooks(t *book.Target) bool {
	return t != nil && strings.EqualFold(t.Name, "ibooks")
}

func (g *Generator) modified(b *book.Book, t *book.Target) time.Time {
	if g.Clock != nil {
		return g.Clock().UTC()
	}
	var newest time.Time
	consider := func(path string) {
		if path == "" {
			return
		}
		if info, err := os.Stat(path); err == nil && info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}
	consider(b.SpecPath)
	for _, f := range t.AllFiles() {
		consider(f.RealSourcePath)
	}
	if newest.IsZero() {
		newest = time.Now()
	}
	return newest.UTC()
}

func hasFonts(t *book.Target) bool {
	for _, f := range t.AllFiles() {
		if book.GroupFont.Contains(filepath.Ext(f.DestinationPath)) {
			return true
		}
	}
	return false
}
