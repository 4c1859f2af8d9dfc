package epub

import (
	"encoding/xml"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/bookbuilder/internal/book"
	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
)

// UniqueIdentifierID is the id of the dc:identifier element.
const UniqueIdentifierID = "bookid"

const ibooksPrefix = "ibooks: http://vocabulary.itunes.apple.com/rdf/ibooks/vocabulary-extensions-1.0/"

type opfPackage struct {
	XMLName          xml.Name    `xml:"package"`
	Xmlns            string      `xml:"xmlns,attr"`
	Version          string      `xml:"version,attr"`
	UniqueIdentifier string      `xml:"unique-identifier,attr"`
	Prefix           string      `xml:"prefix,attr,omitempty"`
	Lang             string      `xml:"xml:lang,attr,omitempty"`
	Metadata         opfMetadata `xml:"metadata"`
	Manifest         []opfItem   `xml:"manifest>item"`
	Spine            opfSpine    `xml:"spine"`
}

type opfMetadata struct {
	XmlnsDC    string    `xml:"xmlns:dc,attr"`
	Identifier opfText   `xml:"dc:identifier"`
	Titles     []opfText `xml:"dc:title"`
	Creators   []opfText `xml:"dc:creator"`
	Publisher  string    `xml:"dc:publisher,omitempty"`
	Language   string    `xml:"dc:language"`
	Date       string    `xml:"dc:date,omitempty"`
	Sources    []opfText `xml:"dc:source"`
	Metas      []opfMeta `xml:"meta"`
}

type opfText struct {
	ID    string `xml:"id,attr,omitempty"`
	Value string `xml:",chardata"`
}

type opfMeta struct {
	Name     string `xml:"name,attr,omitempty"`
	Content  string `xml:"content,attr,omitempty"`
	Property string `xml:"property,attr,omitempty"`
	Refines  string `xml:"refines,attr,omitempty"`
	Value    string `xml:",chardata"`
}

type opfItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr,omitempty"`
}

type opfSpine struct {
	ItemRefs []opfItemRef `xml:"itemref"`
}

type opfItemRef struct {
	IDRef string `xml:"idref,attr"`
}

var idUnsafe = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Identifier returns the unique identifier of the target's package: its
// ISBN as a URN, else the explicit identifier, else a name based UUID
// derived from the title and target.
func Identifier(b *book.Book, t *book.Target) string {
	if t != nil && t.ISBN != "" {
		return "urn:isbn:" + t.ISBN
	}
	if b.ISBN != "" {
		return "urn:isbn:" + b.ISBN
	}
	if b.Identifier != "" {
		return b.Identifier
	}
	name := b.Title
	if t != nil {
		name += "/" + t.Name
	}
	return "urn:uuid:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// Package generates the package document listing every file of the target
// and the reading order of its TOC.
func (g *Generator) Package(b *book.Book, t *book.Target) (*book.File, error) {
	lang := b.Language
	if lang == "" {
		lang = "en"
	}

	pkg := opfPackage{
		Xmlns:            "http://www.idpf.org/2007/opf",
		Version:          "3.0",
		UniqueIdentifier: UniqueIdentifierID,
		Lang:             lang,
		Metadata: opfMetadata{
			XmlnsDC:    "http://purl.org/dc/elements/1.1/",
			Identifier: opfText{ID: UniqueIdentifierID, Value: Identifier(b, t)},
			Titles:     []opfText{{ID: "title", Value: b.Title}},
			Publisher:  b.Publisher,
			Language:   lang,
			Date:       b.Published,
		},
	}
	meta := &pkg.Metadata
	meta.Metas = append(meta.Metas, opfMeta{Property: "title-type", Refines: "#title", Value: "main"})
	if b.Subtitle != "" {
		meta.Titles = append(meta.Titles, opfText{ID: "subtitle", Value: b.Subtitle})
		meta.Metas = append(meta.Metas, opfMeta{Property: "title-type", Refines: "#subtitle", Value: "subtitle"})
	}
	for i, author := range b.Authors {
		id := fmt.Sprintf("creator-%d", i+1)
		meta.Creators = append(meta.Creators, opfText{ID: id, Value: author})
		meta.Metas = append(meta.Metas,
			opfMeta{Property: "file-as", Refines: "#" + id, Value: fileAs(author)},
			opfMeta{Property: "role", Refines: "#" + id, Value: "aut"},
		)
	}
	if b.PrintISBN != "" {
		meta.Sources = append(meta.Sources, opfText{Value: "urn:isbn:" + b.PrintISBN})
	}
	meta.Metas = append(meta.Metas, opfMeta{
		Property: "dcterms:modified",
		Value:    g.modified(b, t).Format("2006-01-02T15:04:05Z"),
	})
	if IsIBooks(t) {
		pkg.Prefix = ibooksPrefix
		if b.BuildVersion != "" {
			meta.Metas = append(meta.Metas, opfMeta{Property: "ibooks:version", Value: b.BuildVersion})
		}
		if hasFonts(t) {
			meta.Metas = append(meta.Metas, opfMeta{Property: "ibooks:specified-fonts", Value: "true"})
		}
	}

	ids := make(map[string]string)
	used := make(map[string]bool)
	for _, f := range t.AllFiles() {
		dest := f.DestinationPath
		if dest == "" || dest == OPFDestination || strings.HasPrefix(dest, "../") {
			continue
		}
		if _, dup := ids[dest]; dup {
			continue
		}
		id := manifestID(dest, used)
		ids[dest] = id
		pkg.Manifest = append(pkg.Manifest, opfItem{
			ID:         id,
			Href:       uriPath(dest),
			MediaType:  MediaType(dest),
			Properties: strings.Join(f.Properties, " "),
		})
		if f.HasProperty(book.CoverImageProperty) {
			meta.Metas = append(meta.Metas, opfMeta{Name: "cover", Content: id})
		}
	}

	seen := make(map[string]bool)
	for _, f := range t.TocFiles() {
		id, ok := ids[f.DestinationPath]
		if !ok {
			return nil, foundationerrors.BuildError("spine file missing from manifest").
				WithContext("pattern", f.SourcePattern).
				WithContext("target", t.Name).
				Build()
		}
		if seen[id] || MediaType(f.DestinationPath) != "application/xhtml+xml" {
			continue
		}
		seen[id] = true
		pkg.Spine.ItemRefs = append(pkg.Spine.ItemRefs, opfItemRef{IDRef: id})
	}

	out, err := xml.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "failed to encode package document").Build()
	}
	return book.NewGeneratedFile(OPFDestination, append([]byte(xmlHeader), append(out, '\n')...)), nil
}

func manifestID(dest string, used map[string]bool) string {
	base := "item-" + idUnsafe.ReplaceAllString(filepath.ToSlash(dest), "_")
	id := base
	for n := 2; used[id]; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	used[id] = true
	return id
}

// fileAs turns "First Last" into "LAST, First".
func fileAs(name string) string {
	parts := strings.Fields(name)
	if len(parts) < 2 {
		return name
	}
	last := parts[len(parts)-1]
	return strings.ToUpper(last) + ", " + strings.Join(parts[:len(parts)-1], " ")
}
