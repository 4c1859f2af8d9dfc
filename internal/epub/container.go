package epub

import (
	"encoding/xml"

	"git.home.luguber.info/inful/bookbuilder/internal/book"
	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
)

// IBooksOptionsDestination is the Apple Books display options file.
const IBooksOptionsDestination = "../META-INF/com.apple.ibooks.display-options.xml"

type container struct {
	XMLName   xml.Name   `xml:"container"`
	Version   string     `xml:"version,attr"`
	Xmlns     string     `xml:"xmlns,attr"`
	RootFiles []rootFile `xml:"rootfiles>rootfile"`
}

type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// Container generates the META-INF files pointing readers at opfPath, a
// path relative to the package root such as "OEBPS/content.opf".
func (g *Generator) Container(_ *book.Book, t *book.Target, opfPath string) ([]*book.File, error) {
	c := container{
		Version: "1.0",
		Xmlns:   "urn:oasis:names:tc:opendocument:xmlns:container",
		RootFiles: []rootFile{{
			FullPath:  opfPath,
			MediaType: "application/oebps-package+xml",
		}},
	}
	out, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "failed to encode container").Build()
	}
	files := []*book.File{
		book.NewGeneratedFile(ContainerDestination, append([]byte(xmlHeader), append(out, '\n')...)),
	}

	if IsIBooks(t) {
		fonts := "false"
		if hasFonts(t) {
			fonts = "true"
		}
		options := xmlHeader +
			"<display_options>\n" +
			"  <platform name=\"*\">\n" +
			"    <option name=\"specified-fonts\">" + fonts + "</option>\n" +
			"  </platform>\n" +
			"</display_options>\n"
		files = append(files, book.NewGeneratedFile(IBooksOptionsDestination, []byte(options)))
	}
	return files, nil
}
