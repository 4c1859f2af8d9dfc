package epub

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/bookbuilder/internal/book"
	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
)

// Nav generates the navigation document from the target's TOC. TOC files
// must have their destinations resolved.
func (g *Generator) Nav(b *book.Book, t *book.Target) (*book.File, error) {
	if t.RootToc == nil {
		return nil, foundationerrors.BuildError("target has no table of contents").
			WithContext("target", t.Name).
			Build()
	}

	lang := b.Language
	if lang == "" {
		lang = "en"
	}

	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops" lang="` +
		html.EscapeString(lang) + `" xml:lang="` + html.EscapeString(lang) + "\">\n")
	sb.WriteString("<head>\n<meta charset=\"UTF-8\"/>\n<title>" + html.EscapeString(b.Title) + "</title>\n</head>\n<body>\n")
	sb.WriteString("<nav epub:type=\"toc\" id=\"toc\">\n<h1>" + html.EscapeString(b.Title) + "</h1>\n")
	writeNavList(&sb, t.RootToc.Children, 0)
	sb.WriteString("</nav>\n")

	if files := t.RootToc.Files(); len(files) > 0 && files[0].DestinationPath != "" {
		first := files[0]
		sb.WriteString("<nav epub:type=\"landmarks\" hidden=\"hidden\">\n<ol>\n")
		sb.WriteString("<li><a epub:type=\"bodymatter\" href=\"" + href(first.DestinationPath) + "\">" +
			html.EscapeString(FileLabel(first)) + "</a></li>\n")
		sb.WriteString("</ol>\n</nav>\n")
	}
	sb.WriteString("</body>\n</html>\n")

	f := book.NewGeneratedFile(NavDestination, []byte(sb.String()))
	f.Title = b.Title
	f.AddProperty(NavProperty)
	return f, nil
}

func writeNavList(sb *strings.Builder, items []*book.TocItem, depth int) {
	if len(items) == 0 {
		return
	}
	indent := strings.Repeat("  ", depth)
	sb.WriteString(indent + "<ol>\n")
	for _, item := range items {
		sb.WriteString(indent + "<li>")
		label := item.Title
		if label == "" && item.File != nil {
			label = FileLabel(item.File)
		}
		if item.File != nil && item.File.DestinationPath != "" {
			sb.WriteString("<a href=\"" + href(item.File.DestinationPath) + "\">" + html.EscapeString(label) + "</a>")
		} else {
			sb.WriteString("<span>" + html.EscapeString(label) + "</span>")
		}
		if len(item.Children) > 0 {
			sb.WriteString("\n")
			writeNavList(sb, item.Children, depth+1)
			sb.WriteString(indent)
		}
		sb.WriteString("</li>\n")
	}
	sb.WriteString(indent + "</ol>\n")
}

// uriPath percent-encodes a destination path for use as a relative URI.
func uriPath(dest string) string {
	return (&url.URL{Path: dest}).String()
}

func href(dest string) string {
	return html.EscapeString(uriPath(dest))
}
