package epub

import (
	"bytes"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/bookbuilder/internal/book"
)

// DocumentTitle extracts the <title> of an (X)HTML document, falling back to
// the first <h1>. It returns "" when neither exists.
func DocumentTitle(content []byte) string {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return ""
	}
	if n := findElement(doc, atom.Title); n != nil {
		if t := strings.TrimSpace(textContent(n)); t != "" {
			return t
		}
	}
	if n := findElement(doc, atom.H1); n != nil {
		return strings.Join(strings.Fields(textContent(n)), " ")
	}
	return ""
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

// FileLabel returns the label of f in navigation: its title, the title of
// its generated content, or its file name without extension.
func FileLabel(f *book.File) string {
	if f.Title != "" {
		return f.Title
	}
	if f.HasContent() {
		if t := DocumentTitle(f.Content()); t != "" {
			return t
		}
	}
	base := path.Base(f.DestinationPath)
	return strings.TrimSuffix(base, path.Ext(base))
}
