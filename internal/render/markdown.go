package render

import (
	"bytes"
	"context"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
)

// Markdown renders CommonMark (plus tables, strikethrough and footnotes)
// into an XHTML content document.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown returns a Markdown renderer producing XHTML.
func NewMarkdown() *Markdown {
	return &Markdown{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Footnote),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithXHTML()),
		),
	}
}

// Render implements Renderer.
func (m *Markdown) Render(_ context.Context, req Request) (*Result, error) {
	root := m.md.Parser().Parse(text.NewReader(req.Source))

	var body bytes.Buffer
	if err := m.md.Renderer().Render(&body, req.Source, root); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryBuild, "failed to render markdown").
			WithContext("path", req.SourcePath).
			Build()
	}

	title := ""
	if req.File != nil {
		title = req.File.Title
	}
	if title == "" {
		title = FirstHeading(root, req.Source)
	}
	lang := ""
	if req.Book != nil {
		lang = req.Book.Language
	}
	return &Result{Content: xhtmlDocument(title, lang, body.Bytes())}, nil
}

// FirstHeading returns the text of the first level-one heading, or the
// first heading of any level when there is none.
func FirstHeading(root gmast.Node, source []byte) string {
	var first, top string
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok {
			return gmast.WalkContinue, nil
		}
		label := nodeText(h, source)
		if first == "" {
			first = label
		}
		if h.Level == 1 {
			top = label
			return gmast.WalkStop, nil
		}
		return gmast.WalkSkipChildren, nil
	})
	if top != "" {
		return top
	}
	return first
}

func nodeText(n gmast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*gmast.Text); ok {
			buf.Write(t.Segment.Value(source))
			continue
		}
		buf.WriteString(nodeText(c, source))
	}
	return buf.String()
}
