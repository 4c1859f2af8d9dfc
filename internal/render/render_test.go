package render

import (
	"context"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bookbuilder/internal/book"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	for _, ext := range []string{".xhtml", ".HTML", ".md", ".rxhtml", ".styl"} {
		_, ok := r.Lookup(ext)
		require.True(t, ok, ext)
	}
	_, ok := r.Lookup(book.TemplateExtension)
	require.False(t, ok, "full templates need an injected renderer")

	r.Register(".bade", RendererFunc(func(_ context.Context, req Request) (*Result, error) {
		return &Result{Content: req.Source}, nil
	}))
	_, ok = r.Lookup(".bade")
	require.True(t, ok)
}

func wellFormed(t *testing.T, doc []byte) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(string(doc)))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return
		}
		require.NoError(t, err)
	}
}

func TestMarkdownProducesXHTML(t *testing.T) {
	b := book.New("/book", book.Metadata{Title: "B", Language: "de"})
	src := []byte("Intro text\n\n# Chapter One\n\n![pic](images/a.png)\n\nLine<br>\n")

	res, err := NewMarkdown().Render(context.Background(), Request{Book: b, Source: src})
	require.NoError(t, err)

	out := string(res.Content)
	require.Contains(t, out, "<title>Chapter One</title>")
	require.Contains(t, out, `xml:lang="de"`)
	require.Contains(t, out, `<img src="images/a.png" alt="pic" />`)
	wellFormed(t, res.Content)
}

func TestMarkdownPrefersFileTitle(t *testing.T) {
	f := book.NewFile("intro", book.GroupText)
	f.Title = "Welcome & Hello"

	res, err := NewMarkdown().Render(context.Background(), Request{File: f, Source: []byte("# Other\n")})
	require.NoError(t, err)
	require.Contains(t, string(res.Content), "<title>Welcome &amp; Hello</title>")
}

func TestTemplateIncludesRecordDependencies(t *testing.T) {
	dir := t.TempDir()
	header := filepath.Join(dir, "partials", "header.rxhtml")
	require.NoError(t, os.MkdirAll(filepath.Dir(header), 0o750))
	require.NoError(t, os.WriteFile(header, []byte(`<h1>{{ .Title }}</h1>`), 0o600))

	b := book.New(dir, book.Metadata{Title: "Sample"})
	src := filepath.Join(dir, "chapters", "one.rxhtml")
	req := Request{
		Book:       b,
		Target:     b.DefaultTarget(),
		SourcePath: src,
		Source:     []byte(`<body>{{ include "partials/header.rxhtml" }}{{ .Target.Name }}</body>`),
	}

	res, err := NewTemplate().Render(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "<body><h1>Sample</h1>default</body>", string(res.Content))
	require.Equal(t, []string{header}, res.Dependencies)
}

func TestTemplateIncludeCycleFails(t *testing.T) {
	dir := t.TempDir()
	loop := filepath.Join(dir, "loop.rxhtml")
	require.NoError(t, os.WriteFile(loop, []byte(`{{ include "loop.rxhtml" }}`), 0o600))

	_, err := NewTemplate().Render(context.Background(), Request{
		SourcePath: loop,
		Source:     []byte(`{{ include "loop.rxhtml" }}`),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "include depth")
}

func TestTemplateMissingInclude(t *testing.T) {
	dir := t.TempDir()
	_, err := NewTemplate().Render(context.Background(), Request{
		SourcePath: filepath.Join(dir, "a.rxhtml"),
		Source:     []byte(`{{ include "nope.rxhtml" }}`),
	})
	require.Error(t, err)
}

func TestVerbatim(t *testing.T) {
	res, err := Verbatim{}.Render(context.Background(), Request{Source: []byte("<p/>")})
	require.NoError(t, err)
	require.Equal(t, "<p/>", string(res.Content))
}
