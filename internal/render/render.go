// Package render turns text and stylesheet sources into their output form.
//
// Renderers are looked up by source extension in a Registry. The default
// registry handles verbatim XHTML/HTML, Markdown, reduced templates and
// indentation stylesheets; full templates need an injected renderer.
package render

import (
	"context"
	"strings"

	"git.home.luguber.info/inful/bookbuilder/internal/book"
)

// Request describes one source to render.
type Request struct {
	Book   *book.Book
	Target *book.Target
	File   *book.File
	// SourcePath is the absolute path of the source file.
	SourcePath string
	Source     []byte
}

// Result is the rendered output plus the absolute paths of files the
// rendering read besides the source itself.
type Result struct {
	Content      []byte
	Dependencies []string
}

// Renderer renders one source.
type Renderer interface {
	Render(ctx context.Context, req Request) (*Result, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, req Request) (*Result, error)

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}

// Registry maps lower-case extensions (with dot) to renderers.
type Registry struct {
	renderers map[string]Renderer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{renderers: make(map[string]Renderer)}
}

// DefaultRegistry returns a registry with the built-in renderers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(".xhtml", Verbatim{})
	r.Register(".html", Verbatim{})
	r.Register(book.MarkdownExtension, NewMarkdown())
	r.Register(book.ReducedTemplateExtension, NewTemplate())
	r.Register(book.StylesheetExtension, Stylesheet{})
	return r
}

// Register binds r to ext, replacing any previous binding.
func (r *Registry) Register(ext string, renderer Renderer) {
	r.renderers[strings.ToLower(ext)] = renderer
}

// Lookup returns the renderer bound to ext.
func (r *Registry) Lookup(ext string) (Renderer, bool) {
	renderer, ok := r.renderers[strings.ToLower(ext)]
	return renderer, ok
}

// Verbatim returns the source unchanged.
type Verbatim struct{}

// Render implements Renderer.
func (Verbatim) Render(_ context.Context, req Request) (*Result, error) {
	return &Result{Content: req.Source}, nil
}
