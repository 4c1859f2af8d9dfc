package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"text/template"

	"git.home.luguber.info/inful/bookbuilder/internal/book"
	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
)

// maxIncludeDepth bounds nested includes so include cycles terminate.
const maxIncludeDepth = 16

// Template renders reduced templates with text/template. Templates see the
// book, the target and the file being rendered, and may pull in other files
// with {{ include "path" }}; included files are reported as dependencies.
type Template struct {
	// Funcs are added to every template.
	Funcs template.FuncMap
}

// NewTemplate returns a template renderer with no extra functions.
func NewTemplate() *Template {
	return &Template{}
}

// TemplateData is the data passed to templates.
type TemplateData struct {
	Book   *book.Book
	Target *book.Target
	File   *book.File
	Title  string
}

type templateRun struct {
	renderer *Template
	data     TemplateData
	deps     []string
	root     string
}

// Render implements Renderer.
func (t *Template) Render(ctx context.Context, req Request) (*Result, error) {
	run := &templateRun{
		renderer: t,
		data:     TemplateData{Book: req.Book, Target: req.Target, File: req.File},
	}
	if req.Book != nil {
		run.root = req.Book.Root
		run.data.Title = req.Book.Title
	}
	if req.File != nil && req.File.Title != "" {
		run.data.Title = req.File.Title
	}

	out, err := run.execute(ctx, req.SourcePath, req.Source, 0)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryBuild, "failed to render template").
			WithContext("path", req.SourcePath).
			Build()
	}
	return &Result{Content: out, Dependencies: run.deps}, nil
}

func (r *templateRun) execute(ctx context.Context, path string, source []byte, depth int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	funcs := template.FuncMap{
		"include": func(name string) (string, error) {
			if depth+1 > maxIncludeDepth {
				return "", fmt.Errorf("include depth exceeds %d at %s", maxIncludeDepth, name)
			}
			incPath := r.resolve(path, name)
			data, err := os.ReadFile(incPath)
			if err != nil {
				return "", fmt.Errorf("include %s: %w", name, err)
			}
			if !slices.Contains(r.deps, incPath) {
				r.deps = append(r.deps, incPath)
			}
			out, err := r.execute(ctx, incPath, data, depth+1)
			if err != nil {
				return "", err
			}
			return string(out), nil
		},
	}

	tpl := template.New(filepath.Base(path)).Option("missingkey=error")
	if r.renderer.Funcs != nil {
		tpl = tpl.Funcs(r.renderer.Funcs)
	}
	tpl, err := tpl.Funcs(funcs).Parse(string(source))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, r.data); err != nil {
		return nil, fmt.Errorf("render template %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

// resolve finds an include relative to the including file, then to the
// project root.
func (r *templateRun) resolve(from, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	candidate := filepath.Join(filepath.Dir(from), name)
	if _, err := os.Stat(candidate); err == nil || r.root == "" {
		return candidate
	}
	return filepath.Join(r.root, name)
}
