package compiler

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bookbuilder/internal/book"
	"git.home.luguber.info/inful/bookbuilder/internal/eventstore"
	"git.home.luguber.info/inful/bookbuilder/internal/filecache"
	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/bookbuilder/internal/imaging"
	"git.home.luguber.info/inful/bookbuilder/internal/metrics"
	"git.home.luguber.info/inful/bookbuilder/internal/render"
)

const chapterXHTML = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>Second</title></head><body><p>two</p></body></html>
`

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	return root
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func newBook(root string, toc ...string) (*book.Book, *book.Target) {
	b := book.New(root, book.Metadata{Title: "Sample", Authors: []string{"Jane Doe"}, Language: "en"})
	target := b.DefaultTarget()
	for _, pattern := range toc {
		target.RootToc.Children = append(target.RootToc.Children, &book.TocItem{File: book.NewFile(pattern, book.GroupText)})
	}
	return b, target
}

func buildDir(root string) string {
	return filepath.Join(root, WorkingDirName, "build")
}

func readOutput(t *testing.T, run *BuildRun, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(run.OutputDir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func TestCompileProducesPackageLayout(t *testing.T) {
	root := writeProject(t, map[string]string{
		"text/intro.md":      "# Intro\n\nHello.\n",
		"text/second.xhtml":  chapterXHTML,
		"styles/book.css":    "body { margin: 0; }\n",
		"styles/theme.styl":  "p\n  color red\n",
		"fonts/serif.otf":    "font",
		"notes/ignored.txt":  "not part of the book",
		".hidden/intro.md":   "# Hidden\n",
	})
	writePNG(t, filepath.Join(root, "images", "logo.png"), 4, 4)

	b, target := newBook(root, "intro", "second")
	target.Files = []*book.File{
		book.NewFile("styles/book.css", book.GroupStyle),
		book.NewFile("theme", book.GroupStyle),
		book.NewFile("serif.otf", book.GroupFont),
		book.NewFile("images/logo.png", book.GroupImage),
	}

	c := New(b, target)
	run, err := c.Compile(t.Context(), buildDir(root), CompileOptions{})
	require.NoError(t, err)

	require.Equal(t, "application/epub+zip", readOutput(t, run, "mimetype"))
	require.Contains(t, readOutput(t, run, "META-INF/container.xml"), `full-path="OEBPS/content.opf"`)
	require.Contains(t, readOutput(t, run, "OEBPS/text/intro.xhtml"), "<h1")
	require.Equal(t, chapterXHTML, readOutput(t, run, "OEBPS/text/second.xhtml"))
	require.Equal(t, "body { margin: 0; }\n", readOutput(t, run, "OEBPS/styles/book.css"))
	require.Contains(t, readOutput(t, run, "OEBPS/styles/theme.css"), "color: red;")
	require.Equal(t, "font", readOutput(t, run, "OEBPS/fonts/serif.otf"))
	require.FileExists(t, filepath.Join(run.OutputDir, "OEBPS", "images", "logo.png"))

	nav := readOutput(t, run, "OEBPS/nav.xhtml")
	require.Less(t, strings.Index(nav, "text/intro.xhtml"), strings.Index(nav, "text/second.xhtml"))

	opf := readOutput(t, run, "OEBPS/content.opf")
	require.Contains(t, opf, `href="styles/theme.css"`)
	require.Contains(t, opf, `properties="nav"`)

	spine := c.Spine()
	require.Len(t, spine, 2)
	require.Equal(t, "text/intro.xhtml", spine[0].DestinationPath)
	require.Equal(t, "text/second.xhtml", spine[1].DestinationPath)
	require.Equal(t, spine, run.Spine)

	require.NoFileExists(t, filepath.Join(run.OutputDir, "OEBPS", "notes", "ignored.txt"))
	require.Equal(t, len(run.Files), run.Stats.Files)
	require.Positive(t, run.Stats.Written)
	require.NotEmpty(t, run.ID)
}

func TestCompileRenamesTemplateExtensions(t *testing.T) {
	root := writeProject(t, map[string]string{
		"a.bade":   "doctype",
		"b.rxhtml": `<html xmlns="http://www.w3.org/1999/xhtml"><head><title>{{.Book.Title}}</title></head><body/></html>`,
	})
	b, target := newBook(root, "a", "b")

	reg := render.DefaultRegistry()
	reg.Register(book.TemplateExtension, render.RendererFunc(func(_ context.Context, req render.Request) (*render.Result, error) {
		return &render.Result{Content: []byte(`<html xmlns="http://www.w3.org/1999/xhtml"><head><title>A</title></head><body/></html>`)}, nil
	}))

	run, err := New(b, target, WithRegistry(reg)).Compile(t.Context(), buildDir(root), CompileOptions{})
	require.NoError(t, err)

	require.Contains(t, readOutput(t, run, "OEBPS/a.xhtml"), "<title>A</title>")
	require.Contains(t, readOutput(t, run, "OEBPS/b.xhtml"), "<title>Sample</title>")
}

func TestCompileTemplateWithoutRendererFails(t *testing.T) {
	root := writeProject(t, map[string]string{"a.bade": "doctype"})
	b, target := newBook(root, "a")

	_, err := New(b, target).Compile(t.Context(), buildDir(root), CompileOptions{})
	require.Error(t, err)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryBuild))
	require.Contains(t, err.Error(), "no renderer registered")
}

func TestCompileIsIdempotent(t *testing.T) {
	root := writeProject(t, map[string]string{
		"intro.md":    "# Intro\n",
		"second.xhtml": chapterXHTML,
	})
	b, target := newBook(root, "intro", "second")
	c := New(b, target)

	run, err := c.Compile(t.Context(), buildDir(root), CompileOptions{})
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	outputs := []string{"OEBPS/intro.xhtml", "OEBPS/nav.xhtml", "OEBPS/content.opf", "mimetype", "META-INF/container.xml"}
	for _, rel := range outputs {
		require.NoError(t, os.Chtimes(filepath.Join(run.OutputDir, filepath.FromSlash(rel)), past, past))
	}

	run, err = c.Compile(t.Context(), buildDir(root), CompileOptions{})
	require.NoError(t, err)
	require.Zero(t, run.Stats.Written)
	for _, rel := range outputs {
		info, err := os.Stat(filepath.Join(run.OutputDir, filepath.FromSlash(rel)))
		require.NoError(t, err)
		require.True(t, info.ModTime().Equal(past), rel)
	}
}

func TestCompileRemovesOrphans(t *testing.T) {
	root := writeProject(t, map[string]string{"intro.md": "# Intro\n"})
	out := buildDir(root)
	stale := filepath.Join(out, "OEBPS", "old", "removed.xhtml")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o750))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(out, ".DS_Store"), []byte("x"), 0o600))

	b, target := newBook(root, "intro")
	run, err := New(b, target).Compile(t.Context(), out, CompileOptions{})
	require.NoError(t, err)

	require.NoFileExists(t, stale)
	require.NoDirExists(t, filepath.Dir(stale))
	require.NoFileExists(t, filepath.Join(out, ".DS_Store"))
	require.Equal(t, 2, run.Stats.Removed)
}

func TestCompileResolveErrors(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		message string
	}{
		{"ambiguous", "intro", "found too many files"},
		{"missing", "epilogue", "not found file matching pattern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeProject(t, map[string]string{
				"a/intro.md":    "# A\n",
				"b/intro.xhtml": chapterXHTML,
			})
			b, target := newBook(root, tt.pattern)

			_, err := New(b, target).Compile(t.Context(), buildDir(root), CompileOptions{})
			require.Error(t, err)
			require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryResolve))
			require.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestCompileUnknownExtensionFails(t *testing.T) {
	root := writeProject(t, map[string]string{"intro.md": "# Intro\n", "data.json": "{}"})
	b, target := newBook(root, "intro")
	target.Files = []*book.File{book.NewFile("data.json", book.GroupAny)}

	_, err := New(b, target).Compile(t.Context(), buildDir(root), CompileOptions{})
	require.Error(t, err)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryBuild))
	require.Contains(t, err.Error(), "unknown file extension .json")
}

func TestCompileExpandsPatternFiles(t *testing.T) {
	root := writeProject(t, map[string]string{
		"intro.md":          "# Intro\n",
		"images/notes.txt":  "skip",
		"fonts/a.ttf":       "a",
		"fonts/b.otf":       "b",
	})
	writePNG(t, filepath.Join(root, "images", "one.png"), 2, 2)
	writePNG(t, filepath.Join(root, "images", "two.png"), 2, 2)

	b, target := newBook(root, "intro")
	target.Files = []*book.File{
		book.NewPatternFile("images/*", book.GroupImage),
		book.NewPatternFile("fonts/*", book.GroupFont),
	}

	run, err := New(b, target).Compile(t.Context(), buildDir(root), CompileOptions{})
	require.NoError(t, err)

	require.Len(t, target.Files, 4)
	for _, rel := range []string{"images/one.png", "images/two.png", "fonts/a.ttf", "fonts/b.otf"} {
		require.FileExists(t, filepath.Join(run.OutputDir, "OEBPS", filepath.FromSlash(rel)))
	}
	require.NoFileExists(t, filepath.Join(run.OutputDir, "OEBPS", "images", "notes.txt"))
}

type recordingProcessor struct {
	calls int
}

func (p *recordingProcessor) Process(_ context.Context, src, dst string) (*imaging.Outcome, error) {
	p.calls++
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, err
	}
	return &imaging.Outcome{Resized: true, Width: 1, Height: 1}, os.WriteFile(dst, data, 0o600)
}

func TestCompileImagesUseProcessorOnlyWhenOutdated(t *testing.T) {
	root := writeProject(t, map[string]string{"intro.md": "# Intro\n"})
	writePNG(t, filepath.Join(root, "cover.png"), 2, 2)

	b, target := newBook(root, "intro")
	cover := book.NewFile("cover", book.GroupImage)
	cover.AddProperty(book.CoverImageProperty)
	target.CoverImage = cover

	proc := &recordingProcessor{}
	c := New(b, target, WithImageProcessor(proc))

	run, err := c.Compile(t.Context(), buildDir(root), CompileOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, proc.calls)
	require.Equal(t, 1, run.Stats.Resized)
	require.Contains(t, readOutput(t, run, "OEBPS/content.opf"), `<meta name="cover"`)

	run, err = c.Compile(t.Context(), buildDir(root), CompileOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, proc.calls)
	require.Equal(t, 1, run.Stats.Skipped)
}

func TestCoverMergesWithDeclaredFile(t *testing.T) {
	root := writeProject(t, map[string]string{"intro.md": "# Intro\n"})
	writePNG(t, filepath.Join(root, "images", "cover.png"), 2, 2)

	b, target := newBook(root, "intro")
	target.Files = []*book.File{book.NewFile("images/cover.png", book.GroupImage)}
	cover := book.NewFile("cover.png", book.GroupImage)
	cover.AddProperty(book.CoverImageProperty)
	target.CoverImage = cover

	run, err := New(b, target).Compile(t.Context(), buildDir(root), CompileOptions{})
	require.NoError(t, err)

	declared := target.Files[0]
	require.True(t, declared.HasProperty(book.CoverImageProperty))
	require.Equal(t, 1, strings.Count(readOutput(t, run, "OEBPS/content.opf"), `href="images/cover.png"`))
}

func TestCheckModeReportsMalformedDocuments(t *testing.T) {
	root := writeProject(t, map[string]string{
		"good.md":    "# Good\n",
		"bad.xhtml":  "<html><body><p>unclosed</body></html>",
	})
	b, target := newBook(root, "good", "bad")

	run, err := New(b, target).Compile(t.Context(), buildDir(root), CompileOptions{Check: true})
	require.Error(t, err)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryValidation))
	require.Len(t, run.Issues, 1)
	require.Equal(t, "bad.xhtml", run.Issues[0].Path)
	require.Equal(t, 1, run.Stats.Issues)
	require.FileExists(t, filepath.Join(run.OutputDir, "mimetype"))

	run, err = New(b, target).Compile(t.Context(), buildDir(root), CompileOptions{})
	require.NoError(t, err)
	require.Empty(t, run.Issues)
}

func TestCacheSkipsUnchangedSourcesAndTracksIncludes(t *testing.T) {
	root := writeProject(t, map[string]string{
		"chapter.rxhtml": "body",
		"partials/head":  "head v1",
	})
	include := filepath.Join(root, "partials", "head")

	calls := 0
	reg := render.DefaultRegistry()
	reg.Register(book.ReducedTemplateExtension, render.RendererFunc(func(_ context.Context, req render.Request) (*render.Result, error) {
		calls++
		return &render.Result{
			Content:      []byte(`<html xmlns="http://www.w3.org/1999/xhtml"><head><title>C</title></head><body/></html>`),
			Dependencies: []string{include},
		}, nil
	}))

	cachePath := filepath.Join(root, WorkingDirName, filecache.DefaultFileName)
	compile := func() *BuildRun {
		b, target := newBook(root, "chapter")
		db := filecache.Open(cachePath)
		run, err := New(b, target, WithRegistry(reg), WithCache(db)).Compile(t.Context(), buildDir(root), CompileOptions{})
		require.NoError(t, err)
		return run
	}

	compile()
	require.Equal(t, 1, calls)
	require.FileExists(t, cachePath)

	run := compile()
	require.Equal(t, 1, calls)
	require.Equal(t, []string{include}, run.Spine[0].Dependencies)

	require.NoError(t, os.WriteFile(include, []byte("head v2 is longer"), 0o600))
	compile()
	require.Equal(t, 2, calls)

	compile()
	require.Equal(t, 2, calls)
}

func TestStaleContentIsRegeneratedFromSource(t *testing.T) {
	root := writeProject(t, map[string]string{"chapter.xhtml": chapterXHTML})
	b, target := newBook(root)
	c := New(b, target)
	c.reset(buildDir(root), &BuildRun{})

	f := book.NewFile("chapter", book.GroupText)
	f.SetContentString("stale")
	require.NoError(t, c.processFile(t.Context(), f))

	dest, err := c.DestinationPathOf(f)
	require.NoError(t, err)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, chapterXHTML, string(data))

	// Content newer than its source is written as is.
	g := book.NewFile("chapter", book.GroupText)
	g.RealSourcePath = f.RealSourcePath
	g.DestinationPath = f.DestinationPath
	g.SetContentString("fresh")
	require.NoError(t, c.processFile(t.Context(), g))
	data, err = os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "fresh", string(data))
}

func TestNothingToDoWithFile(t *testing.T) {
	root := t.TempDir()
	b, target := newBook(root)
	c := New(b, target)
	c.reset(buildDir(root), &BuildRun{})

	f := &book.File{DestinationPath: "orphan.xhtml"}
	err := c.processFile(t.Context(), f)
	require.Error(t, err)
	require.Contains(t, err.Error(), "don't know what to do with file")
}

func TestCompileCanceled(t *testing.T) {
	root := writeProject(t, map[string]string{"intro.md": "# Intro\n"})
	b, target := newBook(root, "intro")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	run, err := New(b, target).Compile(ctx, buildDir(root), CompileOptions{})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, run)
	require.Empty(t, run.Files)
}

type outcomeRecorder struct {
	metrics.NoopRecorder
	outcomes []metrics.BuildOutcomeLabel
}

func (r *outcomeRecorder) IncBuildOutcome(o metrics.BuildOutcomeLabel) {
	r.outcomes = append(r.outcomes, o)
}

func TestCompileRecordsMetricsAndEvents(t *testing.T) {
	root := writeProject(t, map[string]string{"intro.md": "# Intro\n"})
	b, target := newBook(root, "intro")

	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	rec := &outcomeRecorder{}

	run, err := New(b, target, WithRecorder(rec), WithEventStore(store)).
		Compile(t.Context(), buildDir(root), CompileOptions{})
	require.NoError(t, err)
	require.Equal(t, []metrics.BuildOutcomeLabel{metrics.BuildOutcomeSuccess}, rec.outcomes)

	events, err := store.GetByBuildID(t.Context(), run.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, eventstore.TypeBuildStarted, events[0].Type())
	require.Equal(t, eventstore.TypeBuildCompleted, events[1].Type())

	summary := eventstore.Summarize(run.ID, events)
	require.Equal(t, run.Stats.Files, summary.Stats.Files)
}

func TestCompileSkipsSharedBuildRoot(t *testing.T) {
	root := writeProject(t, map[string]string{"text/ch.xhtml": chapterXHTML})
	buildRoot := filepath.Join(root, "build")

	b := book.New(root, book.Metadata{Title: "Sample", Language: "en"})
	for _, name := range []string{"a", "k"} {
		target := book.NewTarget(name)
		target.RootToc.Children = []*book.TocItem{{File: book.NewFile("ch.xhtml", book.GroupText)}}
		b.AddTarget(target)
	}

	for _, target := range b.Targets() {
		c := New(b, target, WithExcludedDirs(buildRoot))
		run, err := c.Compile(t.Context(), filepath.Join(buildRoot, target.Name), CompileOptions{})
		require.NoError(t, err, target.Name)
		require.Equal(t, chapterXHTML, readOutput(t, run, "OEBPS/text/ch.xhtml"))
	}
}
