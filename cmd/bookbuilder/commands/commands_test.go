package commands

import (
	"archive/zip"
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bookbuilder/internal/book"
	"git.home.luguber.info/inful/bookbuilder/internal/config"
	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
)

const multiTargetSpec = `title: Sample
authors: [Jane Doe]
language: en
toc:
  - title: Introduction
    file: text/intro
    children:
      - title: Details
        file: text/details
  - file: text/appendix
targets:
  - name: ibooks
  - name: kindle
    isbn: "978-0-00-000000-2"
`

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Run("environment wins", func(t *testing.T) {
		t.Setenv(LogLevelEnv, "warning")
		require.Equal(t, slog.LevelWarn, parseLogLevel(true, config.LogLevelDebug))
	})

	t.Run("verbose over configuration", func(t *testing.T) {
		t.Setenv(LogLevelEnv, "")
		require.Equal(t, slog.LevelDebug, parseLogLevel(true, config.LogLevelError))
	})

	t.Run("configured level", func(t *testing.T) {
		t.Setenv(LogLevelEnv, "")
		require.Equal(t, slog.LevelError, parseLogLevel(false, config.LogLevelError))
	})

	t.Run("invalid environment value is ignored", func(t *testing.T) {
		t.Setenv(LogLevelEnv, "chatty")
		require.Equal(t, slog.LevelInfo, parseLogLevel(false, ""))
	})
}

func TestInitProject(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, config.DefaultFileName)

	specPath, err := initProject(dir, cfgPath, false)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, filepath.Base(dir)+book.SpecExtension), specPath)
	require.FileExists(t, filepath.Join(dir, "text", "introduction.md"))
	require.FileExists(t, cfgPath)

	_, err = initProject(dir, cfgPath, false)
	require.Error(t, err)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))

	_, err = initProject(dir, cfgPath, true)
	require.NoError(t, err)

	p, err := loadProject(&CLI{Project: dir, Config: config.DefaultFileName})
	require.NoError(t, err)
	require.Equal(t, filepath.Base(dir), p.book.Title)
	require.Equal(t, filepath.Join(dir, ".bookbuilder", "build"), p.cfg.Build.Directory)
}

func TestSelectTargets(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"sample.bookspec": multiTargetSpec})

	p, err := loadProject(&CLI{Project: dir, Config: config.DefaultFileName})
	require.NoError(t, err)

	all, err := p.selectTargets(nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	picked, err := p.selectTargets([]string{"kindle"})
	require.NoError(t, err)
	require.Len(t, picked, 1)
	require.Equal(t, "kindle", picked[0].Name)
	require.Equal(t, filepath.Join(dir, ".bookbuilder", "build", "kindle"), p.buildDirFor(picked[0]))

	_, err = p.selectTargets([]string{"nope"})
	require.Error(t, err)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryValidation))
	require.Contains(t, err.Error(), "ibooks, kindle")
}

func TestCachePathFor(t *testing.T) {
	p := &project{cfg: &config.Config{Cache: config.CacheConfig{Path: "/p/.bookbuilder/file_stats.yml"}}}
	b := book.New("/p", book.Metadata{Title: "Sample"})
	require.Equal(t, "/p/.bookbuilder/file_stats.yml", p.cachePathFor(b.DefaultTarget()))

	sub := book.NewTarget("kindle")
	b.AddTarget(sub)
	require.Equal(t, "/p/.bookbuilder/file_stats.kindle.yml", p.cachePathFor(sub))
}

func TestRenderToc(t *testing.T) {
	spec, err := book.ParseSpec([]byte(multiTargetSpec))
	require.NoError(t, err)
	b := spec.Build(t.TempDir())
	kindle, ok := b.Target("kindle")
	require.True(t, ok)

	want := "Sample [kindle]\n" +
		"├── Introduction (text/intro)\n" +
		"│   └── Details (text/details)\n" +
		"└── text/appendix\n"
	require.Equal(t, want, renderToc(b, kindle))
}

func TestBuildCmdProducesPackage(t *testing.T) {
	dir := t.TempDir()
	_, err := initProject(dir, filepath.Join(dir, config.DefaultFileName), false)
	require.NoError(t, err)

	root := &CLI{Project: dir, Config: config.DefaultFileName}
	cmd := &BuildCmd{Output: "dist"}
	require.NoError(t, cmd.Run(&Global{Logger: slog.Default()}, root))

	pkg := filepath.Join(dir, "dist", filepath.Base(dir)+".epub")
	zr, err := zip.OpenReader(pkg)
	require.NoError(t, err)
	defer zr.Close()
	require.NotEmpty(t, zr.File)
	require.Equal(t, "mimetype", zr.File[0].Name)
	require.Equal(t, zip.Store, zr.File[0].Method)

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	require.Contains(t, names, "META-INF/container.xml")
	require.Contains(t, names, "OEBPS/text/introduction.xhtml")

	p, err := loadProject(root)
	require.NoError(t, err)
	store, err := openHistory(p.cfg)
	require.NoError(t, err)
	defer store.Close()

	var out bytes.Buffer
	require.NoError(t, printHistory(context.Background(), &out, store, 10))
	require.Contains(t, out.String(), "completed")
	require.Contains(t, out.String(), pkg)
}

func TestOpenHistoryDisabled(t *testing.T) {
	_, err := openHistory(config.Default())
	require.Error(t, err)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))
}

func TestCompileCmdTargetsShareVisibleBuildRoot(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"sample.bookspec": "title: Sample\nlanguage: en\ntoc:\n  - file: ch.xhtml\ntargets:\n  - name: a\n  - name: k\n",
		"text/ch.xhtml": `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>Ch</title></head><body><p>x</p></body></html>
`,
		config.DefaultFileName: "build:\n  directory: build\n",
	})

	root := &CLI{Project: dir, Config: config.DefaultFileName}
	require.NoError(t, (&CompileCmd{}).Run(&Global{Logger: slog.Default()}, root))
	require.NoError(t, (&CompileCmd{}).Run(&Global{Logger: slog.Default()}, root))

	for _, name := range []string{"a", "k"} {
		require.FileExists(t, filepath.Join(dir, "build", name, "OEBPS", "text", "ch.xhtml"))
	}
}
