package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/bookbuilder/internal/archive"
	"git.home.luguber.info/inful/bookbuilder/internal/book"
	"git.home.luguber.info/inful/bookbuilder/internal/compiler"
	"git.home.luguber.info/inful/bookbuilder/internal/config"
	"git.home.luguber.info/inful/bookbuilder/internal/eventstore"
	"git.home.luguber.info/inful/bookbuilder/internal/filecache"
	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/bookbuilder/internal/git"
	"git.home.luguber.info/inful/bookbuilder/internal/imaging"
	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
	"git.home.luguber.info/inful/bookbuilder/internal/metrics"
)

// project is a loaded book with its tool configuration.
type project struct {
	root string
	cfg  *config.Config
	book *book.Book
}

// loadProject reads the tool configuration and the bookspec selected by the
// global flags.
func loadProject(root *CLI) (*project, error) {
	dir, err := filepath.Abs(root.Project)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to resolve project directory").
			WithContext("path", root.Project).
			Build()
	}

	cfgPath := root.Config
	if !filepath.IsAbs(cfgPath) {
		cfgPath = filepath.Join(dir, cfgPath)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	cfg.Resolve(dir)
	setupLogging(parseLogLevel(root.Verbose, cfg.Logging.Level))

	specPath := root.Bookspec
	if specPath == "" {
		if specPath, err = book.Discover(dir); err != nil {
			return nil, err
		}
	} else if !filepath.IsAbs(specPath) {
		specPath = filepath.Join(dir, specPath)
	}
	b, err := book.Load(specPath)
	if err != nil {
		return nil, err
	}
	if b.BuildVersion, err = git.ResolveBuildVersion(b.Root, b.BuildVersion); err != nil {
		return nil, err
	}

	slog.Debug("Loaded project", logfields.Path(specPath), slog.String("title", b.Title))
	return &project{root: dir, cfg: cfg, book: b}, nil
}

// selectTargets returns the named targets, or every target when names is empty.
func (p *project) selectTargets(names []string) ([]*book.Target, error) {
	if len(names) == 0 {
		return p.book.Targets(), nil
	}
	out := make([]*book.Target, 0, len(names))
	for _, name := range names {
		t, ok := p.book.Target(name)
		if !ok {
			known := make([]string, 0)
			for _, t := range p.book.Targets() {
				known = append(known, t.Name)
			}
			return nil, foundationerrors.ValidationError(fmt.Sprintf("unknown target %q, known targets: %s", name, strings.Join(known, ", "))).
				WithContext("target", name).
				Build()
		}
		out = append(out, t)
	}
	return out, nil
}

// buildDirFor returns the build directory of t.
func (p *project) buildDirFor(t *book.Target) string {
	return filepath.Join(p.cfg.Build.Directory, t.Name)
}

// cachePathFor returns the staleness cache of t. Sub-targets render with
// their own target data, so each keeps its own cache next to the default one.
func (p *project) cachePathFor(t *book.Target) string {
	if t.IsDefault {
		return p.cfg.Cache.Path
	}
	ext := filepath.Ext(p.cfg.Cache.Path)
	return strings.TrimSuffix(p.cfg.Cache.Path, ext) + "." + t.Name + ext
}

func (p *project) archiver() archive.Archiver {
	if p.cfg.Build.Archiver == config.ArchiverCommand {
		a := archive.NewCommandArchiver()
		a.Program = p.cfg.Build.ArchiveProgram
		return a
	}
	return archive.NewZipArchiver()
}

// session holds the resources shared by all targets of one command.
type session struct {
	project  *project
	out      io.Writer
	recorder metrics.Recorder
	prom     *metrics.PrometheusRecorder
	store    *eventstore.SQLiteStore
}

func (p *project) openSession() (*session, error) {
	s := &session{project: p, out: os.Stdout, recorder: metrics.NoopRecorder{}}
	if p.cfg.Metrics.Textfile != "" {
		s.prom = metrics.NewPrometheusRecorder(nil)
		s.recorder = s.prom
	}
	if p.cfg.History.Path != "" {
		store, err := eventstore.NewSQLiteStore(p.cfg.History.Path)
		if err != nil {
			return nil, err
		}
		s.store = store
	}
	return s, nil
}

// compiler returns a compiler for t wired to the session's resources.
func (s *session) compiler(t *book.Target) *compiler.Compiler {
	cfg := s.project.cfg
	opts := []compiler.Option{
		compiler.WithProjectRoot(s.project.book.Root),
		compiler.WithExcludedDirs(cfg.Build.Directory),
		compiler.WithImageProcessor(imaging.NewDownscaler(cfg.Images.MaxPixels)),
		compiler.WithArchiver(s.project.archiver()),
		compiler.WithRecorder(s.recorder),
	}
	if s.store != nil {
		opts = append(opts, compiler.WithEventStore(s.store))
	}
	if cfg.Cache.IsEnabled() {
		opts = append(opts, compiler.WithCache(filecache.Open(s.project.cachePathFor(t))))
	}
	return compiler.New(s.project.book, t, opts...)
}

// Close exports metrics and closes the history store.
func (s *session) Close() {
	if s.prom != nil {
		if err := s.prom.WriteTextfile(s.project.cfg.Metrics.Textfile); err != nil {
			slog.Warn("Failed to write metrics textfile", logfields.Path(s.project.cfg.Metrics.Textfile), logfields.Error(err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Warn("Failed to close history store", logfields.Error(err))
		}
	}
}

// compileTargets compiles every target and, when archiveDir is set, packs it
// into archiveDir. It returns the runs in target order.
func (s *session) compileTargets(ctx context.Context, targets []*book.Target, check bool, archiveDir string) ([]*compiler.BuildRun, error) {
	runs := make([]*compiler.BuildRun, 0, len(targets))
	for _, t := range targets {
		c := s.compiler(t)
		fmt.Fprintf(s.out, "Compiling target %q into %s\n", t.Name, s.project.buildDirFor(t))
		run, err := c.Compile(ctx, s.project.buildDirFor(t), compiler.CompileOptions{Check: check})
		if err != nil {
			printIssues(s.out, run)
			return runs, err
		}
		runs = append(runs, run)
		fmt.Fprintf(s.out, "  %d files: %d written, %d unchanged, %d copied, %d resized, %d skipped, %d removed\n",
			run.Stats.Files, run.Stats.Written, run.Stats.Unchanged, run.Stats.Copied,
			run.Stats.Resized, run.Stats.Skipped, run.Stats.Removed)

		if archiveDir == "" {
			continue
		}
		pkg, err := c.Archive(ctx, run, filepath.Join(archiveDir, c.PackageName()))
		if err != nil {
			return runs, err
		}
		fmt.Fprintf(s.out, "  package %s\n", pkg)
	}
	return runs, nil
}

func printIssues(w io.Writer, run *compiler.BuildRun) {
	if run == nil {
		return
	}
	for _, issue := range run.Issues {
		fmt.Fprintf(w, "  %s: %s\n", issue.Path, issue.Message)
	}
}
