package compiler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/bookbuilder/internal/archive"
	"git.home.luguber.info/inful/bookbuilder/internal/book"
	"git.home.luguber.info/inful/bookbuilder/internal/epub"
	"git.home.luguber.info/inful/bookbuilder/internal/eventstore"
	"git.home.luguber.info/inful/bookbuilder/internal/filecache"
	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/bookbuilder/internal/imaging"
	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
	"git.home.luguber.info/inful/bookbuilder/internal/metrics"
	"git.home.luguber.info/inful/bookbuilder/internal/observability"
	"git.home.luguber.info/inful/bookbuilder/internal/render"
	"git.home.luguber.info/inful/bookbuilder/internal/util/sets"
)

// WorkingDirName is the per-project directory holding the cache and the
// default build directory. Source lookup never descends into it.
const WorkingDirName = ".bookbuilder"

// Stage names used for logging, metrics and events.
const (
	StageToc       = "toc"
	StageFiles     = "files"
	StageCover     = "cover"
	StageGenerated = "generated"
	StageReconcile = "reconcile"
	StageCache     = "cache"
	StageCheck     = "check"
	StageArchive   = "archive"
)

// Generators produce the descriptor files of a target.
type Generators interface {
	Nav(b *book.Book, t *book.Target) (*book.File, error)
	Package(b *book.Book, t *book.Target) (*book.File, error)
	Container(b *book.Book, t *book.Target, opfPath string) ([]*book.File, error)
}

// CompileOptions tune a single Compile call.
type CompileOptions struct {
	// Check validates every produced XHTML document after the build.
	Check bool
}

// Issue is a problem found in check mode.
type Issue struct {
	Path    string
	Message string
}

// BuildRun is the record of one Compile call.
type BuildRun struct {
	ID        string
	OutputDir string
	Check     bool
	Files     []*book.File
	Spine     []*book.File
	Issues    []Issue
	Stats     eventstore.BuildStats
	Duration  time.Duration
}

// Compiler builds one target of a book.
type Compiler struct {
	book       *book.Book
	target     *book.Target
	root       string
	registry   *render.Registry
	images     imaging.Processor
	generators Generators
	cache      *filecache.Database
	recorder   metrics.Recorder
	events     eventstore.Store
	archiver   archive.Archiver
	logger     *slog.Logger
	excluded   []string

	outputDir string
	run       *BuildRun
	spine     []*book.File
	processed sets.Set[*book.File]
	sources   []string
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithProjectRoot sets the directory source patterns are resolved in.
// It defaults to the book root.
func WithProjectRoot(root string) Option {
	return func(c *Compiler) { c.root = root }
}

// WithExcludedDirs keeps the given directories and their subtrees out of
// source resolution, such as a shared build root holding other targets.
func WithExcludedDirs(dirs ...string) Option {
	return func(c *Compiler) {
		for _, dir := range dirs {
			if dir == "" {
				continue
			}
			if abs, err := filepath.Abs(dir); err == nil {
				c.excluded = append(c.excluded, abs)
			}
		}
	}
}

// WithRegistry sets the renderers used for text and stylesheet sources.
func WithRegistry(r *render.Registry) Option {
	return func(c *Compiler) { c.registry = r }
}

// WithImageProcessor sets the processor used for image sources.
func WithImageProcessor(p imaging.Processor) Option {
	return func(c *Compiler) { c.images = p }
}

// WithGenerators sets the descriptor generators.
func WithGenerators(g Generators) Option {
	return func(c *Compiler) { c.generators = g }
}

// WithCache attaches a staleness cache. Without one, text sources are
// rendered on every build.
func WithCache(db *filecache.Database) Option {
	return func(c *Compiler) { c.cache = db }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Compiler) { c.recorder = r }
}

// WithEventStore records build events to s.
func WithEventStore(s eventstore.Store) Option {
	return func(c *Compiler) { c.events = s }
}

// WithArchiver sets the archiver used by Archive.
func WithArchiver(a archive.Archiver) Option {
	return func(c *Compiler) { c.archiver = a }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// New returns a compiler for target t of book b.
func New(b *book.Book, t *book.Target, opts ...Option) *Compiler {
	c := &Compiler{
		book:       b,
		target:     t,
		root:       b.Root,
		registry:   render.DefaultRegistry(),
		images:     imaging.NewDownscaler(imaging.DefaultMaxPixels),
		generators: epub.NewGenerator(),
		recorder:   metrics.NoopRecorder{},
		archiver:   archive.NewZipArchiver(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.root == "" {
		c.root = "."
	}
	if abs, err := filepath.Abs(c.root); err == nil {
		c.root = abs
	}
	return c
}

// Spine returns the TOC units of the last Compile in reading order.
func (c *Compiler) Spine() []*book.File {
	out := make([]*book.File, len(c.spine))
	copy(out, c.spine)
	return out
}

type stage struct {
	name string
	fn   func(ctx context.Context) error
}

// Compile builds the target into buildDir. The returned run is non-nil
// whenever the build directory could be created, also on failure.
func (c *Compiler) Compile(ctx context.Context, buildDir string, opts CompileOptions) (*BuildRun, error) {
	start := time.Now()

	outputDir, err := filepath.Abs(buildDir)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to resolve build directory").
			WithContext("path", buildDir).
			Build()
	}
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to create build directory").
			WithContext("path", outputDir).
			Build()
	}

	run := &BuildRun{ID: uuid.NewString(), OutputDir: outputDir, Check: opts.Check}
	c.reset(outputDir, run)

	ctx = observability.WithBuildID(ctx, run.ID)
	ctx = observability.WithTarget(ctx, c.target.Name)
	observability.InfoContext(ctx, "Compiling target", logfields.Path(outputDir))

	if e, err := eventstore.NewBuildStarted(run.ID, eventstore.BuildStartedMeta{
		Book:      c.book.Title,
		Target:    c.target.Name,
		OutputDir: outputDir,
		Check:     opts.Check,
	}); err == nil {
		c.recordEvent(ctx, e)
	}

	stages := []stage{
		{StageToc, c.processToc},
		{StageFiles, c.processTargetFiles},
		{StageCover, c.processCover},
		{StageGenerated, c.generateOtherFiles},
		{StageReconcile, c.reconcile},
		{StageCache, c.saveCache},
		{StageCheck, c.check},
	}
	for _, s := range stages {
		if err := c.runStage(ctx, s); err != nil {
			c.finish(ctx, run, start, s.name, err)
			return run, err
		}
	}

	c.finish(ctx, run, start, "", nil)
	return run, nil
}

func (c *Compiler) reset(outputDir string, run *BuildRun) {
	c.outputDir = outputDir
	c.run = run
	c.spine = nil
	c.processed = sets.New[*book.File]()
	c.sources = nil

	// Content rendered by an earlier run may be outdated by changed includes.
	for _, f := range c.target.AllFiles() {
		if f.RealSourcePath != "" {
			f.ClearContent()
		}
	}
}

func (c *Compiler) runStage(ctx context.Context, s stage) error {
	stageStart := time.Now()
	ctx = observability.WithStage(ctx, s.name)
	observability.DebugContext(ctx, "Stage started")

	err := s.fn(ctx)

	c.recorder.ObserveStageDuration(s.name, time.Since(stageStart))
	switch {
	case err == nil:
		c.recorder.IncStageResult(s.name, metrics.ResultSuccess)
	case isCanceled(err):
		c.recorder.IncStageResult(s.name, metrics.ResultCanceled)
	case foundationerrors.HasCategory(err, foundationerrors.CategoryValidation):
		c.recorder.IncStageResult(s.name, metrics.ResultWarning)
	default:
		c.recorder.IncStageResult(s.name, metrics.ResultFatal)
	}
	return err
}

func (c *Compiler) finish(ctx context.Context, run *BuildRun, start time.Time, failedStage string, err error) {
	run.Duration = time.Since(start)
	run.Spine = c.Spine()
	run.Stats.Files = len(run.Files)
	run.Stats.Issues = len(run.Issues)

	c.recorder.ObserveBuildDuration(run.Duration)
	c.recorder.SetOutputFiles(len(run.Files))

	if err == nil {
		c.recorder.IncBuildOutcome(metrics.BuildOutcomeSuccess)
		observability.InfoContext(ctx, "Target compiled",
			logfields.Count(len(run.Files)),
			logfields.DurationMS(float64(run.Duration.Milliseconds())))
		if e, evErr := eventstore.NewBuildCompleted(run.ID, run.Duration, run.Stats); evErr == nil {
			c.recordEvent(ctx, e)
		}
		return
	}

	switch {
	case isCanceled(err):
		c.recorder.IncBuildOutcome(metrics.BuildOutcomeCanceled)
	case foundationerrors.HasCategory(err, foundationerrors.CategoryValidation):
		c.recorder.IncBuildOutcome(metrics.BuildOutcomeInvalid)
	default:
		c.recorder.IncBuildOutcome(metrics.BuildOutcomeFailed)
	}
	observability.ErrorContext(ctx, "Compile failed", logfields.Stage(failedStage), logfields.Error(err))
	if e, evErr := eventstore.NewBuildFailed(run.ID, failedStage, err); evErr == nil {
		c.recordEvent(ctx, e)
	}
}

func (c *Compiler) recordEvent(ctx context.Context, e eventstore.Event) {
	if c.events == nil {
		return
	}
	// Events are written even when the build itself was canceled.
	if err := eventstore.Record(context.WithoutCancel(ctx), c.events, e); err != nil {
		observability.WarnContext(ctx, "Failed to record build event",
			slog.String("event", e.Type()),
			logfields.Error(err))
	}
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
