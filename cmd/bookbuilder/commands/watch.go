package commands

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/bookbuilder/internal/compiler"
	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Targets  []string      `arg:"" optional:"" help:"Targets to rebuild (default: all)"`
	Check    bool          `help:"Check generated documents for well-formedness"`
	Archive  bool          `help:"Archive an .epub package after every successful compile"`
	Debounce time.Duration `help:"Quiet period before rebuilding" default:"500ms"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := loadProject(root)
	if err != nil {
		return err
	}
	if _, err := p.selectTargets(w.Targets); err != nil {
		return err
	}

	excluded := []string{p.cfg.Build.Directory, filepath.Join(p.root, compiler.WorkingDirName)}
	if p.cfg.Metrics.Textfile != "" {
		excluded = append(excluded, p.cfg.Metrics.Textfile)
	}
	pw, err := newProjectWatcher(p.root, excluded, w.Debounce)
	if err != nil {
		return err
	}
	defer pw.Close()

	return pw.Run(ctx, func(ctx context.Context) error {
		return w.rebuild(ctx, root)
	})
}

// rebuild reloads the project so bookspec and configuration edits apply.
func (w *WatchCmd) rebuild(ctx context.Context, root *CLI) error {
	p, err := loadProject(root)
	if err != nil {
		return err
	}
	targets, err := p.selectTargets(w.Targets)
	if err != nil {
		return err
	}
	s, err := p.openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	archiveDir := ""
	if w.Archive {
		archiveDir = p.root
	}
	_, err = s.compileTargets(ctx, targets, w.Check, archiveDir)
	return err
}

const packageExtension = ".epub"

// projectWatcher rebuilds after a quiet period following source changes.
type projectWatcher struct {
	root     string
	excluded []string
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

func newProjectWatcher(root string, excluded []string, debounce time.Duration) (*projectWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryRuntime, "failed to create file watcher").Build()
	}
	pw := &projectWatcher{root: root, excluded: excluded, watcher: watcher, debounce: debounce}

	dirs, err := pw.watchDirs()
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to watch directory").
				WithContext("path", dir).
				Build()
		}
	}
	return pw, nil
}

func (pw *projectWatcher) Close() {
	if err := pw.watcher.Close(); err != nil {
		slog.Error("Error closing file watcher", logfields.Error(err))
	}
}

// watchDirs lists the project directories to watch. Hidden and excluded
// directories are skipped with their subtrees.
func (pw *projectWatcher) watchDirs() ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(pw.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != pw.root && pw.ignored(path) {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to scan project").
			WithContext("path", pw.root).
			Build()
	}
	return dirs, nil
}

// ignored reports whether path is hidden, a package written by the build
// or inside an excluded path.
func (pw *projectWatcher) ignored(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.EqualFold(filepath.Ext(base), packageExtension) {
		return true
	}
	for _, ex := range pw.excluded {
		rel, err := filepath.Rel(ex, path)
		if err == nil && filepath.IsLocal(rel) {
			return true
		}
	}
	return false
}

// Run builds once, then again after every debounced change until ctx is done.
// Build errors are logged and do not stop the watcher.
func (pw *projectWatcher) Run(ctx context.Context, build func(context.Context) error) error {
	runBuild := func() {
		if err := build(ctx); err != nil && ctx.Err() == nil {
			slog.Error("Build failed", logfields.Error(err))
		}
	}
	runBuild()
	slog.Info("Watching for changes", logfields.Path(pw.root))

	timer := time.NewTimer(pw.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return nil
			}
			if !pw.handle(event) {
				continue
			}
			timer.Reset(pw.debounce)
		case <-timer.C:
			slog.Info("Change detected, rebuilding")
			runBuild()
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

// handle reports whether event should trigger a rebuild. New directories
// are added to the watch list.
func (pw *projectWatcher) handle(event fsnotify.Event) bool {
	if pw.ignored(event.Name) {
		return false
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := pw.watcher.Add(event.Name); err != nil {
				slog.Warn("Failed to watch new directory", logfields.Path(event.Name), logfields.Error(err))
			}
		}
	}
	slog.Debug("Source change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
	return true
}
