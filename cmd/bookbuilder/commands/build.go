package commands

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Targets []string `arg:"" optional:"" help:"Targets to build (default: all)"`
	Check   bool     `help:"Check generated documents for well-formedness"`
	Output  string   `short:"o" help:"Directory for the .epub packages (default: project directory)"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := loadProject(root)
	if err != nil {
		return err
	}
	targets, err := p.selectTargets(b.Targets)
	if err != nil {
		return err
	}

	outDir := b.Output
	if outDir == "" {
		outDir = p.root
	} else if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(p.root, outDir)
	}

	s, err := p.openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	_, err = s.compileTargets(ctx, targets, b.Check, outDir)
	return err
}
