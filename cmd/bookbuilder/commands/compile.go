package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// CompileCmd implements the 'compile' command.
type CompileCmd struct {
	Targets []string `arg:"" optional:"" help:"Targets to compile (default: all)"`
	Check   bool     `help:"Check generated documents for well-formedness"`
}

func (c *CompileCmd) Run(_ *Global, root *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := loadProject(root)
	if err != nil {
		return err
	}
	targets, err := p.selectTargets(c.Targets)
	if err != nil {
		return err
	}
	s, err := p.openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	_, err = s.compileTargets(ctx, targets, c.Check, "")
	return err
}
