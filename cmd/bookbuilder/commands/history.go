package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/bookbuilder/internal/config"
	"git.home.luguber.info/inful/bookbuilder/internal/eventstore"
	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	BuildID string        `arg:"" optional:"" name:"build-id" help:"Show the events of a single build"`
	Limit   int           `help:"Number of builds to list" default:"10"`
	Since   time.Duration `help:"List every build recorded within this period instead of the most recent ones"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	p, err := loadProject(root)
	if err != nil {
		return err
	}
	store, err := openHistory(p.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if h.BuildID != "" {
		return printBuildEvents(ctx, os.Stdout, store, h.BuildID)
	}
	if h.Since > 0 {
		summaries, err := eventstore.Since(ctx, store, time.Now().Add(-h.Since))
		if err != nil {
			return err
		}
		return printSummaries(os.Stdout, summaries)
	}
	return printHistory(ctx, os.Stdout, store, h.Limit)
}

func openHistory(cfg *config.Config) (*eventstore.SQLiteStore, error) {
	if cfg.History.Path == "" {
		return nil, foundationerrors.ConfigError("build history is disabled (set history.path)").Build()
	}
	return eventstore.NewSQLiteStore(cfg.History.Path)
}

func printHistory(ctx context.Context, w io.Writer, store *eventstore.SQLiteStore, limit int) error {
	summaries, err := eventstore.History(ctx, store, limit)
	if err != nil {
		return err
	}
	return printSummaries(w, summaries)
}

func printSummaries(w io.Writer, summaries []*eventstore.BuildSummary) error {
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "No builds recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BUILD\tTARGET\tSTATUS\tSTARTED\tDURATION\tFILES\tPACKAGE")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			s.BuildID, s.Target, s.Status,
			s.StartedAt.Local().Format(time.DateTime),
			s.Duration.Round(time.Millisecond), s.Stats.Files, s.PackagePath)
	}
	return tw.Flush()
}

func printBuildEvents(ctx context.Context, w io.Writer, store *eventstore.SQLiteStore, buildID string) error {
	events, err := store.GetByBuildID(ctx, buildID)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return foundationerrors.NewError(foundationerrors.CategoryNotFound, "no events recorded for build").
			WithContext("build_id", buildID).
			Build()
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tEVENT\tPAYLOAD")
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Timestamp().Local().Format(time.DateTime), e.Type(), e.Payload())
	}
	return tw.Flush()
}
