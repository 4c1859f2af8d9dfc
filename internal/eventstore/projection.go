// Package eventstore records build runs in SQLite and folds them back into
// build summaries for the history command.
package eventstore

import (
	"context"
	"encoding/json"
	"time"
)

const (
	buildStatusRunning   = "running"
	buildStatusCompleted = "completed"
	buildStatusFailed    = "failed"
)

// BuildSummary is a read model of one build run.
type BuildSummary struct {
	BuildID      string        `json:"build_id"`
	Book         string        `json:"book,omitempty"`
	Target       string        `json:"target,omitempty"`
	Check        bool          `json:"check,omitempty"`
	Status       string        `json:"status"`
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	Stats        BuildStats    `json:"stats"`
	ErrorStage   string        `json:"error_stage,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	PackagePath  string        `json:"package_path,omitempty"`
}

// Summarize folds the events of a single build into a summary.
func Summarize(buildID string, events []Event) *BuildSummary {
	summary := &BuildSummary{BuildID: buildID, Status: buildStatusRunning}
	for i, event := range events {
		if i == 0 {
			summary.StartedAt = event.Timestamp()
		}
		apply(summary, event)
	}
	return summary
}

func apply(summary *BuildSummary, event Event) {
	switch event.Type() {
	case TypeBuildStarted:
		summary.StartedAt = event.Timestamp()
		summary.Status = buildStatusRunning
		var meta BuildStartedMeta
		if err := json.Unmarshal(event.Payload(), &meta); err == nil {
			summary.Book = meta.Book
			summary.Target = meta.Target
			summary.Check = meta.Check
		}

	case TypeBuildCompleted:
		finish(summary, event, buildStatusCompleted)
		var payload struct {
			DurationMS int64      `json:"duration_ms"`
			Stats      BuildStats `json:"stats"`
		}
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.Stats = payload.Stats
			if payload.DurationMS > 0 {
				summary.Duration = time.Duration(payload.DurationMS) * time.Millisecond
			}
		}

	case TypeBuildFailed:
		finish(summary, event, buildStatusFailed)
		var payload struct {
			Stage string `json:"stage"`
			Error string `json:"error"`
		}
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.ErrorStage = payload.Stage
			summary.ErrorMessage = payload.Error
		}

	case TypePackageArchived:
		var payload struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.PackagePath = payload.Path
		}
	}
}

func finish(summary *BuildSummary, event Event, status string) {
	at := event.Timestamp()
	summary.CompletedAt = &at
	summary.Duration = at.Sub(summary.StartedAt)
	summary.Status = status
}

// History returns summaries of the most recent builds, newest first.
func History(ctx context.Context, store *SQLiteStore, limit int) ([]*BuildSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	ids, err := store.RecentBuildIDs(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*BuildSummary, 0, len(ids))
	for _, id := range ids {
		events, err := store.GetByBuildID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, Summarize(id, events))
	}
	return out, nil
}

// Since returns summaries of the builds with events recorded at or after
// start, newest first. Builds that began earlier are summarized from their
// recorded events in the window only.
func Since(ctx context.Context, store *SQLiteStore, start time.Time) ([]*BuildSummary, error) {
	events, err := store.GetRange(ctx, start, time.Now())
	if err != nil {
		return nil, err
	}
	var order []string
	byBuild := make(map[string][]Event)
	for _, e := range events {
		if _, seen := byBuild[e.BuildID()]; !seen {
			order = append(order, e.BuildID())
		}
		byBuild[e.BuildID()] = append(byBuild[e.BuildID()], e)
	}
	out := make([]*BuildSummary, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		out = append(out, Summarize(order[i], byBuild[order[i]]))
	}
	return out, nil
}
