package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// BuildOutcomeLabel is the final status of a build.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess  BuildOutcomeLabel = "success"
	BuildOutcomeFailed   BuildOutcomeLabel = "failed"
	BuildOutcomeInvalid  BuildOutcomeLabel = "invalid"
	BuildOutcomeCanceled BuildOutcomeLabel = "canceled"
)

// FileAction is what the pipeline did with one content unit.
type FileAction string

const (
	FileWritten   FileAction = "written"
	FileUnchanged FileAction = "unchanged"
	FileCopied    FileAction = "copied"
	FileResized   FileAction = "resized"
	FileSkipped   FileAction = "skipped"
	FileRemoved   FileAction = "removed"
)

// Recorder defines observability hooks for build and stage metrics.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	IncFileAction(action FileAction)
	SetOutputFiles(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)          {}
func (NoopRecorder) IncFileAction(FileAction)                   {}
func (NoopRecorder) SetOutputFiles(int)                         {}
