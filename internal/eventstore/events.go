package eventstore

import (
	"encoding/json"
	"time"

	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
)

// BuildStartedMeta describes the build being started.
type BuildStartedMeta struct {
	Book      string `json:"book"`
	Target    string `json:"target"`
	OutputDir string `json:"output_dir"`
	Check     bool   `json:"check"`
}

// BuildStarted is emitted when a compile begins.
type BuildStarted struct {
	StoredEvent
	Meta BuildStartedMeta
}

// NewBuildStarted creates a BuildStarted event.
func NewBuildStarted(buildID string, meta BuildStartedMeta) (*BuildStarted, error) {
	payload, err := marshalPayload(TypeBuildStarted, buildID, meta)
	if err != nil {
		return nil, err
	}
	return &BuildStarted{
		StoredEvent: newStored(buildID, TypeBuildStarted, payload, map[string]string{"target": meta.Target}),
		Meta:      meta,
	}, nil
}

// BuildStats counts what a build did with its content units.
type BuildStats struct {
	Files     int `json:"files"`
	Written   int `json:"written"`
	Unchanged int `json:"unchanged"`
	Copied    int `json:"copied"`
	Resized   int `json:"resized"`
	Skipped   int `json:"skipped"`
	Removed   int `json:"removed"`
	Issues    int `json:"issues"`
}

// BuildCompleted is emitted when a compile finishes successfully.
type BuildCompleted struct {
	StoredEvent
	Duration time.Duration
	Stats    BuildStats
}

// NewBuildCompleted creates a BuildCompleted event.
func NewBuildCompleted(buildID string, duration time.Duration, stats BuildStats) (*BuildCompleted, error) {
	payload, err := marshalPayload(TypeBuildCompleted, buildID, map[string]any{
		"duration_ms": duration.Milliseconds(),
		"stats":       stats,
	})
	if err != nil {
		return nil, err
	}
	return &BuildCompleted{
		StoredEvent: newStored(buildID, TypeBuildCompleted, payload, nil),
		Duration:  duration,
		Stats:     stats,
	}, nil
}

// BuildFailed is emitted when a compile aborts.
type BuildFailed struct {
	StoredEvent
	Stage string
	Error string
}

// NewBuildFailed creates a BuildFailed event.
func NewBuildFailed(buildID, stage string, cause error) (*BuildFailed, error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	payload, err := marshalPayload(TypeBuildFailed, buildID, map[string]any{
		"stage": stage,
		"error": msg,
	})
	if err != nil {
		return nil, err
	}
	return &BuildFailed{
		StoredEvent: newStored(buildID, TypeBuildFailed, payload, nil),
		Stage:     stage,
		Error:     msg,
	}, nil
}

// PackageArchived is emitted when a package file was written.
type PackageArchived struct {
	StoredEvent
	Path string
	Size int64
}

// NewPackageArchived creates a PackageArchived event.
func NewPackageArchived(buildID, path string, size int64) (*PackageArchived, error) {
	payload, err := marshalPayload(TypePackageArchived, buildID, map[string]any{
		"path": path,
		"size": size,
	})
	if err != nil {
		return nil, err
	}
	return &PackageArchived{
		StoredEvent: newStored(buildID, TypePackageArchived, payload, nil),
		Path:      path,
		Size:      size,
	}, nil
}

func newStored(buildID, eventType string, payload []byte, metadata map[string]string) StoredEvent {
	return StoredEvent{Build: buildID, Kind: eventType, At: time.Now(), Data: payload, Meta: metadata}
}

func marshalPayload(eventType, buildID string, v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, foundationerrors.EventStoreError("failed to marshal "+eventType+" payload").
			WithCause(err).
			WithContext("build_id", buildID).
			Build()
	}
	return payload, nil
}
