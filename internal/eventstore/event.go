package eventstore

import "time"

// Event types recorded for a build run.
const (
	TypeBuildStarted    = "BuildStarted"
	TypeBuildCompleted  = "BuildCompleted"
	TypeBuildFailed     = "BuildFailed"
	TypePackageArchived = "PackageArchived"
)

// Event is a recorded fact about a build run. Payloads are JSON documents
// whose shape depends on Type.
type Event interface {
	ID() int64
	BuildID() string
	Type() string
	Timestamp() time.Time
	Payload() []byte
	Metadata() map[string]string
}

// StoredEvent is an event as persisted in the store. Seq is assigned on
// append and is zero for events not yet stored.
type StoredEvent struct {
	Seq   int64
	Build string
	Kind  string
	At    time.Time
	Data  []byte
	Meta  map[string]string
}

func (e *StoredEvent) ID() int64                   { return e.Seq }
func (e *StoredEvent) BuildID() string             { return e.Build }
func (e *StoredEvent) Type() string                { return e.Kind }
func (e *StoredEvent) Timestamp() time.Time        { return e.At }
func (e *StoredEvent) Payload() []byte             { return e.Data }
func (e *StoredEvent) Metadata() map[string]string { return e.Meta }
