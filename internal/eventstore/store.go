package eventstore

import "context"

// Store persists build events. Appends for one build must keep their order.
type Store interface {
	Append(ctx context.Context, buildID, eventType string, payload []byte, metadata map[string]string) error
	GetByBuildID(ctx context.Context, buildID string) ([]Event, error)
	Close() error
}

// Record appends e to store.
func Record(ctx context.Context, store Store, e Event) error {
	return store.Append(ctx, e.BuildID(), e.Type(), e.Payload(), e.Metadata())
}
