package eventstore

import (
	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
)

var (
	// ErrDatabaseOpenFailed indicates the SQLite database could not be opened.
	ErrDatabaseOpenFailed = foundationerrors.EventStoreError("could not open build history database").Build()

	// ErrInitializeSchemaFailed indicates the database schema could not be initialized.
	ErrInitializeSchemaFailed = foundationerrors.EventStoreError("failed to initialize build history schema").Build()

	// ErrEventAppendFailed indicates appending an event failed.
	ErrEventAppendFailed = foundationerrors.EventStoreError("failed to append event to store").Build()

	// ErrEventQueryFailed indicates querying events failed.
	ErrEventQueryFailed = foundationerrors.EventStoreError("failed to query events from store").Build()
)

func wrap(sentinel *foundationerrors.ClassifiedError, err error) error {
	return foundationerrors.WrapError(err, sentinel.Category(), sentinel.Message()).Build()
}
