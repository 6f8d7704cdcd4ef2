package recall

import "errors"

var (
	// ErrEngineClosed is returned by operations on a closed Engine.
	ErrEngineClosed = errors.New("engine is closed")

	// ErrNoSnapshotStore is returned by Save when the engine was opened
	// without a snapshot store.
	ErrNoSnapshotStore = errors.New("no snapshot store configured")
)
