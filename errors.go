package iinterview

import (
	"errors"

	"github.com/qiming97/iinterview/types"
)

// Sentinel errors returned by the Coordinator.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrTransportRequired is returned when the signaling transport is nil.
	ErrTransportRequired = errors.New("signaling transport is required")

	// ErrEngineRequired is returned when the document engine is nil.
	ErrEngineRequired = errors.New("document engine is required")

	// ErrAlreadyStarted is returned when Start is called on a running coordinator.
	ErrAlreadyStarted = errors.New("coordinator already started")

	// ErrNotStarted is returned when Stop is called before Start.
	ErrNotStarted = errors.New("coordinator not started")

	// ErrNoContentStore is returned by RequestSave when no store was configured.
	ErrNoContentStore = errors.New("no content store configured")

	// ErrNoReplication is returned by RequestManualReconnect when no
	// replication channel was configured.
	ErrNoReplication = errors.New("no replication channel configured")
)

// Re-exported shared sentinels, so callers can match persistence errors
// without importing the types package.
var (
	// ErrRoomNotFound is returned when the room has been deleted.
	ErrRoomNotFound = types.ErrRoomNotFound

	// ErrContentTooLarge is returned when content exceeds the persistence cap.
	ErrContentTooLarge = types.ErrContentTooLarge

	// ErrSaveInFlight is returned when a save is requested while one is running.
	ErrSaveInFlight = types.ErrSaveInFlight
)
