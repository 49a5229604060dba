package types

import "errors"

// Sentinel errors shared between the coordinator and its collaborators.
var (
	// ErrRoomNotFound is returned by a ContentStore when the room has been
	// deleted. The save coordinator stops its periodic cycle on this error.
	ErrRoomNotFound = errors.New("room not found")

	// ErrContentTooLarge is returned by a ContentStore when the backend
	// rejects the payload size. Surfaced to the user-facing layer verbatim.
	ErrContentTooLarge = errors.New("content too large")

	// ErrSaveInFlight is returned when an explicit save is requested while a
	// previous save has not completed. The duplicate attempt is rejected,
	// never queued.
	ErrSaveInFlight = errors.New("save already in flight")
)
