package types

import "context"

// ContentStore persists document content for a room. It is the save
// coordinator's backend collaborator; the coordinator never persists anything
// else.
type ContentStore interface {
	// Save writes the room's content. Returns ErrRoomNotFound once the room
	// has been deleted and ErrContentTooLarge when the backend rejects the
	// payload size.
	Save(ctx context.Context, roomID string, content string) error

	// Load reads the room's persisted content. Returns ErrRoomNotFound when
	// the room does not exist.
	Load(ctx context.Context, roomID string) (string, error)
}
