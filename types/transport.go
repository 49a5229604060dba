package types

import "context"

// TransportHandlers receives inbound signaling events. All callbacks are
// optional; nil callbacks are skipped. The transport invokes them from its
// read goroutine, so implementations must hand work off quickly (the
// coordinator posts onto its event queue).
type TransportHandlers struct {
	// OnRoomJoined delivers the full presence snapshot after joining or
	// resyncing a room.
	OnRoomJoined func(members []UserIdentity)

	// OnUserJoined delivers an incremental join.
	OnUserJoined func(identity UserIdentity)

	// OnUserLeft delivers an incremental leave. May be delivered more than
	// once for the same departure.
	OnUserLeft func(id string)

	// OnCursorMoved delivers a remote cursor position.
	OnCursorMoved func(id string, pos CursorPosition)

	// OnSelectionChanged delivers a remote selection.
	OnSelectionChanged func(id string, sel SelectionRange)

	// OnSelectionCleared delivers a remote selection removal.
	OnSelectionCleared func(id string)

	// OnUserTyping delivers a remote typing announcement.
	OnUserTyping func(id string)

	// OnUserStoppedTyping delivers an explicit remote stop-typing event.
	OnUserStoppedTyping func(id string)

	// OnStatusChanged delivers signaling channel health transitions.
	OnStatusChanged func(state ChannelState)

	// OnError delivers transport-level errors that are not fatal to the
	// session (validation failures, oversized payloads).
	OnError func(err error)
}

// Transport is the realtime signaling channel consumed by the coordinator.
//
// Implementations carry ephemeral awareness events only; document content
// never travels through this interface. Events for a single user id are
// delivered in order; duplicates and replays are the coordinator's problem.
type Transport interface {
	// SetHandlers installs the inbound event handlers. Must be called before
	// Connect.
	SetHandlers(handlers TransportHandlers)

	// Connect establishes the channel. It returns once the connection is
	// usable or the context is done; reconnection afterwards is automatic.
	Connect(ctx context.Context) error

	// Disconnect tears the channel down. Safe to call more than once.
	Disconnect()

	// JoinRoom announces the local user to a room and requests the presence
	// snapshot.
	JoinRoom(roomID string, identity UserIdentity) error

	// LeaveRoom announces departure from the current room.
	LeaveRoom() error

	// SendCursor broadcasts the local cursor position.
	SendCursor(pos CursorPosition) error

	// SendSelection broadcasts the local selection.
	SendSelection(sel SelectionRange) error

	// SendSelectionCleared broadcasts that the local selection became empty.
	SendSelectionCleared() error

	// SendTyping broadcasts a typing announcement.
	SendTyping() error

	// SendStoppedTyping broadcasts an explicit stop-typing event.
	SendStoppedTyping() error
}
