package types

// PresenceEntry is the ephemeral state tracked for one online user.
//
// Entries are owned exclusively by the presence registry. Cursor and
// Selection are nil until the first corresponding event arrives.
type PresenceEntry struct {
	Identity  UserIdentity
	Cursor    *CursorPosition
	Selection *SelectionRange
	IsTyping  bool
}

// PresenceSnapshot is a read-only copy of the coordinator's current view,
// handed to the rendering layer. All maps and slices are copies; mutating a
// snapshot has no effect on the coordinator.
type PresenceSnapshot struct {
	OnlineUsers    []UserIdentity
	CursorsByID    map[string]CursorPosition
	SelectionsByID map[string]SelectionRange
	TypingIDs      []string
	Status         CombinedStatus
}

// Marker is one derived visual decoration (a remote cursor or selection
// highlight) produced by a decoration recomputation.
type Marker struct {
	UserID    string
	Username  string
	Color     Color
	IsTyping  bool
	Cursor    *CursorPosition
	Selection *SelectionRange
}

// MarkerSink receives the full replacement marker set after each decoration
// recomputation. Implementations belong to the rendering layer; they are
// called from the coordinator's event goroutine and must not block.
type MarkerSink interface {
	// ReplaceMarkers replaces the previously rendered marker set wholesale.
	ReplaceMarkers(markers []Marker)
}
