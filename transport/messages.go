package transport

import (
	"encoding/json"
	"fmt"

	"github.com/qiming97/iinterview/types"
)

// Event names on the signaling channel.
const (
	eventJoinRoom         = "join-room"
	eventLeaveRoom        = "leave-room"
	eventRoomJoined       = "room-joined"
	eventUserJoined       = "user-joined"
	eventUserLeft         = "user-left"
	eventCursorMoved      = "cursor-moved"
	eventSelectionChanged = "selection-changed"
	eventSelectionCleared = "selection-cleared"
	eventUserTyping       = "user-typing"
	eventUserStopped      = "user-stopped-typing"
	eventError            = "error"
)

// frame is the wire envelope for every message in both directions.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// userID normalizes ids at the ingress boundary. Some backends emit numeric
// ids while others emit strings; everything downstream works with the string
// form only.
type userID string

// UnmarshalJSON accepts both string and numeric id representations.
func (u *userID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*u = userID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*u = userID(n.String())
		return nil
	}

	return fmt.Errorf("user id is neither string nor number: %s", b)
}

// memberPayload is one member entry in a room-joined snapshot or a
// user-joined event.
type memberPayload struct {
	ID       userID `json:"id"`
	Username string `json:"username"`
}

func (m memberPayload) identity() types.UserIdentity {
	return types.UserIdentity{ID: string(m.ID), Username: m.Username}
}

// roomJoinedPayload carries the full presence snapshot.
type roomJoinedPayload struct {
	RoomID  string          `json:"roomId"`
	Members []memberPayload `json:"members"`
}

// joinRoomPayload announces the local user to a room.
type joinRoomPayload struct {
	RoomID    string        `json:"roomId"`
	SessionID string        `json:"sessionId"`
	User      memberPayload `json:"user"`
}

// userRefPayload carries events that reference a user by id only.
type userRefPayload struct {
	ID userID `json:"id"`
}

// cursorPayload carries a cursor position for one user.
type cursorPayload struct {
	ID       userID               `json:"id,omitempty"`
	Position types.CursorPosition `json:"position"`
}

// selectionPayload carries a selection range for one user.
type selectionPayload struct {
	ID    userID               `json:"id,omitempty"`
	Range types.SelectionRange `json:"range"`
}

// errorPayload carries a non-fatal server-side error.
type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServerError is a non-fatal error reported by the signaling backend,
// surfaced to the user-facing layer verbatim.
type ServerError struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	return fmt.Sprintf("signaling server error %s: %s", e.Code, e.Message)
}

func encodeFrame(event string, payload any) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", event, err)
		}
		data = b
	}

	return json.Marshal(frame{Event: event, Data: data})
}
