package transport

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qiming97/iinterview/types"
)

func TestUserID_UnmarshalString(t *testing.T) {
	var u userID
	require.NoError(t, json.Unmarshal([]byte(`"abc-123"`), &u))
	require.Equal(t, userID("abc-123"), u)
}

func TestUserID_UnmarshalNumber(t *testing.T) {
	var u userID
	require.NoError(t, json.Unmarshal([]byte(`42`), &u))
	require.Equal(t, userID("42"), u, "numeric ids normalize to their string form")
}

func TestUserID_UnmarshalInvalid(t *testing.T) {
	var u userID
	require.Error(t, json.Unmarshal([]byte(`{"nested": true}`), &u))
	require.Error(t, json.Unmarshal([]byte(`[1]`), &u))
}

func TestUserID_MixedFormsCollapse(t *testing.T) {
	// The same user arriving once as a number and once as a string must
	// produce identical ids downstream.
	var a, b memberPayload
	require.NoError(t, json.Unmarshal([]byte(`{"id": 7, "username": "g"}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"id": "7", "username": "g"}`), &b))

	require.Equal(t, a.identity(), b.identity())
}

func TestEncodeFrame(t *testing.T) {
	b, err := encodeFrame(eventCursorMoved, cursorPayload{
		Position: types.CursorPosition{Line: 3, Column: 14},
	})
	require.NoError(t, err)

	var f frame
	require.NoError(t, json.Unmarshal(b, &f))
	require.Equal(t, eventCursorMoved, f.Event)

	var p cursorPayload
	require.NoError(t, json.Unmarshal(f.Data, &p))
	require.Equal(t, 3, p.Position.Line)
	require.Equal(t, 14, p.Position.Column)
}

func TestEncodeFrame_NilPayload(t *testing.T) {
	b, err := encodeFrame(eventUserTyping, nil)
	require.NoError(t, err)

	var f frame
	require.NoError(t, json.Unmarshal(b, &f))
	require.Equal(t, eventUserTyping, f.Event)
	require.Empty(t, f.Data)
}

func TestRoomJoinedPayload(t *testing.T) {
	raw := `{"roomId": "room-1", "members": [
		{"id": 1, "username": "alice"},
		{"id": "2", "username": "bob"}
	]}`

	var p roomJoinedPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	require.Equal(t, "room-1", p.RoomID)
	require.Len(t, p.Members, 2)
	require.Equal(t, types.UserIdentity{ID: "1", Username: "alice"}, p.Members[0].identity())
	require.Equal(t, types.UserIdentity{ID: "2", Username: "bob"}, p.Members[1].identity())
}

func TestServerError(t *testing.T) {
	err := &ServerError{Code: "CONTENT_TOO_LARGE", Message: "document exceeds limit"}
	require.Contains(t, err.Error(), "CONTENT_TOO_LARGE")
	require.Contains(t, err.Error(), "document exceeds limit")
}
