package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/qiming97/iinterview/types"
)

// fakeServer is a minimal signaling backend for client tests.
type fakeServer struct {
	t        *testing.T
	upgrader websocket.Upgrader
	srv      *httptest.Server

	mu       sync.Mutex
	conns    []*websocket.Conn
	received []frame
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()

	fs := &fakeServer{t: t}
	fs.srv = httptest.NewServer(http.HandlerFunc(fs.handle))
	t.Cleanup(fs.srv.Close)

	return fs
}

func (fs *fakeServer) url() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http")
}

func (fs *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := fs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	fs.mu.Lock()
	fs.conns = append(fs.conns, conn)
	fs.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var f frame
		if json.Unmarshal(data, &f) == nil {
			fs.mu.Lock()
			fs.received = append(fs.received, f)
			fs.mu.Unlock()
		}
	}
}

// push sends one event frame to the most recent connection.
func (fs *fakeServer) push(event string, payload any) {
	fs.mu.Lock()
	conn := fs.conns[len(fs.conns)-1]
	fs.mu.Unlock()

	b, err := encodeFrame(event, payload)
	require.NoError(fs.t, err)
	require.NoError(fs.t, conn.WriteMessage(websocket.TextMessage, b))
}

// dropConnections closes every accepted connection from the server side.
func (fs *fakeServer) dropConnections() {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	for _, conn := range fs.conns {
		_ = conn.Close()
	}
	fs.conns = nil
}

func (fs *fakeServer) receivedEvents() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	events := make([]string, 0, len(fs.received))
	for _, f := range fs.received {
		events = append(events, f.Event)
	}

	return events
}

func (fs *fakeServer) connCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return len(fs.conns)
}

func newTestClient(t *testing.T, fs *fakeServer) *Client {
	t.Helper()

	c := NewClient(Config{
		URL:                  fs.url(),
		HandshakeTimeout:     2 * time.Second,
		WriteTimeout:         2 * time.Second,
		ReconnectMaxInterval: 100 * time.Millisecond,
	})
	t.Cleanup(c.Disconnect)

	return c
}

func TestClient_ConnectAndSend(t *testing.T) {
	fs := newFakeServer(t)
	c := newTestClient(t, fs)

	var mu sync.Mutex
	var states []types.ChannelState
	c.SetHandlers(types.TransportHandlers{
		OnStatusChanged: func(s types.ChannelState) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		},
	})

	require.NoError(t, c.Connect(t.Context()))
	require.ErrorIs(t, c.Connect(t.Context()), ErrAlreadyConnected)

	mu.Lock()
	require.Equal(t, []types.ChannelState{types.ChannelConnecting, types.ChannelConnected}, states)
	mu.Unlock()

	require.NoError(t, c.JoinRoom("room-1", types.UserIdentity{ID: "u1", Username: "alice"}))
	require.NoError(t, c.SendCursor(types.CursorPosition{Line: 1, Column: 2}))
	require.NoError(t, c.SendTyping())

	require.Eventually(t, func() bool {
		return len(fs.receivedEvents()) == 3
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{eventJoinRoom, eventCursorMoved, eventUserTyping}, fs.receivedEvents())
}

func TestClient_SendWhenDisconnected(t *testing.T) {
	fs := newFakeServer(t)
	c := newTestClient(t, fs)

	require.ErrorIs(t, c.SendTyping(), ErrNotConnected)
}

func TestClient_DispatchesInboundEvents(t *testing.T) {
	fs := newFakeServer(t)
	c := newTestClient(t, fs)

	var mu sync.Mutex
	var members []types.UserIdentity
	var cursorID string
	var cursor types.CursorPosition

	c.SetHandlers(types.TransportHandlers{
		OnRoomJoined: func(m []types.UserIdentity) {
			mu.Lock()
			members = m
			mu.Unlock()
		},
		OnCursorMoved: func(id string, pos types.CursorPosition) {
			mu.Lock()
			cursorID = id
			cursor = pos
			mu.Unlock()
		},
	})

	require.NoError(t, c.Connect(t.Context()))

	fs.push(eventRoomJoined, roomJoinedPayload{
		RoomID: "room-1",
		Members: []memberPayload{
			{ID: "u1", Username: "alice"},
			{ID: "u2", Username: "bob"},
		},
	})
	fs.push(eventCursorMoved, cursorPayload{
		ID:       "u2",
		Position: types.CursorPosition{Line: 5, Column: 9},
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(members) == 2 && cursorID == "u2"
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	require.Equal(t, "alice", members[0].Username)
	require.Equal(t, types.CursorPosition{Line: 5, Column: 9}, cursor)
	mu.Unlock()
}

func TestClient_ServerErrorSurfaced(t *testing.T) {
	fs := newFakeServer(t)
	c := newTestClient(t, fs)

	errCh := make(chan error, 1)
	c.SetHandlers(types.TransportHandlers{
		OnError: func(err error) { errCh <- err },
	})

	require.NoError(t, c.Connect(t.Context()))
	fs.push(eventError, errorPayload{Code: "SAVE_FAILED", Message: "boom"})

	select {
	case err := <-errCh:
		var serverErr *ServerError
		require.ErrorAs(t, err, &serverErr)
		require.Equal(t, "SAVE_FAILED", serverErr.Code)
	case <-time.After(2 * time.Second):
		t.Fatal("server error was not dispatched")
	}
}

func TestClient_ReconnectsAndRejoins(t *testing.T) {
	fs := newFakeServer(t)
	c := newTestClient(t, fs)

	var mu sync.Mutex
	var states []types.ChannelState
	c.SetHandlers(types.TransportHandlers{
		OnStatusChanged: func(s types.ChannelState) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		},
	})

	require.NoError(t, c.Connect(t.Context()))
	require.NoError(t, c.JoinRoom("room-1", types.UserIdentity{ID: "u1", Username: "alice"}))

	require.Eventually(t, func() bool {
		return len(fs.receivedEvents()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	fs.dropConnections()

	// The client reconnects on its own and re-joins the room, which makes the
	// server resend the presence snapshot.
	require.Eventually(t, func() bool {
		events := fs.receivedEvents()

		return fs.connCount() == 1 && len(events) == 2 && events[1] == eventJoinRoom
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, states, types.ChannelReconnecting)
	require.Equal(t, types.ChannelConnected, states[len(states)-1])
}
