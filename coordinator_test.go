package iinterview

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qiming97/iinterview/replication"
	collabtest "github.com/qiming97/iinterview/testing"
	"github.com/qiming97/iinterview/types"
)

// mockTransport implements types.Transport and records outbound traffic. The
// stored handlers let tests inject server-side events.
type mockTransport struct {
	mu       sync.Mutex
	handlers types.TransportHandlers

	connected  bool
	joinedRoom string
	leaveCalls int
	sent       []string
	cursors    []types.CursorPosition
}

func (m *mockTransport) SetHandlers(h types.TransportHandlers) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers = h
}

func (m *mockTransport) Connect(_ context.Context) error {
	m.mu.Lock()
	m.connected = true
	h := m.handlers.OnStatusChanged
	m.mu.Unlock()

	if h != nil {
		h(types.ChannelConnecting)
		h(types.ChannelConnected)
	}

	return nil
}

func (m *mockTransport) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connected = false
}

func (m *mockTransport) JoinRoom(roomID string, _ types.UserIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.joinedRoom = roomID

	return nil
}

func (m *mockTransport) LeaveRoom() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.leaveCalls++

	return nil
}

func (m *mockTransport) SendCursor(pos types.CursorPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, "cursor")
	m.cursors = append(m.cursors, pos)

	return nil
}

func (m *mockTransport) SendSelection(types.SelectionRange) error {
	return m.record("selection")
}

func (m *mockTransport) SendSelectionCleared() error {
	return m.record("selection_cleared")
}

func (m *mockTransport) SendTyping() error {
	return m.record("typing")
}

func (m *mockTransport) SendStoppedTyping() error {
	return m.record("stopped_typing")
}

func (m *mockTransport) record(kind string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, kind)

	return nil
}

func (m *mockTransport) sentCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, s := range m.sent {
		if s == kind {
			n++
		}
	}

	return n
}

func (m *mockTransport) serverHandlers() types.TransportHandlers {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.handlers
}

// mockEngine implements replication.Engine over a plain string.
type mockEngine struct {
	mu      sync.Mutex
	content string
	applied [][]byte
	onLocal func([]byte)
}

func (e *mockEngine) ApplyRemote(update []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.applied = append(e.applied, update)
	e.content += string(update)

	return nil
}

func (e *mockEngine) SetOnLocalUpdate(fn func([]byte)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.onLocal = fn
}

func (e *mockEngine) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.content
}

func (e *mockEngine) SetText(content string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.content = content
}

func (e *mockEngine) Destroy() {}

// mockSink captures decoration replacement sets.
type mockSink struct {
	mu   sync.Mutex
	sets [][]types.Marker
}

func (s *mockSink) ReplaceMarkers(markers []types.Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sets = append(s.sets, markers)
}

func (s *mockSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sets)
}

func (s *mockSink) last() []types.Marker {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sets) == 0 {
		return nil
	}

	return s.sets[len(s.sets)-1]
}

// mockStore is an in-memory content store.
type mockStore struct {
	mu       sync.Mutex
	contents map[string]string
	saveErr  error
}

func newMockStore() *mockStore {
	return &mockStore{contents: make(map[string]string)}
}

func (m *mockStore) Save(_ context.Context, roomID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	m.contents[roomID] = content

	return nil
}

func (m *mockStore) Load(_ context.Context, roomID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	content, ok := m.contents[roomID]
	if !ok {
		return "", types.ErrRoomNotFound
	}

	return content, nil
}

func newTestCoordinator(t *testing.T, opts ...Option) (*Coordinator, *mockTransport, *mockEngine) {
	t.Helper()

	tr := &mockTransport{}
	eng := &mockEngine{}

	coord, err := NewCoordinator(TestConfig(), types.UserIdentity{ID: "local", Username: "me"}, tr, eng, opts...)
	require.NoError(t, err)

	return coord, tr, eng
}

func startTestCoordinator(t *testing.T, opts ...Option) (*Coordinator, *mockTransport, *mockEngine) {
	t.Helper()

	coord, tr, eng := newTestCoordinator(t, opts...)
	require.NoError(t, coord.Start(t.Context()))
	t.Cleanup(func() { _ = coord.Stop(context.Background()) })

	return coord, tr, eng
}

// drain waits until the coordinator's event queue has processed everything
// posted before the call.
func drain(t *testing.T, c *Coordinator) {
	t.Helper()

	done := make(chan struct{})
	c.schedule(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event queue did not drain")
	}
}

func TestNewCoordinator_Validation(t *testing.T) {
	tr := &mockTransport{}
	eng := &mockEngine{}
	self := types.UserIdentity{ID: "local"}

	_, err := NewCoordinator(TestConfig(), self, nil, eng)
	require.ErrorIs(t, err, ErrTransportRequired)

	_, err = NewCoordinator(TestConfig(), self, tr, nil)
	require.ErrorIs(t, err, ErrEngineRequired)

	cfg := TestConfig()
	cfg.RoomID = ""
	_, err = NewCoordinator(cfg, self, tr, eng)
	require.ErrorIs(t, err, ErrInvalidConfig)

	cfg = TestConfig()
	cfg.TypingExpiry = cfg.TypingDebounce
	_, err = NewCoordinator(cfg, self, tr, eng)
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewCoordinator(TestConfig(), types.UserIdentity{}, tr, eng)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCoordinator_Lifecycle(t *testing.T) {
	coord, tr, _ := newTestCoordinator(t)

	require.ErrorIs(t, coord.Stop(t.Context()), ErrNotStarted)

	require.NoError(t, coord.Start(t.Context()))
	require.ErrorIs(t, coord.Start(t.Context()), ErrAlreadyStarted)
	require.Equal(t, "test-room", tr.joinedRoom)

	require.NoError(t, coord.Stop(t.Context()))
	require.NoError(t, coord.Stop(t.Context()), "repeated stop is a no-op")

	tr.mu.Lock()
	defer tr.mu.Unlock()
	require.Equal(t, 1, tr.leaveCalls)
	require.False(t, tr.connected)
}

func TestCoordinator_PresenceFlow(t *testing.T) {
	sink := &mockSink{}
	coord, tr, _ := startTestCoordinator(t, WithMarkerSink(sink))

	h := tr.serverHandlers()

	// Full snapshot on join, then an incremental join and a cursor move.
	h.OnRoomJoined([]types.UserIdentity{
		{ID: "local", Username: "me"},
		{ID: "a", Username: "alice"},
	})
	h.OnUserJoined(types.UserIdentity{ID: "b", Username: "bob"})
	h.OnCursorMoved("a", types.CursorPosition{Line: 3, Column: 7})
	drain(t, coord)

	snap := coord.Snapshot()
	require.Len(t, snap.OnlineUsers, 3)
	require.Equal(t, types.CursorPosition{Line: 3, Column: 7}, snap.CursorsByID["a"])

	// Colors are deterministic and stable for the session.
	require.Equal(t, coord.ColorFor("a"), coord.ColorFor("a"))

	// The sink received alice's marker.
	markers := sink.last()
	require.Len(t, markers, 1)
	require.Equal(t, "a", markers[0].UserID)

	// Leave removes the user; a duplicate delivery is swallowed.
	h.OnUserLeft("a")
	h.OnUserLeft("a")
	drain(t, coord)
	require.Len(t, coord.Snapshot().OnlineUsers, 2)
}

func TestCoordinator_ResyncRebuildsPresence(t *testing.T) {
	coord, tr, _ := startTestCoordinator(t)

	h := tr.serverHandlers()
	h.OnRoomJoined([]types.UserIdentity{{ID: "a", Username: "alice"}})
	h.OnCursorMoved("a", types.CursorPosition{Line: 1, Column: 1})
	drain(t, coord)
	require.Len(t, coord.Snapshot().CursorsByID, 1)

	// Reconnect resends the snapshot; stale cursors must not survive it.
	h.OnRoomJoined([]types.UserIdentity{{ID: "a", Username: "alice"}, {ID: "b", Username: "bob"}})
	drain(t, coord)

	snap := coord.Snapshot()
	require.Len(t, snap.OnlineUsers, 2)
	require.Empty(t, snap.CursorsByID)
}

func TestCoordinator_TypingBurstAnnouncesOnce(t *testing.T) {
	coord, tr, _ := startTestCoordinator(t)

	h := tr.serverHandlers()
	h.OnRoomJoined([]types.UserIdentity{{ID: "local", Username: "me"}})
	drain(t, coord)

	// First keystroke after idle announces immediately; the rest of the burst
	// collapses into the debounce window.
	for range 3 {
		coord.LocalKeystroke(KeyVisible)
	}
	drain(t, coord)

	require.Eventually(t, func() bool {
		return tr.sentCount("typing") >= 1
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	require.LessOrEqual(t, tr.sentCount("typing"), 2,
		"a burst produces the immediate announcement plus at most one debounced follow-up")

	require.Contains(t, coord.Snapshot().TypingIDs, "local")
}

func TestCoordinator_RemoteTypingFlow(t *testing.T) {
	coord, tr, _ := startTestCoordinator(t)

	h := tr.serverHandlers()
	h.OnRoomJoined([]types.UserIdentity{{ID: "local", Username: "me"}, {ID: "a", Username: "alice"}})
	h.OnUserTyping("a")
	drain(t, coord)
	require.Contains(t, coord.Snapshot().TypingIDs, "a")

	h.OnUserStoppedTyping("a")
	drain(t, coord)
	require.Empty(t, coord.Snapshot().TypingIDs)
}

func TestCoordinator_CombinedStatus(t *testing.T) {
	coord, tr, _ := startTestCoordinator(t)

	// Signaling-only session: replication leg is marked connected at start
	// and the mock transport reported connected.
	require.Equal(t, StatusConnected, coord.CombinedStatus())

	h := tr.serverHandlers()
	h.OnStatusChanged(ChannelReconnecting)
	require.Equal(t, StatusConnecting, coord.CombinedStatus())

	h.OnStatusChanged(ChannelDisconnected)
	require.Equal(t, StatusDisconnected, coord.CombinedStatus())

	coord.SetNetworkOnline(false)
	require.Equal(t, StatusOffline, coord.CombinedStatus())

	coord.SetNetworkOnline(true)
	require.Equal(t, StatusDisconnected, coord.CombinedStatus())
}

func TestCoordinator_StatusHook(t *testing.T) {
	statusCh := make(chan CombinedStatus, 8)
	hooks := &Hooks{
		OnStatusChanged: func(_ context.Context, _, to CombinedStatus) error {
			statusCh <- to
			return nil
		},
	}

	_, tr, _ := startTestCoordinator(t, WithHooks(hooks))

	select {
	case s := <-statusCh:
		require.Equal(t, StatusConnected, s)
	case <-time.After(2 * time.Second):
		t.Fatal("status hook did not fire on connect")
	}

	tr.serverHandlers().OnStatusChanged(ChannelDisconnected)
	select {
	case s := <-statusCh:
		require.Equal(t, StatusDisconnected, s)
	case <-time.After(2 * time.Second):
		t.Fatal("status hook did not fire on disconnect")
	}
}

func TestCoordinator_RemoteMutationGatesDecorations(t *testing.T) {
	sink := &mockSink{}
	coord, tr, eng := startTestCoordinator(t, WithMarkerSink(sink))

	h := tr.serverHandlers()
	h.OnRoomJoined([]types.UserIdentity{{ID: "a", Username: "alice"}})
	drain(t, coord)

	var apply sync.WaitGroup
	apply.Add(1)
	coord.schedule(func() {
		coord.applyRemoteUpdate([]byte("remote edit"))
		apply.Done()
	})
	apply.Wait()

	require.Equal(t, "remote edit", eng.Text())

	// Cursor movement observed right after a remote mutation is suppressed.
	coord.LocalCursorMoved(CursorPosition{Line: 1, Column: 1})
	require.Zero(t, tr.sentCount("cursor"))

	// While the window is open, presence changes defer marker recomputation.
	before := sink.count()
	h.OnCursorMoved("a", types.CursorPosition{Line: 2, Column: 2})
	drain(t, coord)
	require.Equal(t, before, sink.count(),
		"recompute must be deferred during the mutation window")

	// After the quiet period the deferred recompute lands and cursor sends
	// resume.
	require.Eventually(t, func() bool {
		return len(sink.last()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		coord.LocalCursorMoved(CursorPosition{Line: 1, Column: 2})

		return tr.sentCount("cursor") > 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCoordinator_SelectionBroadcast(t *testing.T) {
	coord, tr, _ := startTestCoordinator(t)

	coord.LocalSelectionChanged(&SelectionRange{StartLine: 1, StartColumn: 1, EndLine: 2, EndColumn: 5})
	require.Equal(t, 1, tr.sentCount("selection"))

	// Empty and nil ranges broadcast an explicit clear.
	coord.LocalSelectionChanged(&SelectionRange{StartLine: 3, StartColumn: 4, EndLine: 3, EndColumn: 4})
	coord.LocalSelectionChanged(nil)
	require.Equal(t, 2, tr.sentCount("selection_cleared"))
}

func TestCoordinator_SaveFlow(t *testing.T) {
	store := newMockStore()
	require.NoError(t, store.Save(context.Background(), "test-room", "persisted content"))

	coord, _, eng := startTestCoordinator(t, WithContentStore(store))

	// Initial content seeding: the empty shared document picks up the
	// persisted state.
	require.Equal(t, "persisted content", eng.Text())

	// Periodic saving writes once the content diverges.
	eng.SetText("persisted content v2")
	require.Eventually(t, func() bool {
		content, err := store.Load(context.Background(), "test-room")

		return err == nil && content == "persisted content v2"
	}, 2*time.Second, 10*time.Millisecond)

	// Explicit save.
	eng.SetText("v3")
	require.NoError(t, coord.RequestSave(t.Context()))
	content, err := store.Load(t.Context(), "test-room")
	require.NoError(t, err)
	require.Equal(t, "v3", content)
}

func TestCoordinator_SaveReconcilesDivergedContent(t *testing.T) {
	store := newMockStore()
	require.NoError(t, store.Save(context.Background(), "test-room", "persisted copy"))

	// The engine already holds newer text when the session resumes; the
	// persisted copy must not be mistaken for the current state.
	coord, _, eng := newTestCoordinator(t, WithContentStore(store))
	eng.SetText("newer live content")

	require.NoError(t, coord.Start(t.Context()))
	t.Cleanup(func() { _ = coord.Stop(context.Background()) })

	require.Equal(t, "newer live content", eng.Text(),
		"a non-empty document must not be overwritten by the persisted copy")

	require.Eventually(t, func() bool {
		content, err := store.Load(context.Background(), "test-room")

		return err == nil && content == "newer live content"
	}, 2*time.Second, 10*time.Millisecond,
		"the first save interval must reconcile the diverged store")
}

func TestCoordinator_RoomGoneHook(t *testing.T) {
	store := newMockStore()
	store.saveErr = types.ErrRoomNotFound

	gone := make(chan struct{}, 1)
	hooks := &Hooks{
		OnRoomGone: func(context.Context) error {
			gone <- struct{}{}
			return nil
		},
	}

	_, _, eng := startTestCoordinator(t, WithContentStore(store), WithHooks(hooks))
	eng.SetText("content that cannot be saved")

	select {
	case <-gone:
	case <-time.After(2 * time.Second):
		t.Fatal("room-gone hook did not fire")
	}
}

func TestCoordinator_OptionalDependenciesAbsent(t *testing.T) {
	coord, _, _ := startTestCoordinator(t)

	require.ErrorIs(t, coord.RequestSave(t.Context()), ErrNoContentStore)
	require.ErrorIs(t, coord.RequestManualReconnect(), ErrNoReplication)
}

func TestCoordinator_ManualReconnectRetriesSignaling(t *testing.T) {
	coord, tr, _ := startTestCoordinator(t)

	tr.serverHandlers().OnStatusChanged(ChannelDisconnected)
	tr.mu.Lock()
	tr.connected = false
	tr.joinedRoom = ""
	tr.mu.Unlock()
	require.Equal(t, StatusDisconnected, coord.CombinedStatus())

	// Even without a replication channel the action retries the transport.
	require.ErrorIs(t, coord.RequestManualReconnect(), ErrNoReplication)

	tr.mu.Lock()
	require.True(t, tr.connected)
	require.Equal(t, "test-room", tr.joinedRoom, "retry must re-join the room")
	tr.mu.Unlock()

	require.Equal(t, StatusConnected, coord.CombinedStatus())
}

func TestCoordinator_ManualReconnect(t *testing.T) {
	ns, _ := collabtest.StartEmbeddedNATS(t)

	repl, err := replication.NewChannel(replication.Config{
		URL:       ns.ClientURL(),
		RoomID:    "test-room",
		SessionID: "session-local",
	})
	require.NoError(t, err)

	coord, _, _ := startTestCoordinator(t, WithReplication(repl))

	require.Eventually(t, func() bool {
		return coord.CombinedStatus() == types.StatusConnected
	}, 2*time.Second, 10*time.Millisecond)

	// Healthy channels are left alone: no reconnect cycle, no status flap.
	require.NoError(t, coord.RequestManualReconnect())
	require.Equal(t, types.StatusConnected, coord.CombinedStatus())
	require.True(t, repl.Connected())

	// A downed replication channel goes through the full cycle.
	repl.Disconnect()
	require.Eventually(t, func() bool {
		return coord.CombinedStatus() == types.StatusDisconnected
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, coord.RequestManualReconnect())
	require.Eventually(t, func() bool {
		return coord.CombinedStatus() == types.StatusConnected && repl.Connected()
	}, 2*time.Second, 10*time.Millisecond)
}
