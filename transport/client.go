package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/qiming97/iinterview/types"
)

// Package-local errors.
var (
	ErrNotConnected     = errors.New("transport not connected")
	ErrAlreadyConnected = errors.New("transport already connected")
)

// Config is the websocket client configuration.
type Config struct {
	// URL is the websocket endpoint (ws:// or wss://).
	URL string

	// HandshakeTimeout bounds the websocket dial. Default 5s.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds each outbound write. Default 5s.
	WriteTimeout time.Duration

	// PingInterval is the keepalive ping cadence. Default 20s.
	PingInterval time.Duration

	// ReconnectMaxInterval caps the reconnect backoff. Default 3s.
	ReconnectMaxInterval time.Duration

	// Logger is optional; nil discards log output.
	Logger types.Logger
}

func (c *Config) setDefaults() {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 5 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 20 * time.Second
	}
	if c.ReconnectMaxInterval <= 0 {
		c.ReconnectMaxInterval = 3 * time.Second
	}
}

// nopLogger avoids importing internal/logging from a public package.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Fatal(string, ...any) {}

// Client is the websocket implementation of types.Transport.
//
// One Client serves one room session. All exported methods are safe for
// concurrent use; inbound events are dispatched from a single read goroutine.
type Client struct {
	cfg       Config
	sessionID string
	logger    types.Logger

	handlers types.TransportHandlers

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	joined    bool
	roomID    string
	identity  types.UserIdentity

	lifeCtx  context.Context
	lifeStop context.CancelFunc
	wg       sync.WaitGroup
}

// Compile-time assertion that Client implements types.Transport.
var _ types.Transport = (*Client)(nil)

// NewClient creates a websocket signaling client. The connection is not
// established until Connect.
func NewClient(cfg Config) *Client {
	cfg.setDefaults()

	logger := cfg.Logger
	if logger == nil {
		logger = nopLogger{}
	}

	return &Client{
		cfg:       cfg,
		sessionID: uuid.NewString(),
		logger:    logger,
	}
}

// SessionID returns the unique id of this client connection, sent with
// join-room so the backend can distinguish two tabs of the same user.
func (c *Client) SessionID() string {
	return c.sessionID
}

// SetHandlers installs the inbound event handlers. Must be called before
// Connect.
func (c *Client) SetHandlers(handlers types.TransportHandlers) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handlers = handlers
}

// Connect dials the signaling endpoint and starts the read and keepalive
// goroutines. After a transport-level failure the client reconnects on its
// own; Connect returning nil means the channel is up right now.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	if c.lifeCtx == nil || c.lifeCtx.Err() != nil {
		c.lifeCtx, c.lifeStop = context.WithCancel(context.Background())
	}
	c.mu.Unlock()

	c.emitStatus(types.ChannelConnecting)

	conn, err := c.dial(ctx)
	if err != nil {
		c.emitStatus(types.ChannelDisconnected)
		return fmt.Errorf("failed to connect signaling channel: %w", err)
	}

	c.attach(conn)
	c.emitStatus(types.ChannelConnected)

	return nil
}

// Disconnect tears the channel down and stops reconnection. Safe to call
// more than once.
func (c *Client) Disconnect() {
	c.mu.Lock()
	stop := c.lifeStop
	conn := c.conn
	wasConnected := c.connected
	c.conn = nil
	c.connected = false
	c.joined = false
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}

	c.wg.Wait()

	if wasConnected {
		c.emitStatus(types.ChannelDisconnected)
	}
}

// JoinRoom announces the local user and requests the presence snapshot. The
// room is remembered and re-joined automatically after a reconnect.
func (c *Client) JoinRoom(roomID string, identity types.UserIdentity) error {
	c.mu.Lock()
	c.joined = true
	c.roomID = roomID
	c.identity = identity
	c.mu.Unlock()

	return c.send(eventJoinRoom, joinRoomPayload{
		RoomID:    roomID,
		SessionID: c.sessionID,
		User:      memberPayload{ID: userID(identity.ID), Username: identity.Username},
	})
}

// LeaveRoom announces departure from the current room.
func (c *Client) LeaveRoom() error {
	c.mu.Lock()
	c.joined = false
	roomID := c.roomID
	c.mu.Unlock()

	return c.send(eventLeaveRoom, joinRoomPayload{RoomID: roomID, SessionID: c.sessionID})
}

// SendCursor broadcasts the local cursor position.
func (c *Client) SendCursor(pos types.CursorPosition) error {
	return c.send(eventCursorMoved, cursorPayload{Position: pos})
}

// SendSelection broadcasts the local selection.
func (c *Client) SendSelection(sel types.SelectionRange) error {
	return c.send(eventSelectionChanged, selectionPayload{Range: sel})
}

// SendSelectionCleared broadcasts that the local selection became empty.
func (c *Client) SendSelectionCleared() error {
	return c.send(eventSelectionCleared, nil)
}

// SendTyping broadcasts a typing announcement.
func (c *Client) SendTyping() error {
	return c.send(eventUserTyping, nil)
}

// SendStoppedTyping broadcasts an explicit stop-typing event.
func (c *Client) SendStoppedTyping() error {
	return c.send(eventUserStopped, nil)
}

// dial performs one websocket handshake.
func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}

	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	return conn, nil
}

// attach installs a live connection and starts its goroutines.
func (c *Client) attach(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.wg.Add(2)
	go c.readLoop(conn)
	go c.pingLoop(conn)
}

// send writes one frame to the current connection.
func (c *Client) send(event string, payload any) error {
	b, err := encodeFrame(event, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected || c.conn == nil {
		return ErrNotConnected
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return fmt.Errorf("failed to send %s: %w", event, err)
	}

	return nil
}

// readLoop consumes inbound frames until the connection dies, then hands off
// to the reconnect path unless the client is shutting down.
func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleReadFailure(conn, err)
			return
		}

		c.dispatch(data)
	}
}

// pingLoop keeps the connection alive until it is replaced or closed.
func (c *Client) pingLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.lifeCtx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			current := c.conn == conn && c.connected
			c.mu.Unlock()
			if !current {
				return
			}

			_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteTimeout))
		}
	}
}

// handleReadFailure transitions to reconnecting and retries with backoff,
// unless the failure was caused by an explicit Disconnect.
func (c *Client) handleReadFailure(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	explicit := c.conn != conn // Disconnect or a newer connection took over
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	_ = conn.Close()

	if explicit || c.lifeCtx.Err() != nil {
		return
	}

	c.logger.Warn("signaling connection lost, reconnecting", "error", cause)
	c.emitStatus(types.ChannelReconnecting)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = c.cfg.ReconnectMaxInterval

	newConn, err := backoff.Retry(c.lifeCtx, func() (*websocket.Conn, error) {
		return c.dial(c.lifeCtx)
	}, backoff.WithBackOff(bo))
	if err != nil {
		// Only context cancellation ends the retry loop.
		c.emitStatus(types.ChannelDisconnected)
		return
	}

	c.attach(newConn)
	c.emitStatus(types.ChannelConnected)

	// Re-join so the server resends the full presence snapshot.
	c.mu.Lock()
	joined, roomID, identity := c.joined, c.roomID, c.identity
	c.mu.Unlock()
	if joined {
		if err := c.JoinRoom(roomID, identity); err != nil {
			c.logger.Error("failed to re-join room after reconnect", "room_id", roomID, "error", err)
		}
	}
}

// dispatch decodes one inbound frame and invokes the matching handler.
func (c *Client) dispatch(data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		c.logger.Warn("dropping malformed frame", "error", err)
		return
	}

	c.mu.Lock()
	h := c.handlers
	c.mu.Unlock()

	switch f.Event {
	case eventRoomJoined:
		var p roomJoinedPayload
		if c.decode(f, &p) && h.OnRoomJoined != nil {
			members := make([]types.UserIdentity, 0, len(p.Members))
			for _, m := range p.Members {
				members = append(members, m.identity())
			}
			h.OnRoomJoined(members)
		}

	case eventUserJoined:
		var p memberPayload
		if c.decode(f, &p) && h.OnUserJoined != nil {
			h.OnUserJoined(p.identity())
		}

	case eventUserLeft:
		var p userRefPayload
		if c.decode(f, &p) && h.OnUserLeft != nil {
			h.OnUserLeft(string(p.ID))
		}

	case eventCursorMoved:
		var p cursorPayload
		if c.decode(f, &p) && h.OnCursorMoved != nil {
			h.OnCursorMoved(string(p.ID), p.Position)
		}

	case eventSelectionChanged:
		var p selectionPayload
		if c.decode(f, &p) && h.OnSelectionChanged != nil {
			h.OnSelectionChanged(string(p.ID), p.Range)
		}

	case eventSelectionCleared:
		var p userRefPayload
		if c.decode(f, &p) && h.OnSelectionCleared != nil {
			h.OnSelectionCleared(string(p.ID))
		}

	case eventUserTyping:
		var p userRefPayload
		if c.decode(f, &p) && h.OnUserTyping != nil {
			h.OnUserTyping(string(p.ID))
		}

	case eventUserStopped:
		var p userRefPayload
		if c.decode(f, &p) && h.OnUserStoppedTyping != nil {
			h.OnUserStoppedTyping(string(p.ID))
		}

	case eventError:
		var p errorPayload
		if c.decode(f, &p) && h.OnError != nil {
			h.OnError(&ServerError{Code: p.Code, Message: p.Message})
		}

	default:
		c.logger.Debug("ignoring unknown event", "event", f.Event)
	}
}

// decode unmarshals a frame payload, logging and dropping malformed data.
func (c *Client) decode(f frame, into any) bool {
	if err := json.Unmarshal(f.Data, into); err != nil {
		c.logger.Warn("dropping malformed payload", "event", f.Event, "error", err)
		return false
	}

	return true
}

// emitStatus reports a channel health transition to the handler, if any.
func (c *Client) emitStatus(state types.ChannelState) {
	c.mu.Lock()
	h := c.handlers.OnStatusChanged
	c.mu.Unlock()

	if h != nil {
		h(state)
	}
}
