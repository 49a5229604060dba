package replication

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/qiming97/iinterview/types"
)

// headerSession carries the publishing session's id so peers can skip their
// own broadcasts.
const headerSession = "Collab-Session-Id"

// subjectPrefix namespaces document update subjects.
const subjectPrefix = "collab.doc."

var (
	ErrNotConnected     = errors.New("replication channel not connected")
	ErrAlreadyConnected = errors.New("replication channel already connected")
)

// Config is the replication channel configuration.
type Config struct {
	// URL is the NATS server URL.
	URL string

	// RoomID selects the update subject.
	RoomID string

	// SessionID identifies this client's broadcasts. Updates carrying the
	// same session id are dropped on receive.
	SessionID string

	// ReconnectWait is the delay between automatic reconnect attempts.
	// Default 500ms.
	ReconnectWait time.Duration

	// Logger is optional; nil discards log output.
	Logger types.Logger
}

func (c *Config) setDefaults() {
	if c.ReconnectWait <= 0 {
		c.ReconnectWait = 500 * time.Millisecond
	}
}

func (c *Config) validate() error {
	if c.URL == "" {
		return errors.New("replication URL is required")
	}
	if c.RoomID == "" {
		return errors.New("room id is required")
	}
	if c.SessionID == "" {
		return errors.New("session id is required")
	}

	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Fatal(string, ...any) {}

// Channel broadcasts and receives document updates for one room over NATS.
//
// The underlying connection reconnects on its own; explicit Disconnect and
// Connect calls exist for the user-triggered reconnect action, which tears
// the connection down and dials fresh.
type Channel struct {
	cfg    Config
	logger types.Logger

	mu       sync.Mutex
	nc       *nats.Conn
	sub      *nats.Subscription
	onUpdate func(update []byte)
	onStatus func(state types.ChannelState)
}

// NewChannel creates a replication channel. No connection is made until
// Connect.
func NewChannel(cfg Config) (*Channel, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.setDefaults()

	logger := cfg.Logger
	if logger == nil {
		logger = nopLogger{}
	}

	return &Channel{cfg: cfg, logger: logger}, nil
}

// SetOnUpdate registers the callback for updates from other sessions. Must be
// called before Connect.
func (c *Channel) SetOnUpdate(fn func(update []byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onUpdate = fn
}

// SetOnStatus registers the channel health callback. Must be called before
// Connect.
func (c *Channel) SetOnStatus(fn func(state types.ChannelState)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onStatus = fn
}

// Connect dials NATS and subscribes to the room's update subject.
func (c *Channel) Connect() error {
	c.mu.Lock()
	if c.nc != nil {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.mu.Unlock()

	c.emitStatus(types.ChannelConnecting)

	nc, err := nats.Connect(c.cfg.URL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(c.cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				c.logger.Warn("replication connection lost", "error", err)
			}
			c.emitStatus(types.ChannelReconnecting)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			c.logger.Info("replication connection restored")
			c.emitStatus(types.ChannelConnected)
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			c.emitStatus(types.ChannelDisconnected)
		}),
		// An explicit Disconnect reports its own final state; without this the
		// client would emit a spurious reconnecting transition on close.
		nats.NoCallbacksAfterClientClose(),
	)
	if err != nil {
		c.emitStatus(types.ChannelDisconnected)
		return fmt.Errorf("failed to connect replication channel: %w", err)
	}

	sub, err := nc.Subscribe(c.subject(), c.handleMessage)
	if err != nil {
		nc.Close()
		c.emitStatus(types.ChannelDisconnected)
		return fmt.Errorf("failed to subscribe to %s: %w", c.subject(), err)
	}

	// Subscription interest must reach the server before the channel reports
	// connected; core NATS never redelivers an update published earlier.
	if err := nc.Flush(); err != nil {
		nc.Close()
		c.emitStatus(types.ChannelDisconnected)
		return fmt.Errorf("failed to flush subscription for %s: %w", c.subject(), err)
	}

	c.mu.Lock()
	c.nc = nc
	c.sub = sub
	c.mu.Unlock()

	c.emitStatus(types.ChannelConnected)

	return nil
}

// Disconnect closes the connection. The ClosedHandler reports the final
// Disconnected state. Safe to call more than once.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	nc := c.nc
	sub := c.sub
	c.nc = nil
	c.sub = nil
	c.mu.Unlock()

	if sub != nil {
		_ = sub.Unsubscribe()
	}
	if nc != nil {
		// Flush pushes buffered outbound updates to the server before closing.
		_ = nc.Flush()
		nc.Close()
		c.emitStatus(types.ChannelDisconnected)
	}
}

// Publish broadcasts a local document update to the room.
func (c *Channel) Publish(update []byte) error {
	c.mu.Lock()
	nc := c.nc
	c.mu.Unlock()

	if nc == nil {
		return ErrNotConnected
	}

	msg := &nats.Msg{
		Subject: c.subject(),
		Header:  nats.Header{headerSession: []string{c.cfg.SessionID}},
		Data:    update,
	}

	if err := nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish document update: %w", err)
	}

	return nil
}

// Connected reports whether the underlying connection is currently up.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.nc != nil && c.nc.IsConnected()
}

func (c *Channel) subject() string {
	return subjectPrefix + c.cfg.RoomID
}

func (c *Channel) handleMessage(msg *nats.Msg) {
	if msg.Header.Get(headerSession) == c.cfg.SessionID {
		return // own broadcast echoed back
	}

	c.mu.Lock()
	fn := c.onUpdate
	c.mu.Unlock()

	if fn != nil && len(msg.Data) > 0 {
		fn(msg.Data)
	}
}

func (c *Channel) emitStatus(state types.ChannelState) {
	c.mu.Lock()
	fn := c.onStatus
	c.mu.Unlock()

	if fn != nil {
		fn(state)
	}
}
