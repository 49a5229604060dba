package iinterview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/qiming97/iinterview/internal/color"
	"github.com/qiming97/iinterview/internal/decoration"
	"github.com/qiming97/iinterview/internal/health"
	"github.com/qiming97/iinterview/internal/logging"
	"github.com/qiming97/iinterview/internal/metrics"
	"github.com/qiming97/iinterview/internal/mutation"
	"github.com/qiming97/iinterview/internal/registry"
	"github.com/qiming97/iinterview/internal/save"
	"github.com/qiming97/iinterview/internal/timers"
	"github.com/qiming97/iinterview/internal/typing"
	"github.com/qiming97/iinterview/replication"
	"github.com/qiming97/iinterview/types"
)

// Coordinator owns presence and synchronization state for one user in one
// room.
//
// All state mutations run on a single event goroutine started by Start.
// Inbound transport events, timer callbacks and local input are posted onto
// the event queue; the read-only accessors (Snapshot, ColorFor,
// CombinedStatus) are safe from any goroutine.
//
// A Coordinator is single-use: Start once, Stop once.
type Coordinator struct {
	cfg       Config
	self      types.UserIdentity
	transport types.Transport
	engine    replication.Engine
	repl      *replication.Channel
	store     types.ContentStore
	sink      types.MarkerSink
	hooks     *Hooks
	logger    Logger
	metrics   MetricsCollector

	colors   *color.Assigner
	registry *registry.Registry
	timers   *timers.Registry
	window   *mutation.Window
	detector *typing.Detector
	tracker  *health.Tracker
	gate     *decoration.Gate
	saver    *save.Saver

	mu      sync.Mutex
	started bool
	stopped bool

	events chan func()
	stopCh chan struct{}
	doneCh chan struct{}

	hookCtx    context.Context
	hookCancel context.CancelFunc

	suppressMu          sync.Mutex
	suppressCursorUntil time.Time

	// lastOnline tracks the ids of the last presence-hook dispatch, so the
	// hook fires on membership changes only, not on every cursor move.
	// Accessed from the event goroutine only.
	lastOnline []string
}

// NewCoordinator creates a coordinator for one room session.
//
// Parameters:
//   - cfg: Configuration (missing values are filled with defaults)
//   - self: The local user's identity
//   - transport: Signaling channel implementation
//   - engine: Document engine implementation
//   - opts: Optional dependencies (logger, metrics, hooks, store, sink, replication)
//
// Returns:
//   - *Coordinator: The coordinator, not yet started
//   - error: ErrInvalidConfig, ErrTransportRequired or ErrEngineRequired
func NewCoordinator(cfg Config, self types.UserIdentity, transport types.Transport, engine replication.Engine, opts ...Option) (*Coordinator, error) {
	if transport == nil {
		return nil, ErrTransportRequired
	}
	if engine == nil {
		return nil, ErrEngineRequired
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if self.ID == "" {
		return nil, fmt.Errorf("%w: local user id must be set", ErrInvalidConfig)
	}

	options := &coordinatorOptions{}
	for _, opt := range opts {
		opt(options)
	}

	logger := options.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	collector := options.metrics
	if collector == nil {
		collector = metrics.NewNop()
	}

	cfg.ValidateWithWarnings(logger)

	c := &Coordinator{
		cfg:       cfg,
		self:      self,
		transport: transport,
		engine:    engine,
		repl:      options.replication,
		store:     options.store,
		sink:      options.sink,
		hooks:     options.hooks,
		logger:    logger,
		metrics:   collector,

		events: make(chan func(), cfg.EventQueueSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	c.hookCtx, c.hookCancel = context.WithCancel(context.Background())

	c.timers = timers.NewRegistry()
	c.colors = color.NewAssigner()
	c.registry = registry.New(self.ID, c.colors, c.timers, cfg.LeaveDedupWindow,
		logger, collector, c.presenceChanged)
	c.window = mutation.NewWindow(cfg.RemoteMutationQuiet, c.timers, logger, func() {
		c.schedule(c.recomputeDecorations)
	})
	c.tracker = health.NewTracker(logger, collector, c.statusChanged)
	c.detector = typing.New(self.ID, typing.Config{
		Debounce:       cfg.TypingDebounce,
		ImmediateAfter: cfg.TypingImmediateAfter,
		Expiry:         cfg.TypingExpiry,
	}, c.registry, c.timers, logger, collector, c.announceTyping, c.schedule)

	if c.sink != nil {
		c.gate = decoration.NewGate(c.registry, c.window, c.sink, c.timers,
			cfg.DecorationRetryDelay, logger, collector, c.schedule)
	}
	if c.store != nil {
		c.saver = save.New(cfg.RoomID, c.store, engine.Text, c.window,
			c.tracker.NetworkOnline, cfg.SaveInterval, cfg.SaveTimeout,
			logger, collector, c.roomGone, c.saveResult)
	}

	return c, nil
}

// Start connects both channels, joins the room, seeds initial content and
// begins periodic saving.
//
// Parameters:
//   - ctx: Bounds the connect-and-join sequence together with JoinTimeout
//
// Returns:
//   - error: ErrAlreadyStarted, or the first connection failure
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	go c.run()

	joinCtx, cancel := context.WithTimeout(ctx, c.cfg.JoinTimeout)
	defer cancel()

	c.transport.SetHandlers(c.transportHandlers())

	if err := c.transport.Connect(joinCtx); err != nil {
		c.abort()
		return fmt.Errorf("failed to connect signaling channel: %w", err)
	}
	if err := c.transport.JoinRoom(c.cfg.RoomID, c.self); err != nil {
		c.transport.Disconnect()
		c.abort()

		return fmt.Errorf("failed to join room %s: %w", c.cfg.RoomID, err)
	}

	if c.repl != nil {
		c.repl.SetOnUpdate(func(update []byte) {
			c.schedule(func() { c.applyRemoteUpdate(update) })
		})
		c.repl.SetOnStatus(func(state types.ChannelState) {
			c.tracker.SetChannelState(types.ChannelReplication, state)
		})

		if err := c.repl.Connect(); err != nil {
			c.transport.Disconnect()
			c.abort()

			return fmt.Errorf("failed to connect replication channel: %w", err)
		}

		c.engine.SetOnLocalUpdate(func(update []byte) {
			if err := c.repl.Publish(update); err != nil {
				c.logger.Warn("failed to broadcast local update", "error", err)
			}
		})
	} else {
		// Signaling-only session: the replication leg never blocks the
		// combined status.
		c.tracker.SetChannelState(types.ChannelReplication, types.ChannelConnected)
	}

	if c.saver != nil {
		c.seedInitialContent(joinCtx)
		if err := c.saver.Start(); err != nil {
			c.logger.Error("failed to start periodic saving", "error", err)
		}
	}

	c.logger.Info("coordinator started",
		"room_id", c.cfg.RoomID,
		"user_id", c.self.ID,
	)

	return nil
}

// Stop performs graceful teardown: a best-effort final save, leaving the
// room, disconnecting both channels and cancelling every pending timer.
//
// Parameters:
//   - ctx: Bounds the teardown together with ShutdownTimeout
//
// Returns:
//   - error: ErrNotStarted when Start was never called; nil on repeat calls
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return ErrNotStarted
	}
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	c.mu.Unlock()

	if c.saver != nil {
		if err := c.saver.Stop(); err != nil && !errors.Is(err, save.ErrNotStarted) {
			c.logger.Warn("failed to stop saver", "error", err)
		}

		saveCtx, cancel := context.WithTimeout(ctx, c.cfg.SaveTimeout)
		if err := c.saver.SaveNow(saveCtx); err != nil &&
			!errors.Is(err, types.ErrRoomNotFound) && !errors.Is(err, types.ErrSaveInFlight) {
			c.logger.Warn("final save failed", "room_id", c.cfg.RoomID, "error", err)
		}
		cancel()
	}

	c.engine.SetOnLocalUpdate(nil)
	if c.repl != nil {
		c.repl.Disconnect()
	}

	if err := c.transport.LeaveRoom(); err != nil {
		c.logger.Debug("failed to announce leave", "error", err)
	}
	c.transport.Disconnect()

	c.tracker.Close()
	c.timers.CancelAll()
	c.hookCancel()

	close(c.stopCh)
	select {
	case <-c.doneCh:
	case <-time.After(c.cfg.ShutdownTimeout):
		c.logger.Warn("event loop did not drain before shutdown timeout")
	case <-ctx.Done():
	}

	c.logger.Info("coordinator stopped", "room_id", c.cfg.RoomID)

	return nil
}

// abort tears down the event loop after a failed Start.
func (c *Coordinator) abort() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.mu.Unlock()

	c.tracker.Close()
	c.timers.CancelAll()
	c.hookCancel()
	close(c.stopCh)
	<-c.doneCh
}

// run is the event goroutine. Every state mutation in the session executes
// here, which is what makes the internal components safe without
// cross-component locking.
func (c *Coordinator) run() {
	defer close(c.doneCh)

	for {
		select {
		case <-c.stopCh:
			return
		case fn := <-c.events:
			fn()
		}
	}
}

// schedule posts fn onto the event queue. Blocks when the queue is full,
// backpressuring the caller; returns silently once teardown has begun.
func (c *Coordinator) schedule(fn func()) {
	select {
	case c.events <- fn:
	case <-c.stopCh:
	}
}

// transportHandlers wires inbound signaling events onto the event queue.
func (c *Coordinator) transportHandlers() types.TransportHandlers {
	return types.TransportHandlers{
		OnRoomJoined: func(members []types.UserIdentity) {
			c.schedule(func() { c.registry.ApplyFullSnapshot(members) })
		},
		OnUserJoined: func(identity types.UserIdentity) {
			c.schedule(func() { c.registry.ApplyJoin(identity) })
		},
		OnUserLeft: func(id string) {
			c.schedule(func() { c.registry.ApplyLeave(id) })
		},
		OnCursorMoved: func(id string, pos types.CursorPosition) {
			c.schedule(func() { c.registry.SetCursor(id, pos) })
		},
		OnSelectionChanged: func(id string, sel types.SelectionRange) {
			c.schedule(func() { c.registry.SetSelection(id, &sel) })
		},
		OnSelectionCleared: func(id string) {
			c.schedule(func() { c.registry.SetSelection(id, nil) })
		},
		OnUserTyping: func(id string) {
			c.schedule(func() { c.detector.RemoteTyping(id) })
		},
		OnUserStoppedTyping: func(id string) {
			c.schedule(func() { c.detector.RemoteStopTyping(id) })
		},
		OnStatusChanged: func(state types.ChannelState) {
			c.tracker.SetChannelState(types.ChannelSignaling, state)
		},
		OnError: func(err error) {
			c.logger.Warn("signaling error", "error", err)
			c.dispatchError(err)
		},
	}
}

// applyRemoteUpdate absorbs one remote document mutation. Runs on the event
// goroutine.
func (c *Coordinator) applyRemoteUpdate(update []byte) {
	c.window.Arm()

	c.suppressMu.Lock()
	c.suppressCursorUntil = time.Now().Add(c.cfg.CursorSuppressAfterRemote)
	c.suppressMu.Unlock()

	if err := c.engine.ApplyRemote(update); err != nil {
		c.logger.Error("failed to apply remote update", "error", err)
		c.dispatchError(err)
	}
}

// seedInitialContent loads persisted content and seeds an empty shared
// document with it, so the first participant of a resumed session sees the
// saved state.
func (c *Coordinator) seedInitialContent(ctx context.Context) {
	content, err := c.store.Load(ctx, c.cfg.RoomID)
	if err != nil {
		if errors.Is(err, types.ErrRoomNotFound) {
			c.logger.Debug("no persisted content, starting fresh", "room_id", c.cfg.RoomID)
			return
		}
		c.logger.Warn("failed to load persisted content", "room_id", c.cfg.RoomID, "error", err)

		return
	}

	if content == "" {
		return
	}

	live := c.engine.Text()
	if live == "" {
		c.engine.SetText(content)
		c.logger.Info("seeded document with persisted content",
			"room_id", c.cfg.RoomID,
			"bytes", len(content),
		)
		live = content
	}

	// Seed the dedup fingerprint only when the live document matches the
	// persisted copy; a diverged document must be written out on the first
	// interval, not treated as already saved.
	if live == content {
		c.saver.SeedFingerprint(content)
	}
}

// LocalKeystroke reports one local keystroke for typing detection.
func (c *Coordinator) LocalKeystroke(key KeyKind) {
	c.schedule(func() { c.detector.LocalKeystroke(key) })
}

// LocalCursorMoved broadcasts the local cursor position.
//
// Movement observed shortly after a remote mutation is treated as
// merge-induced rather than user-initiated and is not broadcast.
func (c *Coordinator) LocalCursorMoved(pos CursorPosition) {
	if c.cursorSuppressed() || c.window.Active() {
		c.metrics.RecordDuplicateDropped("merge_cursor")
		c.logger.Debug("suppressed merge-induced cursor move")

		return
	}

	if err := c.transport.SendCursor(pos); err != nil {
		c.logger.Warn("failed to send cursor", "error", err)
	}
}

// LocalSelectionChanged broadcasts the local selection. A nil or empty range
// (start equals end) is broadcast as an explicit selection clear.
func (c *Coordinator) LocalSelectionChanged(sel *SelectionRange) {
	if sel == nil || (sel.StartLine == sel.EndLine && sel.StartColumn == sel.EndColumn) {
		if err := c.transport.SendSelectionCleared(); err != nil {
			c.logger.Warn("failed to send selection clear", "error", err)
		}

		return
	}

	if err := c.transport.SendSelection(*sel); err != nil {
		c.logger.Warn("failed to send selection", "error", err)
	}
}

// Snapshot returns a read-only copy of the current presence view plus the
// combined connection status. Safe from any goroutine.
func (c *Coordinator) Snapshot() PresenceSnapshot {
	return c.registry.Snapshot(c.tracker.Combined())
}

// ColorFor returns the stable color for a user id. Safe from any goroutine.
func (c *Coordinator) ColorFor(id string) Color {
	return c.registry.ColorFor(id)
}

// CombinedStatus returns the single connection status surfaced to the UI.
func (c *Coordinator) CombinedStatus() CombinedStatus {
	return c.tracker.Combined()
}

// SetNetworkOnline records the host network state. Offline trumps every
// channel state in the combined status and suppresses periodic saves.
func (c *Coordinator) SetNetworkOnline(online bool) {
	c.tracker.SetNetworkOnline(online)
}

// RequestManualReconnect retries whichever channels are unhealthy. The
// signaling transport is reconnected and rejoined directly; the replication
// channel is forced through a disconnect-then-reconnect cycle spaced by
// ReconnectDelay. A channel that is already healthy is left alone, so calling
// this on a connected session is a no-op. The combined status reports
// connecting for the whole replication cycle.
//
// Returns:
//   - error: ErrNoReplication when the session has no replication channel to
//     cycle; the signaling retry has run by then
func (c *Coordinator) RequestManualReconnect() error {
	c.logger.Info("manual reconnect requested", "room_id", c.cfg.RoomID)

	if c.tracker.ChannelState(types.ChannelSignaling) == types.ChannelDisconnected {
		c.metrics.RecordManualReconnect(types.ChannelSignaling)

		if err := c.transport.Connect(context.Background()); err != nil {
			c.logger.Error("manual transport reconnect failed", "error", err)
			c.dispatchError(err)
		} else if err := c.transport.JoinRoom(c.cfg.RoomID, c.self); err != nil {
			c.logger.Error("room rejoin failed", "error", err)
			c.dispatchError(err)
		}
	}

	if c.repl == nil {
		return ErrNoReplication
	}

	if c.tracker.ChannelState(types.ChannelReplication) == types.ChannelConnected {
		return nil
	}

	c.metrics.RecordManualReconnect(types.ChannelReplication)
	c.tracker.SetReconnecting(true)

	c.repl.Disconnect()

	c.timers.Arm(timers.ReconnectDelay, "", c.cfg.ReconnectDelay, func() {
		c.schedule(func() {
			if err := c.repl.Connect(); err != nil {
				c.logger.Error("manual reconnect failed", "error", err)
				c.dispatchError(err)
			}
			c.tracker.SetReconnecting(false)
		})
	})

	return nil
}

// RequestSave performs a user-triggered save, bypassing the interval.
//
// Parameters:
//   - ctx: Bounds the save attempt
//
// Returns:
//   - error: ErrNoContentStore, ErrSaveInFlight, ErrRoomNotFound or the
//     store failure
func (c *Coordinator) RequestSave(ctx context.Context) error {
	if c.saver == nil {
		return ErrNoContentStore
	}

	return c.saver.SaveNow(ctx)
}

// cursorSuppressed reports whether the post-remote-mutation cursor
// suppression window is open.
func (c *Coordinator) cursorSuppressed() bool {
	c.suppressMu.Lock()
	defer c.suppressMu.Unlock()

	return time.Now().Before(c.suppressCursorUntil)
}

// recomputeDecorations runs a gated recomputation, skipping sessions without
// a marker sink.
func (c *Coordinator) recomputeDecorations() {
	if c.gate != nil {
		c.gate.Recompute()
	}
}

// presenceChanged fires after every registry mutation, on the mutating
// goroutine (always the event goroutine).
func (c *Coordinator) presenceChanged() {
	c.recomputeDecorations()

	if c.hooks == nil || c.hooks.OnPresenceChanged == nil {
		return
	}

	snap := c.Snapshot()
	ids := make([]string, 0, len(snap.OnlineUsers))
	for _, u := range snap.OnlineUsers {
		ids = append(ids, u.ID)
	}
	if equalIDs(ids, c.lastOnline) {
		return
	}
	c.lastOnline = ids

	c.runHook("presence_changed", func(ctx context.Context) error {
		return c.hooks.OnPresenceChanged(ctx, snap)
	})
}

// statusChanged fires when the derived combined status changes.
func (c *Coordinator) statusChanged(from, to CombinedStatus) {
	c.logger.Info("combined status changed",
		"from", from.String(),
		"to", to.String(),
	)

	if c.hooks != nil && c.hooks.OnStatusChanged != nil {
		c.runHook("status_changed", func(ctx context.Context) error {
			return c.hooks.OnStatusChanged(ctx, from, to)
		})
	}
}

// roomGone fires exactly once when persistence reports the room deleted.
func (c *Coordinator) roomGone() {
	c.logger.Warn("room no longer exists, periodic saving stopped", "room_id", c.cfg.RoomID)

	if c.hooks != nil && c.hooks.OnRoomGone != nil {
		c.runHook("room_gone", func(ctx context.Context) error {
			return c.hooks.OnRoomGone(ctx)
		})
	}
}

// saveResult fires after every completed save attempt.
func (c *Coordinator) saveResult(err error) {
	if c.hooks != nil && c.hooks.OnSaveResult != nil {
		c.runHook("save_result", func(ctx context.Context) error {
			return c.hooks.OnSaveResult(ctx, err)
		})
	}
}

// dispatchError surfaces a recoverable error through the OnError hook.
func (c *Coordinator) dispatchError(err error) {
	if c.hooks != nil && c.hooks.OnError != nil {
		c.runHook("error", func(ctx context.Context) error {
			return c.hooks.OnError(ctx, err)
		})
	}
}

// announceTyping performs the outbound typing send for the detector.
func (c *Coordinator) announceTyping() {
	if err := c.transport.SendTyping(); err != nil {
		c.logger.Warn("failed to send typing announcement", "error", err)
	}
}

// runHook executes one hook in a background goroutine so it can never block
// the event loop. Hook errors are logged, never propagated.
func (c *Coordinator) runHook(name string, fn func(context.Context) error) {
	go func() {
		if err := fn(c.hookCtx); err != nil {
			c.logger.Warn("hook returned error", "hook", name, "error", err)
		}
	}()
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
