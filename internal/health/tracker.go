// Package health tracks the health of the two session channels independently
// and derives the single combined status surfaced to the UI.
package health

import (
	"sync"

	"github.com/qiming97/iinterview/types"
)

// validTransitions defines the allowed channel state machine.
//
//	connecting → connected | disconnected | reconnecting
//	connected  → disconnected | reconnecting
//	reconnecting → connected | disconnected
//	disconnected → connecting
//
// There is no terminal state; channels retry until explicit teardown, which
// suppresses further transitions entirely.
var validTransitions = map[types.ChannelState][]types.ChannelState{
	types.ChannelConnecting:   {types.ChannelConnected, types.ChannelDisconnected, types.ChannelReconnecting},
	types.ChannelConnected:    {types.ChannelDisconnected, types.ChannelReconnecting},
	types.ChannelReconnecting: {types.ChannelConnected, types.ChannelDisconnected},
	types.ChannelDisconnected: {types.ChannelConnecting},
}

// Tracker holds per-channel health plus the host network flag and the
// local reconnect-in-progress flag, and derives the combined UI status as the
// worst of all of them. The combined status is always derived, never stored.
type Tracker struct {
	mu sync.Mutex

	states       map[types.Channel]types.ChannelState
	online       bool
	reconnecting bool
	closed       bool

	logger   types.Logger
	metrics  types.MetricsCollector
	onChange func(from, to types.CombinedStatus)
}

// NewTracker creates a tracker with both channels in the connecting state and
// the network assumed online.
//
// onChange fires on the mutating goroutine whenever the derived combined
// status changes. It may be nil.
func NewTracker(logger types.Logger, metrics types.MetricsCollector, onChange func(from, to types.CombinedStatus)) *Tracker {
	return &Tracker{
		states: map[types.Channel]types.ChannelState{
			types.ChannelReplication: types.ChannelConnecting,
			types.ChannelSignaling:   types.ChannelConnecting,
		},
		online:   true,
		logger:   logger,
		metrics:  metrics,
		onChange: onChange,
	}
}

// SetChannelState applies a channel health transition.
//
// A transition to the current state is a silent no-op. An invalid transition
// is a defensive no-op: logged, never propagated, because a crash here would
// take down the whole session.
func (t *Tracker) SetChannelState(ch types.Channel, to types.ChannelState) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	from := t.states[ch]
	if from == to {
		t.mu.Unlock()
		return
	}

	if !isValid(from, to) {
		t.mu.Unlock()
		t.logger.Error("invalid channel state transition attempted",
			"channel", ch.String(),
			"from", from.String(),
			"to", to.String(),
		)

		return
	}

	before := t.combinedLocked()
	t.states[ch] = to
	after := t.combinedLocked()
	t.mu.Unlock()

	t.logger.Info("channel state transition",
		"channel", ch.String(),
		"from", from.String(),
		"to", to.String(),
	)
	t.metrics.RecordChannelTransition(ch, from, to)

	t.emit(before, after)
}

// SetNetworkOnline records the host network state.
func (t *Tracker) SetNetworkOnline(online bool) {
	t.mu.Lock()
	if t.closed || t.online == online {
		t.mu.Unlock()
		return
	}

	before := t.combinedLocked()
	t.online = online
	after := t.combinedLocked()
	t.mu.Unlock()

	t.logger.Info("network state changed", "online", online)
	t.emit(before, after)
}

// SetReconnecting records whether a manual reconnect cycle is in progress.
func (t *Tracker) SetReconnecting(active bool) {
	t.mu.Lock()
	if t.closed || t.reconnecting == active {
		t.mu.Unlock()
		return
	}

	before := t.combinedLocked()
	t.reconnecting = active
	after := t.combinedLocked()
	t.mu.Unlock()

	t.emit(before, after)
}

// ChannelState returns the current state of one channel.
func (t *Tracker) ChannelState(ch types.Channel) types.ChannelState {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.states[ch]
}

// NetworkOnline reports the recorded host network state.
func (t *Tracker) NetworkOnline() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.online
}

// Combined derives the status surfaced to the UI: network offline trumps
// everything; otherwise any connecting or reconnecting channel (or a manual
// reconnect in progress) reports connecting; otherwise any down channel
// reports disconnected; otherwise connected.
func (t *Tracker) Combined() types.CombinedStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.combinedLocked()
}

// Close suppresses all further transitions. Idempotent; used at teardown.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

func (t *Tracker) combinedLocked() types.CombinedStatus {
	if !t.online {
		return types.StatusOffline
	}

	if t.reconnecting {
		return types.StatusConnecting
	}

	anyDown := false
	for _, s := range t.states {
		switch s {
		case types.ChannelConnecting, types.ChannelReconnecting:
			return types.StatusConnecting
		case types.ChannelDisconnected:
			anyDown = true
		case types.ChannelConnected:
		}
	}

	if anyDown {
		return types.StatusDisconnected
	}

	return types.StatusConnected
}

func (t *Tracker) emit(from, to types.CombinedStatus) {
	if from != to && t.onChange != nil {
		t.onChange(from, to)
	}
}

func isValid(from, to types.ChannelState) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}

	return false
}
