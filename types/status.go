package types

// ChannelState is the health of one of the two session channels.
//
// Valid transitions:
//
//	Connecting → Connected
//	Connected  → Disconnected | Reconnecting
//	Reconnecting → Connected | Disconnected
//	Disconnected → Connecting
//
// There is no terminal state; channels retry until the session is torn down.
type ChannelState int

const (
	// ChannelConnecting indicates the initial or a retried connection attempt.
	ChannelConnecting ChannelState = iota

	// ChannelConnected indicates a healthy channel.
	ChannelConnected

	// ChannelDisconnected indicates the channel is down with no attempt in flight.
	ChannelDisconnected

	// ChannelReconnecting indicates a transport-level transient error is being
	// retried, distinct from an explicit disconnect.
	ChannelReconnecting
)

// String returns the string representation of the channel state.
func (s ChannelState) String() string {
	switch s {
	case ChannelConnecting:
		return "connecting"
	case ChannelConnected:
		return "connected"
	case ChannelDisconnected:
		return "disconnected"
	case ChannelReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Channel identifies which of the two session channels a state change refers to.
type Channel int

const (
	// ChannelReplication is the document-replication channel.
	ChannelReplication Channel = iota

	// ChannelSignaling is the realtime awareness-event channel.
	ChannelSignaling
)

// String returns the string representation of the channel.
func (c Channel) String() string {
	switch c {
	case ChannelReplication:
		return "replication"
	case ChannelSignaling:
		return "signaling"
	default:
		return "unknown"
	}
}

// CombinedStatus is the single connection status surfaced to the UI, derived
// as the worst of the host network state and both channel states. It is never
// stored; it is recomputed from the underlying states on demand.
type CombinedStatus int

const (
	// StatusConnected indicates both channels healthy and the network online.
	StatusConnected CombinedStatus = iota

	// StatusConnecting indicates at least one channel is connecting or
	// reconnecting.
	StatusConnecting

	// StatusDisconnected indicates at least one channel is down with no
	// attempt in flight.
	StatusDisconnected

	// StatusOffline indicates the host network is offline, regardless of
	// channel states.
	StatusOffline
)

// String returns the string representation of the combined status.
func (s CombinedStatus) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusConnecting:
		return "connecting"
	case StatusDisconnected:
		return "disconnected"
	case StatusOffline:
		return "network offline"
	default:
		return "unknown"
	}
}
