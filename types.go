package iinterview

import "github.com/qiming97/iinterview/types"

// Re-exported types from the types package for API convenience.
//
// The canonical definitions live in the types package so internal packages
// can share them without importing this package.

// UserIdentity identifies a collaborating user.
type UserIdentity = types.UserIdentity

// CursorPosition is a 1-based line/column caret position.
type CursorPosition = types.CursorPosition

// SelectionRange is a 1-based inclusive selection span.
type SelectionRange = types.SelectionRange

// Color is a renderable CSS color string.
type Color = types.Color

// PresenceEntry is one online user's ephemeral state.
type PresenceEntry = types.PresenceEntry

// PresenceSnapshot is a read-only copy of the full presence view.
type PresenceSnapshot = types.PresenceSnapshot

// Marker is one remote user's renderable decoration.
type Marker = types.Marker

// MarkerSink receives full replacement decoration sets.
type MarkerSink = types.MarkerSink

// ChannelState is the health state of one session channel.
type ChannelState = types.ChannelState

// Channel names one of the two session channels.
type Channel = types.Channel

// CombinedStatus is the single connection status surfaced to the UI.
type CombinedStatus = types.CombinedStatus

// Origin tags whether an observed change was caused locally or remotely.
type Origin = types.Origin

// KeyKind classifies a keystroke for typing detection.
type KeyKind = types.KeyKind

// Transport is the realtime signaling channel.
type Transport = types.Transport

// TransportHandlers receives inbound signaling events.
type TransportHandlers = types.TransportHandlers

// ContentStore persists room document content.
type ContentStore = types.ContentStore

// Logger is the pluggable logging interface.
type Logger = types.Logger

// MetricsCollector receives operational metrics.
type MetricsCollector = types.MetricsCollector

// Hooks defines callbacks for coordinator lifecycle events.
type Hooks = types.Hooks

// Channel state constants.
const (
	ChannelConnecting   = types.ChannelConnecting
	ChannelConnected    = types.ChannelConnected
	ChannelDisconnected = types.ChannelDisconnected
	ChannelReconnecting = types.ChannelReconnecting
)

// Channel names.
const (
	ChannelReplication = types.ChannelReplication
	ChannelSignaling   = types.ChannelSignaling
)

// Combined status constants.
const (
	StatusConnected    = types.StatusConnected
	StatusConnecting   = types.StatusConnecting
	StatusDisconnected = types.StatusDisconnected
	StatusOffline      = types.StatusOffline
)

// Change origin constants.
const (
	OriginLocal  = types.OriginLocal
	OriginRemote = types.OriginRemote
)

// Keystroke kinds.
const (
	KeyVisible   = types.KeyVisible
	KeyBackspace = types.KeyBackspace
	KeyDelete    = types.KeyDelete
	KeyEnter     = types.KeyEnter
	KeyTab       = types.KeyTab
	KeyOther     = types.KeyOther
)
