package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// All methods may be called from internal goroutines and must be thread-safe.
//
// This interface composes smaller, domain-focused interfaces so that
// instrumentation can grow area by area.
type MetricsCollector interface {
	ConnectionMetrics
	PresenceMetrics
	SaveMetrics
	DecorationMetrics
}

// ConnectionMetrics defines metrics for channel health.
type ConnectionMetrics interface {
	// RecordChannelTransition records a channel state transition.
	RecordChannelTransition(channel Channel, from, to ChannelState)

	// RecordManualReconnect records a user-triggered reconnect action.
	RecordManualReconnect(channel Channel)
}

// PresenceMetrics defines metrics for awareness-event processing.
type PresenceMetrics interface {
	// RecordPresenceEvent records one processed awareness event by kind
	// ("join", "leave", "cursor", "selection", "typing", "snapshot").
	RecordPresenceEvent(kind string)

	// RecordDuplicateDropped records a dropped stale or duplicate event by
	// kind ("leave", "self_echo").
	RecordDuplicateDropped(kind string)

	// RecordOnlineUsers sets the current online-user count.
	RecordOnlineUsers(count int)
}

// SaveMetrics defines metrics for the save coordinator.
type SaveMetrics interface {
	// RecordSaveAttempt records a save attempt and its outcome
	// ("ok", "error", "skipped_unchanged", "skipped_busy").
	RecordSaveAttempt(outcome string)

	// RecordSaveDuration records save latency in seconds.
	RecordSaveDuration(seconds float64)
}

// DecorationMetrics defines metrics for decoration recomputation.
type DecorationMetrics interface {
	// RecordRecompute records a decoration recomputation outcome
	// ("applied", "dropped_busy", "deferred").
	RecordRecompute(outcome string)
}
