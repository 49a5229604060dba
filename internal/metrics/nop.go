// Package metrics provides types.MetricsCollector implementations: a nop
// collector used as the default and a Prometheus-backed collector.
package metrics

import "github.com/qiming97/iinterview/types"

// NopMetrics implements types.MetricsCollector with no-ops. Used as the
// default so instrumentation calls never need nil checks.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a collector that records nothing.
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// RecordChannelTransition is a no-op.
func (*NopMetrics) RecordChannelTransition(_ types.Channel, _, _ types.ChannelState) {}

// RecordManualReconnect is a no-op.
func (*NopMetrics) RecordManualReconnect(_ types.Channel) {}

// RecordPresenceEvent is a no-op.
func (*NopMetrics) RecordPresenceEvent(_ string) {}

// RecordDuplicateDropped is a no-op.
func (*NopMetrics) RecordDuplicateDropped(_ string) {}

// RecordOnlineUsers is a no-op.
func (*NopMetrics) RecordOnlineUsers(_ int) {}

// RecordSaveAttempt is a no-op.
func (*NopMetrics) RecordSaveAttempt(_ string) {}

// RecordSaveDuration is a no-op.
func (*NopMetrics) RecordSaveDuration(_ float64) {}

// RecordRecompute is a no-op.
func (*NopMetrics) RecordRecompute(_ string) {}
