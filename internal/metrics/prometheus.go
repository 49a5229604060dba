package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/qiming97/iinterview/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
type PrometheusCollector struct {
	channelTransitions *prometheus.CounterVec
	manualReconnects   *prometheus.CounterVec
	presenceEvents     *prometheus.CounterVec
	duplicatesDropped  *prometheus.CounterVec
	onlineUsers        prometheus.Gauge
	saveAttempts       *prometheus.CounterVec
	saveDuration       prometheus.Histogram
	recomputes         *prometheus.CounterVec
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a collector registered with reg under the given
// namespace. Pass prometheus.DefaultRegisterer for the process-wide registry.
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	c := &PrometheusCollector{
		channelTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_transitions_total",
			Help:      "Channel health state transitions by channel, from and to state.",
		}, []string{"channel", "from", "to"}),
		manualReconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manual_reconnects_total",
			Help:      "User-triggered reconnect actions by channel.",
		}, []string{"channel"}),
		presenceEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presence_events_total",
			Help:      "Processed awareness events by kind.",
		}, []string{"kind"}),
		duplicatesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_events_dropped_total",
			Help:      "Stale or duplicate events dropped by kind.",
		}, []string{"kind"}),
		onlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_users",
			Help:      "Current number of online users in the room.",
		}),
		saveAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "save_attempts_total",
			Help:      "Content save attempts by outcome.",
		}, []string{"outcome"}),
		saveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "save_duration_seconds",
			Help:      "Content save latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decoration_recomputes_total",
			Help:      "Decoration recomputation requests by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.channelTransitions,
		c.manualReconnects,
		c.presenceEvents,
		c.duplicatesDropped,
		c.onlineUsers,
		c.saveAttempts,
		c.saveDuration,
		c.recomputes,
	)

	return c
}

// RecordChannelTransition increments the transition counter.
func (c *PrometheusCollector) RecordChannelTransition(ch types.Channel, from, to types.ChannelState) {
	c.channelTransitions.WithLabelValues(ch.String(), from.String(), to.String()).Inc()
}

// RecordManualReconnect increments the manual reconnect counter.
func (c *PrometheusCollector) RecordManualReconnect(ch types.Channel) {
	c.manualReconnects.WithLabelValues(ch.String()).Inc()
}

// RecordPresenceEvent increments the presence event counter.
func (c *PrometheusCollector) RecordPresenceEvent(kind string) {
	c.presenceEvents.WithLabelValues(kind).Inc()
}

// RecordDuplicateDropped increments the dropped-duplicate counter.
func (c *PrometheusCollector) RecordDuplicateDropped(kind string) {
	c.duplicatesDropped.WithLabelValues(kind).Inc()
}

// RecordOnlineUsers sets the online-user gauge.
func (c *PrometheusCollector) RecordOnlineUsers(count int) {
	c.onlineUsers.Set(float64(count))
}

// RecordSaveAttempt increments the save attempt counter.
func (c *PrometheusCollector) RecordSaveAttempt(outcome string) {
	c.saveAttempts.WithLabelValues(outcome).Inc()
}

// RecordSaveDuration observes save latency.
func (c *PrometheusCollector) RecordSaveDuration(seconds float64) {
	c.saveDuration.Observe(seconds)
}

// RecordRecompute increments the recomputation counter.
func (c *PrometheusCollector) RecordRecompute(outcome string) {
	c.recomputes.WithLabelValues(outcome).Inc()
}
