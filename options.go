package iinterview

import (
	"github.com/qiming97/iinterview/replication"
	"github.com/qiming97/iinterview/types"
)

// Option configures a Coordinator with optional dependencies.
type Option func(*coordinatorOptions)

// coordinatorOptions holds optional Coordinator configuration.
type coordinatorOptions struct {
	logger      Logger
	metrics     MetricsCollector
	hooks       *Hooks
	store       types.ContentStore
	sink        types.MarkerSink
	replication *replication.Channel
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with slog via logging.NewSlog)
//
// Returns:
//   - Option: Functional option for NewCoordinator
//
// Example:
//
//	logger := logging.NewSlogDefault()
//	coord, _ := iinterview.NewCoordinator(cfg, self, tr, eng, iinterview.WithLogger(logger))
func WithLogger(logger Logger) Option {
	return func(o *coordinatorOptions) {
		o.logger = logger
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewCoordinator
//
// Example:
//
//	collector := metrics.NewPrometheus(prometheus.DefaultRegisterer, "collab")
//	coord, _ := iinterview.NewCoordinator(cfg, self, tr, eng, iinterview.WithMetrics(collector))
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *coordinatorOptions) {
		o.metrics = metrics
	}
}

// WithHooks sets lifecycle event hooks.
//
// Parameters:
//   - hooks: Hooks structure with callback functions
//
// Returns:
//   - Option: Functional option for NewCoordinator
//
// Example:
//
//	hooks := &iinterview.Hooks{
//	    OnStatusChanged: func(ctx context.Context, from, to iinterview.CombinedStatus) error {
//	        return updateStatusBar(to)
//	    },
//	}
//	coord, _ := iinterview.NewCoordinator(cfg, self, tr, eng, iinterview.WithHooks(hooks))
func WithHooks(hooks *Hooks) Option {
	return func(o *coordinatorOptions) {
		o.hooks = hooks
	}
}

// WithContentStore enables periodic and explicit content persistence.
//
// Without a store the coordinator never saves; RequestSave returns
// ErrNoContentStore.
//
// Parameters:
//   - store: ContentStore implementation
//
// Returns:
//   - Option: Functional option for NewCoordinator
func WithContentStore(store types.ContentStore) Option {
	return func(o *coordinatorOptions) {
		o.store = store
	}
}

// WithMarkerSink sets the receiver of recomputed decoration sets.
//
// Without a sink decorations are never recomputed; presence state is still
// tracked and available through Snapshot.
//
// Parameters:
//   - sink: MarkerSink implementation (typically the editor rendering layer)
//
// Returns:
//   - Option: Functional option for NewCoordinator
func WithMarkerSink(sink types.MarkerSink) Option {
	return func(o *coordinatorOptions) {
		o.sink = sink
	}
}

// WithReplication attaches the document update channel.
//
// The coordinator wires the channel to the engine (inbound updates are
// applied inside the remote-mutation window, local engine updates are
// broadcast), folds the channel's health into the combined status, and
// targets it with RequestManualReconnect. Without a channel the session is
// signaling-only and the replication leg reports connected.
//
// Parameters:
//   - ch: Replication channel created with replication.NewChannel
//
// Returns:
//   - Option: Functional option for NewCoordinator
func WithReplication(ch *replication.Channel) Option {
	return func(o *coordinatorOptions) {
		o.replication = ch
	}
}
