// Package decoration serializes recomputation of derived visual state
// (remote cursor and selection markers) against the presence registry and the
// remote-mutation window.
package decoration

import (
	"sync/atomic"
	"time"

	"github.com/qiming97/iinterview/internal/mutation"
	"github.com/qiming97/iinterview/internal/registry"
	"github.com/qiming97/iinterview/internal/timers"
	"github.com/qiming97/iinterview/types"
)

// Gate prevents recomputation storms and races when turning registry state
// into markers.
//
// Rules:
//   - A recomputation in progress sets a guard; requests arriving while the
//     guard is set are dropped, not queued. The triggering mutation's next
//     change notification produces a fresh, correct recomputation, so
//     information is coalesced, never lost.
//   - While the remote-mutation window is active, requests are deferred by a
//     short delay and retried rather than dropped, because markers anchored
//     to text positions are invalid while the text is being rewritten.
//   - Each recomputation replaces the previous marker set wholesale.
type Gate struct {
	busy atomic.Bool

	reg        *registry.Registry
	window     *mutation.Window
	sink       types.MarkerSink
	timers     *timers.Registry
	retryDelay time.Duration
	schedule   func(func())
	logger     types.Logger
	metrics    types.MetricsCollector
}

// NewGate creates a gate for one room session.
//
// schedule re-enters the coordinator's event goroutine for deferred retries;
// nil means retries run directly on the timer goroutine.
func NewGate(reg *registry.Registry, window *mutation.Window, sink types.MarkerSink, tr *timers.Registry, retryDelay time.Duration, logger types.Logger, metrics types.MetricsCollector, schedule func(func())) *Gate {
	if schedule == nil {
		schedule = func(fn func()) { fn() }
	}

	return &Gate{
		reg:        reg,
		window:     window,
		sink:       sink,
		timers:     tr,
		retryDelay: retryDelay,
		schedule:   schedule,
		logger:     logger,
		metrics:    metrics,
	}
}

// Recompute rebuilds the marker set and hands it to the sink.
func (g *Gate) Recompute() {
	if g.reg == nil || g.sink == nil {
		// A recomputation with nothing to read or write is a programming
		// error upstream; crashing here would break the session.
		g.logger.Error("decoration recompute requested without registry or sink")

		return
	}

	if g.window.Active() {
		g.metrics.RecordRecompute("deferred")
		g.timers.Arm(timers.DecorationRetry, "", g.retryDelay, func() {
			g.schedule(g.Recompute)
		})

		return
	}

	if !g.busy.CompareAndSwap(false, true) {
		g.metrics.RecordRecompute("dropped_busy")

		return
	}
	defer g.busy.Store(false)

	g.sink.ReplaceMarkers(g.reg.Markers())
	g.metrics.RecordRecompute("applied")
}
