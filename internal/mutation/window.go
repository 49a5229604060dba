// Package mutation tracks the remote-mutation window: the transient interval
// during which a document change attributable to a remote peer is being
// absorbed by the replication engine.
//
// While the window is active, decoration recomputation is deferred (text
// positions are invalid mid-rewrite), periodic saves are suppressed, and
// locally observed cursor movement is treated as merge-induced rather than
// user-initiated.
package mutation

import (
	"sync"
	"time"

	"github.com/qiming97/iinterview/internal/timers"
	"github.com/qiming97/iinterview/types"
)

// Window is the re-armable quiet-period flag. Each remote mutation re-arms
// the quiet timer; the window closes only after the configured period passes
// with no further remote mutations.
type Window struct {
	mu      sync.Mutex
	active  bool
	armedAt time.Time

	quiet   time.Duration
	timers  *timers.Registry
	onClose func()
	logger  types.Logger
}

// NewWindow creates an inactive window.
//
// onClose fires once per window, on the timer goroutine, when the quiet
// period elapses without a re-arm. It may be nil.
func NewWindow(quiet time.Duration, tr *timers.Registry, logger types.Logger, onClose func()) *Window {
	return &Window{
		quiet:   quiet,
		timers:  tr,
		onClose: onClose,
		logger:  logger,
	}
}

// Arm opens the window (or extends it if already open) for the quiet period.
func (w *Window) Arm() {
	w.mu.Lock()
	wasActive := w.active
	w.active = true
	w.armedAt = time.Now()
	w.mu.Unlock()

	if !wasActive {
		w.logger.Debug("remote mutation window opened")
	}

	w.timers.Arm(timers.MutationQuiet, "", w.quiet, w.close)
}

// Active reports whether a remote mutation is currently being absorbed.
func (w *Window) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.active
}

// ArmedAt returns the time of the most recent remote mutation, zero if none
// has occurred yet.
func (w *Window) ArmedAt() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.armedAt
}

func (w *Window) close() {
	w.mu.Lock()
	if !w.active {
		w.mu.Unlock()
		return
	}
	w.active = false
	w.mu.Unlock()

	w.logger.Debug("remote mutation window closed")

	if w.onClose != nil {
		w.onClose()
	}
}
