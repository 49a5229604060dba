// Package typing converts raw input signals into debounced typing-state
// transitions, local and remote.
package typing

import (
	"sync"
	"time"

	"github.com/qiming97/iinterview/internal/registry"
	"github.com/qiming97/iinterview/internal/timers"
	"github.com/qiming97/iinterview/types"
)

// Config carries the detector's timing knobs.
type Config struct {
	// Debounce is the window that collapses keystroke bursts into one
	// outbound announcement.
	Debounce time.Duration

	// ImmediateAfter is the idle gap after which the next keystroke emits an
	// announcement immediately instead of waiting out the debounce window.
	ImmediateAfter time.Duration

	// Expiry clears a typing flag that has not been refreshed.
	Expiry time.Duration
}

// Detector tracks typing activity for the local user and all remote peers.
//
// The announce callback performs the outbound send; schedule re-enters the
// coordinator's event goroutine for timer-driven mutations so that the
// single-writer discipline holds.
type Detector struct {
	mu           sync.Mutex
	lastAnnounce time.Time

	localID  string
	cfg      Config
	reg      *registry.Registry
	timers   *timers.Registry
	announce func()
	schedule func(func())
	logger   types.Logger
	metrics  types.MetricsCollector
}

// New creates a detector for one room session.
func New(localID string, cfg Config, reg *registry.Registry, tr *timers.Registry, logger types.Logger, metrics types.MetricsCollector, announce func(), schedule func(func())) *Detector {
	if schedule == nil {
		schedule = func(fn func()) { fn() }
	}

	return &Detector{
		localID:  localID,
		cfg:      cfg,
		reg:      reg,
		timers:   tr,
		announce: announce,
		schedule: schedule,
		logger:   logger,
		metrics:  metrics,
	}
}

// LocalKeystroke processes one local keystroke. Non-content keys are ignored.
//
// If more than ImmediateAfter has elapsed since the last announcement the
// announcement goes out immediately; otherwise the debounce timer is
// started or refreshed and a single announcement fires when it elapses.
func (d *Detector) LocalKeystroke(key types.KeyKind) {
	if !key.ContentAffecting() {
		return
	}

	d.mu.Lock()
	elapsed := time.Since(d.lastAnnounce)
	d.mu.Unlock()

	if elapsed > d.cfg.ImmediateAfter {
		// A pending debounced announcement would fire a second time right
		// after this one.
		d.timers.Cancel(timers.TypingDebounce, d.localID)
		d.emit()

		return
	}

	d.timers.Arm(timers.TypingDebounce, d.localID, d.cfg.Debounce, func() {
		d.schedule(d.emit)
	})
}

// RemoteTyping processes an inbound typing announcement for a foreign id.
//
// An announcement carrying the local user's own id must never arrive from a
// correctly functioning transport; if it does it is discarded to avoid
// self-feedback.
func (d *Detector) RemoteTyping(id string) {
	if id == d.localID {
		d.metrics.RecordDuplicateDropped("self_echo")
		d.logger.Warn("discarding self-originated typing announcement", "user_id", id)

		return
	}

	d.reg.SetTyping(id, true)
	d.armExpiry(id)
}

// RemoteStopTyping clears a foreign id's typing flag immediately and cancels
// its pending expiry.
func (d *Detector) RemoteStopTyping(id string) {
	if id == d.localID {
		return
	}

	d.timers.Cancel(timers.TypingExpiry, id)
	d.reg.SetTyping(id, false)
}

// emit sends one outbound announcement and mirrors the local typing flag.
func (d *Detector) emit() {
	d.mu.Lock()
	d.lastAnnounce = time.Now()
	d.mu.Unlock()

	if d.announce != nil {
		d.announce()
	}

	d.reg.SetTyping(d.localID, true)
	d.armExpiry(d.localID)
}

// armExpiry (re)starts the per-id typing expiry, replacing any prior timer
// for that id rather than stacking a second one.
func (d *Detector) armExpiry(id string) {
	d.timers.Arm(timers.TypingExpiry, id, d.cfg.Expiry, func() {
		d.schedule(func() {
			d.reg.SetTyping(id, false)
		})
	})
}
