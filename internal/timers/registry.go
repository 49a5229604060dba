// Package timers provides a cancellable timer registry keyed by
// (purpose, id).
//
// Every delayed action in a room session (typing expiries, debounce windows,
// leave-event dedup, decoration retries, reconnect delays) is armed through
// one registry, so teardown cancels all outstanding timers by iterating a
// single structure instead of tracking each timer reference by hand.
package timers

import (
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

// Purpose names the concern a timer belongs to. Together with an id it forms
// the timer's registry key; arming a timer for an occupied key replaces the
// previous timer instead of stacking a second one.
type Purpose string

const (
	// TypingDebounce collapses local keystroke bursts into one announcement.
	TypingDebounce Purpose = "typing_debounce"

	// TypingExpiry clears a user's typing flag after the idle period.
	TypingExpiry Purpose = "typing_expiry"

	// LeaveDedup guards against duplicate delivery of a leave event.
	LeaveDedup Purpose = "leave_dedup"

	// DecorationRetry re-attempts a decoration recomputation deferred by an
	// active remote-mutation window.
	DecorationRetry Purpose = "decoration_retry"

	// ReconnectDelay spaces out a forced disconnect-then-reconnect cycle.
	ReconnectDelay Purpose = "reconnect_delay"

	// MutationQuiet closes the remote-mutation window after the quiet period.
	MutationQuiet Purpose = "mutation_quiet"
)

type key struct {
	purpose Purpose
	id      string
}

// Registry owns all pending timers for one room session.
//
// Arming and cancelling are safe for concurrent use. Fired callbacks run on
// the timer goroutine; callers that need single-threaded execution should
// post onto their own event queue from the callback.
type Registry struct {
	timers *xsync.Map[key, *time.Timer]
}

// NewRegistry creates an empty timer registry.
func NewRegistry() *Registry {
	return &Registry{
		timers: xsync.NewMap[key, *time.Timer](),
	}
}

// Arm schedules fn to run after d, replacing any pending timer for the same
// (purpose, id). The entry removes itself when the timer fires.
func (r *Registry) Arm(purpose Purpose, id string, d time.Duration, fn func()) {
	k := key{purpose: purpose, id: id}

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		// Delete only our own entry; a replacement armed between firing and
		// this cleanup must survive.
		r.timers.Compute(k, func(old *time.Timer, loaded bool) (*time.Timer, xsync.ComputeOp) {
			if loaded && old == t {
				return nil, xsync.DeleteOp
			}

			return old, xsync.CancelOp
		})
		fn()
	})

	if prev, loaded := r.timers.LoadAndStore(k, t); loaded && prev != t {
		prev.Stop()
	}
}

// Cancel stops the pending timer for (purpose, id), if any. Returns true when
// a timer was pending and is now cancelled before firing.
func (r *Registry) Cancel(purpose Purpose, id string) bool {
	t, loaded := r.timers.LoadAndDelete(key{purpose: purpose, id: id})
	if !loaded {
		return false
	}

	return t.Stop()
}

// Pending reports whether a timer is armed for (purpose, id).
func (r *Registry) Pending(purpose Purpose, id string) bool {
	_, ok := r.timers.Load(key{purpose: purpose, id: id})

	return ok
}

// CancelAll stops every pending timer. Idempotent; used during teardown.
func (r *Registry) CancelAll() {
	r.timers.Range(func(k key, t *time.Timer) bool {
		if _, loaded := r.timers.LoadAndDelete(k); loaded {
			t.Stop()
		}

		return true
	})
}

// Len returns the number of pending timers. Intended for tests and teardown
// assertions.
func (r *Registry) Len() int {
	return r.timers.Size()
}
