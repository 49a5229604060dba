// Package registry maintains the authoritative in-memory table of online
// users and their ephemeral state for one room session.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/qiming97/iinterview/internal/color"
	"github.com/qiming97/iinterview/internal/timers"
	"github.com/qiming97/iinterview/types"
)

// Registry is the single mutable source of truth for who is online and their
// cursors, selections and typing flags.
//
// Mutations come only from the coordinator's event goroutine; the mutex
// exists so that Snapshot and Markers can be read from the rendering layer's
// goroutine without racing.
//
// Self-exclusion: the local user's own cursor and selection are never stored,
// though the local user keeps an entry (color, typing flag) for the
// online-user list display.
type Registry struct {
	mu sync.RWMutex

	localID     string
	entries     map[string]*types.PresenceEntry
	order       []string // join order, for stable snapshot listings
	colors      *color.Assigner
	timers      *timers.Registry
	dedupWindow time.Duration

	onChange func()
	logger   types.Logger
	metrics  types.MetricsCollector
}

// New creates an empty registry for one room session.
//
// onChange fires after every mutation that altered state; downstream
// consumers batch or coalesce as they see fit. It is invoked synchronously on
// the mutating goroutine.
func New(localID string, colors *color.Assigner, tr *timers.Registry, dedupWindow time.Duration, logger types.Logger, metrics types.MetricsCollector, onChange func()) *Registry {
	return &Registry{
		localID:     localID,
		entries:     make(map[string]*types.PresenceEntry),
		colors:      colors,
		timers:      tr,
		dedupWindow: dedupWindow,
		onChange:    onChange,
		logger:      logger,
		metrics:     metrics,
	}
}

// ApplyFullSnapshot replaces the entire online set from a room-joined or
// resync event. Entries for ids no longer present are dropped and their
// colors pruned; all retained and new entries start with empty cursor,
// selection and typing state. Idempotent under repeated identical snapshots.
func (r *Registry) ApplyFullSnapshot(users []types.UserIdentity) {
	r.mu.Lock()

	keep := make(map[string]struct{}, len(users))
	entries := make(map[string]*types.PresenceEntry, len(users))
	order := make([]string, 0, len(users))

	for _, u := range users {
		if _, dup := keep[u.ID]; dup {
			continue
		}
		keep[u.ID] = struct{}{}
		entries[u.ID] = &types.PresenceEntry{Identity: u}
		order = append(order, u.ID)
		r.colors.ColorFor(u.ID)
	}

	r.entries = entries
	r.order = order
	r.colors.PruneExcept(keep)

	r.mu.Unlock()

	r.metrics.RecordPresenceEvent("snapshot")
	r.metrics.RecordOnlineUsers(len(users))
	r.notify()
}

// ApplyJoin adds one user. A duplicate join delivery for an id already
// present is a no-op.
func (r *Registry) ApplyJoin(identity types.UserIdentity) {
	r.mu.Lock()

	if _, ok := r.entries[identity.ID]; ok {
		r.mu.Unlock()
		return
	}

	r.entries[identity.ID] = &types.PresenceEntry{Identity: identity}
	r.order = append(r.order, identity.ID)
	r.colors.ColorFor(identity.ID)
	count := len(r.entries)

	r.mu.Unlock()

	r.metrics.RecordPresenceEvent("join")
	r.metrics.RecordOnlineUsers(count)
	r.notify()
}

// ApplyLeave removes one user.
//
// Transports may deliver the same leave more than once; a short-lived guard
// keyed by id swallows repeats inside the dedup window, then expires so a
// genuine leave after a rejoin is processed normally.
func (r *Registry) ApplyLeave(id string) {
	if r.timers.Pending(timers.LeaveDedup, id) {
		r.metrics.RecordDuplicateDropped("leave")
		r.logger.Debug("duplicate leave dropped", "user_id", id)

		return
	}
	r.timers.Arm(timers.LeaveDedup, id, r.dedupWindow, func() {})

	r.mu.Lock()

	if _, ok := r.entries[id]; !ok {
		r.mu.Unlock()
		return
	}

	delete(r.entries, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.colors.Release(id)
	count := len(r.entries)

	r.mu.Unlock()

	r.metrics.RecordPresenceEvent("leave")
	r.metrics.RecordOnlineUsers(count)
	r.notify()
}

// SetCursor records a remote user's cursor position. The local user's own
// cursor is never stored; last write wins per user.
func (r *Registry) SetCursor(id string, pos types.CursorPosition) {
	if id == r.localID {
		return
	}

	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	p := pos
	e.Cursor = &p
	r.mu.Unlock()

	r.metrics.RecordPresenceEvent("cursor")
	r.notify()
}

// SetSelection records a remote user's selection; nil clears it.
func (r *Registry) SetSelection(id string, sel *types.SelectionRange) {
	if id == r.localID {
		return
	}

	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	if sel == nil {
		e.Selection = nil
	} else {
		s := *sel
		e.Selection = &s
	}
	r.mu.Unlock()

	r.metrics.RecordPresenceEvent("selection")
	r.notify()
}

// SetTyping records a user's typing flag; allowed for the local user so the
// online list can show the local typing state.
func (r *Registry) SetTyping(id string, typing bool) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok || e.IsTyping == typing {
		r.mu.Unlock()
		return
	}
	e.IsTyping = typing
	r.mu.Unlock()

	r.metrics.RecordPresenceEvent("typing")
	r.notify()
}

// ColorFor returns the stable color for id, assigning one if the id has
// never been seen.
func (r *Registry) ColorFor(id string) types.Color {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.colors.ColorFor(id)
}

// Contains reports whether id is currently online.
func (r *Registry) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[id]

	return ok
}

// Len returns the number of online users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Snapshot returns a read-only copy of the current presence view. The
// combined connection status is supplied by the caller because the registry
// does not track channel health.
func (r *Registry) Snapshot(status types.CombinedStatus) types.PresenceSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := types.PresenceSnapshot{
		OnlineUsers:    make([]types.UserIdentity, 0, len(r.entries)),
		CursorsByID:    make(map[string]types.CursorPosition),
		SelectionsByID: make(map[string]types.SelectionRange),
		Status:         status,
	}

	for _, id := range r.order {
		e := r.entries[id]
		snap.OnlineUsers = append(snap.OnlineUsers, e.Identity)
		if e.Cursor != nil {
			snap.CursorsByID[id] = *e.Cursor
		}
		if e.Selection != nil {
			snap.SelectionsByID[id] = *e.Selection
		}
		if e.IsTyping {
			snap.TypingIDs = append(snap.TypingIDs, id)
		}
	}
	sort.Strings(snap.TypingIDs)

	return snap
}

// Markers builds the full replacement decoration set for every remote user
// that has a cursor or selection. The local user is excluded.
func (r *Registry) Markers() []types.Marker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	markers := make([]types.Marker, 0, len(r.entries))
	for _, id := range r.order {
		if id == r.localID {
			continue
		}
		e := r.entries[id]
		if e.Cursor == nil && e.Selection == nil {
			continue
		}

		m := types.Marker{
			UserID:   id,
			Username: e.Identity.Username,
			Color:    r.colors.ColorFor(id),
			IsTyping: e.IsTyping,
		}
		if e.Cursor != nil {
			c := *e.Cursor
			m.Cursor = &c
		}
		if e.Selection != nil {
			s := *e.Selection
			m.Selection = &s
		}
		markers = append(markers, m)
	}

	return markers
}

// notify fires the change callback, if any.
func (r *Registry) notify() {
	if r.onChange != nil {
		r.onChange()
	}
}
