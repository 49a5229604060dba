// Package save reconciles editor content with the persistence backend on a
// fixed interval, deduplicated by content fingerprint and mutually exclusive
// with remote-mutation windows.
package save

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/qiming97/iinterview/internal/mutation"
	"github.com/qiming97/iinterview/types"
)

// Package-local lifecycle errors.
var (
	ErrNotStarted     = errors.New("saver not started")
	ErrAlreadyStarted = errors.New("saver already started")
)

// Saver periodically persists the document when its fingerprint changed.
//
// The fingerprint is a cheap order-sensitive digest used only for change
// detection, never for conflict resolution. A save is skipped while another
// save is in flight, while a remote mutation is being absorbed, or while the
// host network is offline.
type Saver struct {
	roomID   string
	store    types.ContentStore
	text     func() string
	window   *mutation.Window
	online   func() bool
	interval time.Duration
	timeout  time.Duration

	mu         sync.Mutex
	started    bool
	inFlight   bool
	haveSaved  bool
	lastSaved  uint64
	roomGone   bool
	stopCh     chan struct{}
	doneCh     chan struct{}
	ticker     *time.Ticker
	onRoomGone func()
	onResult   func(err error)

	logger  types.Logger
	metrics types.MetricsCollector
}

// New creates a saver for one room session.
//
// text samples the current document; online samples the host network flag.
// onRoomGone fires exactly once when the backend reports the room deleted;
// onResult fires after every completed save attempt. Both may be nil and run
// on the saver's goroutine (or the caller's, for SaveNow).
func New(roomID string, store types.ContentStore, text func() string, window *mutation.Window, online func() bool, interval, timeout time.Duration, logger types.Logger, metrics types.MetricsCollector, onRoomGone func(), onResult func(err error)) *Saver {
	return &Saver{
		roomID:     roomID,
		store:      store,
		text:       text,
		window:     window,
		online:     online,
		interval:   interval,
		timeout:    timeout,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		onRoomGone: onRoomGone,
		onResult:   onResult,
		logger:     logger,
		metrics:    metrics,
	}
}

// SeedFingerprint records content as already persisted, so the first interval
// after initial-content seeding does not rewrite an identical document.
func (s *Saver) SeedFingerprint(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.haveSaved = true
	s.lastSaved = xxh3.HashString(content)
}

// Start begins the periodic save cycle.
func (s *Saver) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true
	s.ticker = time.NewTicker(s.interval)

	go s.loop()

	return nil
}

// Stop halts the periodic cycle. Safe to call more than once; an in-flight
// save completes but its result is discarded.
func (s *Saver) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.started = false
	s.ticker.Stop()
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh

	return nil
}

// SaveNow performs a user-triggered save, bypassing the interval but still
// respecting the in-flight mutual exclusion: a concurrent duplicate attempt
// is rejected with types.ErrSaveInFlight rather than queued.
func (s *Saver) SaveNow(ctx context.Context) error {
	s.mu.Lock()
	if s.roomGone {
		s.mu.Unlock()
		return types.ErrRoomNotFound
	}
	if s.inFlight {
		s.mu.Unlock()
		s.metrics.RecordSaveAttempt("skipped_busy")

		return types.ErrSaveInFlight
	}
	s.inFlight = true
	s.mu.Unlock()

	return s.save(ctx, true)
}

func (s *Saver) loop() {
	defer close(s.doneCh)

	for {
		select {
		case <-s.stopCh:
			return
		case <-s.ticker.C:
			s.tick()
		}
	}
}

// tick runs one periodic sampling pass.
func (s *Saver) tick() {
	if s.window.Active() || !s.online() {
		return
	}

	s.mu.Lock()
	if s.roomGone || s.inFlight {
		s.mu.Unlock()
		return
	}

	fp := xxh3.HashString(s.text())
	if s.haveSaved && fp == s.lastSaved {
		s.mu.Unlock()
		s.metrics.RecordSaveAttempt("skipped_unchanged")

		return
	}
	s.inFlight = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	err := s.save(ctx, false)
	cancel()

	if err != nil && !errors.Is(err, types.ErrRoomNotFound) {
		s.logger.Error("periodic save failed", "room_id", s.roomID, "error", err)
	}
}

// save performs one write. The caller must have set inFlight.
func (s *Saver) save(ctx context.Context, explicit bool) error {
	content := s.text()
	fp := xxh3.HashString(content)

	start := time.Now()
	err := s.store.Save(ctx, s.roomID, content)
	s.metrics.RecordSaveDuration(time.Since(start).Seconds())

	s.mu.Lock()
	s.inFlight = false
	fireRoomGone := false

	switch {
	case err == nil:
		s.haveSaved = true
		s.lastSaved = fp
	case errors.Is(err, types.ErrRoomNotFound):
		// Further saves are meaningless once the room is deleted; stop the
		// periodic cycle and surface the condition exactly once.
		if !s.roomGone {
			s.roomGone = true
			fireRoomGone = true
		}
	}
	s.mu.Unlock()

	if err == nil {
		s.metrics.RecordSaveAttempt("ok")
		s.logger.Debug("content saved", "room_id", s.roomID, "explicit", explicit)
	} else {
		s.metrics.RecordSaveAttempt("error")
	}

	if fireRoomGone && s.onRoomGone != nil {
		s.onRoomGone()
	}
	if s.onResult != nil {
		s.onResult(err)
	}

	return err
}

// InFlight reports whether a save is currently running.
func (s *Saver) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inFlight
}
