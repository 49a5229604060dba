package iinterview

import (
	"fmt"
	"time"
)

// Config is the configuration for the Coordinator.
//
// All duration fields accept standard Go duration strings like "500ms", "5s".
type Config struct {
	// RoomID is the room this session joins. Required.
	RoomID string `yaml:"roomId"`

	// TypingDebounce collapses a burst of keystrokes into one typing
	// announcement. Recommended: 500ms.
	TypingDebounce time.Duration `yaml:"typingDebounce"`

	// TypingImmediateAfter is the idle gap after which the next keystroke
	// announces typing immediately instead of waiting out the debounce.
	// Must be >= TypingDebounce. Recommended: 1s.
	TypingImmediateAfter time.Duration `yaml:"typingImmediateAfter"`

	// TypingExpiry clears a typing flag not refreshed by further
	// announcements. Must be > TypingDebounce. Recommended: 5s.
	TypingExpiry time.Duration `yaml:"typingExpiry"`

	// LeaveDedupWindow swallows duplicate deliveries of the same leave event.
	// Recommended: 5s.
	LeaveDedupWindow time.Duration `yaml:"leaveDedupWindow"`

	// RemoteMutationQuiet is how long after the last remote document change
	// the mutation window stays open. While open, decoration recomputation is
	// deferred and periodic saves are suppressed. Recommended: 300ms.
	RemoteMutationQuiet time.Duration `yaml:"remoteMutationQuiet"`

	// CursorSuppressAfterRemote drops locally observed cursor movement for
	// this long after a remote mutation, so merge-induced caret shifts are not
	// broadcast as user movement. Recommended: 800ms.
	CursorSuppressAfterRemote time.Duration `yaml:"cursorSuppressAfterRemote"`

	// DecorationRetryDelay spaces out recomputation retries deferred by an
	// active mutation window. Recommended: 100ms.
	DecorationRetryDelay time.Duration `yaml:"decorationRetryDelay"`

	// SaveInterval is the periodic save cadence. Recommended: 5s.
	SaveInterval time.Duration `yaml:"saveInterval"`

	// SaveTimeout bounds one save attempt against the content store.
	// Recommended: 10s.
	SaveTimeout time.Duration `yaml:"saveTimeout"`

	// ReconnectDelay is the pause between the forced disconnect and the fresh
	// connect of a manual reconnect cycle. Recommended: 1s.
	ReconnectDelay time.Duration `yaml:"reconnectDelay"`

	// JoinTimeout bounds the initial connect-and-join sequence in Start.
	// Recommended: 30s.
	JoinTimeout time.Duration `yaml:"joinTimeout"`

	// ShutdownTimeout bounds graceful teardown in Stop. Recommended: 10s.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// EventQueueSize is the buffered capacity of the coordinator's event
	// queue. Producers block once it fills, which backpressures the transport
	// read goroutine. Recommended: 256.
	EventQueueSize int `yaml:"eventQueueSize"`
}

// DefaultConfig returns a Config with production defaults. RoomID must still
// be set by the caller.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		TypingDebounce:            500 * time.Millisecond,
		TypingImmediateAfter:      time.Second,
		TypingExpiry:              5 * time.Second,
		LeaveDedupWindow:          5 * time.Second,
		RemoteMutationQuiet:       300 * time.Millisecond,
		CursorSuppressAfterRemote: 800 * time.Millisecond,
		DecorationRetryDelay:      100 * time.Millisecond,
		SaveInterval:              5 * time.Second,
		SaveTimeout:               10 * time.Second,
		ReconnectDelay:            time.Second,
		JoinTimeout:               30 * time.Second,
		ShutdownTimeout:           10 * time.Second,
		EventQueueSize:            256,
	}
}

// SetDefaults fills in missing configuration values with production defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.TypingDebounce == 0 {
		cfg.TypingDebounce = defaults.TypingDebounce
	}
	if cfg.TypingImmediateAfter == 0 {
		cfg.TypingImmediateAfter = defaults.TypingImmediateAfter
	}
	if cfg.TypingExpiry == 0 {
		cfg.TypingExpiry = defaults.TypingExpiry
	}
	if cfg.LeaveDedupWindow == 0 {
		cfg.LeaveDedupWindow = defaults.LeaveDedupWindow
	}
	if cfg.RemoteMutationQuiet == 0 {
		cfg.RemoteMutationQuiet = defaults.RemoteMutationQuiet
	}
	if cfg.CursorSuppressAfterRemote == 0 {
		cfg.CursorSuppressAfterRemote = defaults.CursorSuppressAfterRemote
	}
	if cfg.DecorationRetryDelay == 0 {
		cfg.DecorationRetryDelay = defaults.DecorationRetryDelay
	}
	if cfg.SaveInterval == 0 {
		cfg.SaveInterval = defaults.SaveInterval
	}
	if cfg.SaveTimeout == 0 {
		cfg.SaveTimeout = defaults.SaveTimeout
	}
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = defaults.ReconnectDelay
	}
	if cfg.JoinTimeout == 0 {
		cfg.JoinTimeout = defaults.JoinTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if cfg.EventQueueSize == 0 {
		cfg.EventQueueSize = defaults.EventQueueSize
	}
}

// Validate checks configuration constraints and returns an error for invalid
// values.
//
// Hard Validation Rules:
//   - RoomID must be non-empty
//   - TypingExpiry > TypingDebounce (flag must outlive its debounce)
//   - TypingImmediateAfter >= TypingDebounce (immediate path supersedes debounce)
//   - RemoteMutationQuiet > 0 and DecorationRetryDelay > 0
//   - SaveInterval > 0 and SaveTimeout > 0
//   - EventQueueSize > 0
//
// Returns:
//   - error: Validation error with a clear explanation, nil if valid
func (cfg *Config) Validate() error {
	if cfg.RoomID == "" {
		return fmt.Errorf("RoomID must be set")
	}

	if cfg.TypingExpiry <= cfg.TypingDebounce {
		return fmt.Errorf(
			"TypingExpiry (%v) must be > TypingDebounce (%v), otherwise the flag expires before the announcement",
			cfg.TypingExpiry, cfg.TypingDebounce,
		)
	}

	if cfg.TypingImmediateAfter < cfg.TypingDebounce {
		return fmt.Errorf(
			"TypingImmediateAfter (%v) must be >= TypingDebounce (%v)",
			cfg.TypingImmediateAfter, cfg.TypingDebounce,
		)
	}

	if cfg.RemoteMutationQuiet <= 0 {
		return fmt.Errorf("RemoteMutationQuiet must be > 0, got %v", cfg.RemoteMutationQuiet)
	}

	if cfg.DecorationRetryDelay <= 0 {
		return fmt.Errorf("DecorationRetryDelay must be > 0, got %v", cfg.DecorationRetryDelay)
	}

	if cfg.SaveInterval <= 0 {
		return fmt.Errorf("SaveInterval must be > 0, got %v", cfg.SaveInterval)
	}

	if cfg.SaveTimeout <= 0 {
		return fmt.Errorf("SaveTimeout must be > 0, got %v", cfg.SaveTimeout)
	}

	if cfg.EventQueueSize <= 0 {
		return fmt.Errorf("EventQueueSize must be > 0, got %d", cfg.EventQueueSize)
	}

	return nil
}

// ValidateWithWarnings checks configuration and logs warnings for
// non-recommended values.
//
// Parameters:
//   - logger: Logger instance for warning output
func (cfg *Config) ValidateWithWarnings(logger Logger) {
	if cfg.SaveTimeout < cfg.SaveInterval {
		logger.Warn(
			"SaveTimeout is below SaveInterval, slow saves will overlap ticks",
			"saveTimeout", cfg.SaveTimeout,
			"saveInterval", cfg.SaveInterval,
		)
	}

	if cfg.CursorSuppressAfterRemote < cfg.RemoteMutationQuiet {
		logger.Warn(
			"CursorSuppressAfterRemote is shorter than RemoteMutationQuiet, merge-induced cursor moves may leak",
			"suppress", cfg.CursorSuppressAfterRemote,
			"quiet", cfg.RemoteMutationQuiet,
		)
	}

	if cfg.TypingDebounce < 100*time.Millisecond {
		logger.Warn(
			"TypingDebounce is very short, may cause announcement storms",
			"debounce", cfg.TypingDebounce,
			"recommended", "500ms",
		)
	}
}

// TestConfig returns a configuration optimized for fast test execution.
//
// Test timings are 10-50x faster than production defaults to enable rapid
// iteration without sacrificing test coverage. Use DefaultConfig() for
// production deployments.
//
// Returns:
//   - Config: Configuration with fast timings for tests
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.RoomID = "test-room"
	cfg.TypingDebounce = 20 * time.Millisecond
	cfg.TypingImmediateAfter = 50 * time.Millisecond
	cfg.TypingExpiry = 150 * time.Millisecond
	cfg.LeaveDedupWindow = 100 * time.Millisecond
	cfg.RemoteMutationQuiet = 30 * time.Millisecond
	cfg.CursorSuppressAfterRemote = 80 * time.Millisecond
	cfg.DecorationRetryDelay = 10 * time.Millisecond
	cfg.SaveInterval = 50 * time.Millisecond
	cfg.SaveTimeout = time.Second
	cfg.ReconnectDelay = 50 * time.Millisecond
	cfg.JoinTimeout = 5 * time.Second
	cfg.ShutdownTimeout = 2 * time.Second

	return cfg
}
