package types

import "context"

// Hooks defines callbacks for coordinator lifecycle events.
//
// All hooks are optional and called asynchronously in background goroutines
// to avoid blocking the event loop. The context passed to hooks is cancelled
// when the coordinator stops; hooks may still be running when Stop returns.
//
// Hook errors are logged but never fail coordinator operations. Hooks should
// complete quickly, respect context cancellation, and tolerate being called
// after teardown has begun.
type Hooks struct {
	// OnStatusChanged is called when the combined connection status changes.
	OnStatusChanged func(ctx context.Context, from, to CombinedStatus) error

	// OnPresenceChanged is called after the online-user set changes (join,
	// leave, or full resync). The snapshot is a private copy.
	OnPresenceChanged func(ctx context.Context, snapshot PresenceSnapshot) error

	// OnSaveResult is called after each completed save attempt, successful
	// or not. Skipped saves (unchanged fingerprint) do not fire it.
	OnSaveResult func(ctx context.Context, err error) error

	// OnRoomGone is called exactly once when persistence reports that the
	// room no longer exists. Periodic saving has already stopped.
	OnRoomGone func(ctx context.Context) error

	// OnError is called for recoverable errors (transport validation
	// failures, oversized payloads) that the user-facing layer should show.
	OnError func(ctx context.Context, err error) error
}
